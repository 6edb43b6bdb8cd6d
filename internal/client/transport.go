package client

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
	"github.com/rs/zerolog/log"
)

// NewDNSResolver returns a caching resolver shared by every probe.
// Refresh must run alongside it or entries never expire.
func NewDNSResolver() *dnscache.Resolver {
	return &dnscache.Resolver{}
}

// RefreshDNS re-resolves cached hosts every interval until ctx is done.
func RefreshDNS(ctx context.Context, resolver *dnscache.Resolver, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resolver.Refresh(true)
			log.Debug().Dur("interval", interval).Msg("DNS cache refreshed")
		}
	}
}

// NewHTTPClient builds the client used against remote instances. Every
// request is bounded by timeout so one unreachable host cannot stall a sweep.
func NewHTTPClient(resolver *dnscache.Resolver, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if resolver != nil {
		transport.DialContext = dialWithCache(resolver, timeout)
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func dialWithCache(resolver *dnscache.Resolver, timeout time.Duration) func(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}
		ips, err := resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			return nil, &net.DNSError{Err: "no IP addresses found", Name: host}
		}

		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}
