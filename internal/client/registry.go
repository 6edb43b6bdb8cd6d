package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/controla/backend/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRegistryURL = "https://registry.npmjs.org/n8n/latest"
	versionCacheTTL    = time.Hour
)

// cachedVersion - last successful registry answer
type cachedVersion struct {
	value     string
	fetchedAt time.Time
}

func (c cachedVersion) fresh(now time.Time, ttl time.Duration) bool {
	return c.value != "" && now.Sub(c.fetchedAt) < ttl
}

// VersionCache is a read-through cache of the latest published n8n release.
// Refresh is lazy; failed lookups are not cached and fall back to the last
// good value.
type VersionCache struct {
	url        string
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time

	mu     sync.Mutex
	cached cachedVersion
}

func NewVersionCache(registryURL string, httpClient *http.Client) *VersionCache {
	if registryURL == "" {
		registryURL = DefaultRegistryURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &VersionCache{
		url:        registryURL,
		httpClient: httpClient,
		ttl:        versionCacheTTL,
		now:        time.Now,
	}
}

// Latest returns the newest published version, or "unknown".
func (c *VersionCache) Latest(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cached.fresh(now, c.ttl) {
		return c.cached.value
	}

	version, err := c.fetch(ctx)
	if err != nil {
		log.Debug().Err(err).Str("url", c.url).Msg("Latest version lookup failed")
		if c.cached.value != "" {
			return c.cached.value
		}
		return model.UnknownVersion
	}

	c.cached = cachedVersion{value: version, fetchedAt: now}
	return version
}

func (c *VersionCache) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("registry returned status: %d", resp.StatusCode)
	}

	var body struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to parse registry response: %w", err)
	}
	if body.Version == "" {
		return "", fmt.Errorf("registry response has no version")
	}
	return body.Version, nil
}
