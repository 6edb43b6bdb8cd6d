package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/controla/backend/internal/client"
	"github.com/controla/backend/internal/config"
	"github.com/controla/backend/internal/db"
	"github.com/controla/backend/internal/handler"
	"github.com/controla/backend/internal/logging"
	"github.com/controla/backend/internal/security"
	"github.com/controla/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	dnsRefreshInterval = 5 * time.Minute
	shutdownTimeout    = 15 * time.Second
)

func main() {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := &db.Postgres{Pool: pool}
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	vault, err := security.NewVault(cfg.Security.MasterKey)
	if err != nil {
		return err
	}
	tenantKeys := security.NewTenantKeyCache()

	resolver := client.NewDNSResolver()
	go client.RefreshDNS(ctx, resolver, dnsRefreshInterval)
	httpClient := client.NewHTTPClient(resolver, cfg.Monitor.ProbeTimeout)

	n8n := client.NewN8nClient(httpClient)
	versions := client.NewVersionCache(cfg.Monitor.RegistryURL, httpClient)
	slack := client.NewSlackClient(cfg.Slack)
	if !slack.IsConfigured() {
		log.Warn().Msg("Slack is not configured, alerts go to webhooks only")
	}

	license := service.NewStaticLicense(cfg.License)
	metrics := service.NewProbeMetrics(prometheus.DefaultRegisterer)

	alertSettings := service.NewAlertSettingsService(store, license)
	webhooks := service.NewWebhookService(store)
	delivery := service.NewWebhookDeliveryService(store)
	alerts := service.NewNotificationAlertHandler(alertSettings, slack, delivery, license, metrics)

	instances := service.NewInstanceService(store, n8n, versions, vault, alerts, license, metrics)

	auth, err := service.NewAuthService(store, tenantKeys, cfg.Auth)
	if err != nil {
		return err
	}
	if cfg.Auth.AdminUsername != "" && cfg.Auth.AdminPassword != "" {
		if err := auth.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			return err
		}
	}

	scheduler := service.NewFleetScheduler(instances, instances, cfg.Monitor, metrics)
	go scheduler.Run(ctx)

	router := gin.New()
	router.Use(logging.RequestLogger(), gin.Recovery())
	router.Use(handler.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.AllowCredentials))
	handler.RegisterRoutes(router, handler.Handlers{
		Auth:          handler.NewAuthHandler(auth),
		Instances:     handler.NewInstanceHandler(instances),
		AlertSettings: handler.NewAlertSettingsHandler(alertSettings),
		Webhooks:      handler.NewWebhookSettingsHandler(webhooks),
		License:       handler.NewLicenseHandler(license),
		Metrics:       promhttp.Handler(),
	}, handler.AuthMiddleware(auth))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("edition", license.Info().Edition).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
