package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/controla/backend/internal/model"
	tmpl "github.com/controla/backend/internal/template"
	"github.com/rs/zerolog/log"
)

type webhookConfigReader interface {
	GetWebhookConfigs(ctx context.Context, tenantID string) ([]model.WebhookConfig, error)
}

// WebhookDeliveryService posts rendered alert bodies to a tenant's webhooks.
type WebhookDeliveryService struct {
	configDB   webhookConfigReader
	httpClient *http.Client
}

func NewWebhookDeliveryService(configDB webhookConfigReader) *WebhookDeliveryService {
	return &WebhookDeliveryService{
		configDB: configDB,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// DeliverInstanceAlert sends alert to every webhook of the instance's tenant.
// A failing target is logged and the rest still receive the alert.
func (s *WebhookDeliveryService) DeliverInstanceAlert(ctx context.Context, alert model.InstanceAlert) {
	tenantID := alert.Instance.TenantID
	configs, err := s.configDB.GetWebhookConfigs(ctx, tenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant", tenantID).Msg("Failed to load webhook configs")
		return
	}
	if len(configs) == 0 {
		return
	}

	instanceData := tmpl.InstanceDataFromModel(alert.Instance)
	alertData := tmpl.AlertDataFromModel(alert)

	for _, cfg := range configs {
		if cfg.URL == "" {
			log.Debug().Int("config_id", cfg.ID).Msg("Skipping webhook with empty URL")
			continue
		}

		rendered := tmpl.RenderBody(cfg.Body, &instanceData, &alertData)
		if err := s.sendHTTP(ctx, cfg, rendered); err != nil {
			log.Warn().Err(err).Int("config_id", cfg.ID).Str("url", cfg.URL).Msg("Webhook delivery failed")
			continue
		}
		log.Debug().Int("config_id", cfg.ID).Str("url", cfg.URL).Msg("Webhook delivered")
	}
}

func (s *WebhookDeliveryService) sendHTTP(ctx context.Context, cfg model.WebhookConfig, body string) error {
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	hasContentType := false
	for _, h := range cfg.Headers {
		if h.Key == "" {
			continue
		}
		req.Header.Set(h.Key, h.Value)
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
