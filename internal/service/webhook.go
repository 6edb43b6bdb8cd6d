package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/controla/backend/internal/db"
	"github.com/controla/backend/internal/model"
	"github.com/controla/backend/internal/tenant"
)

type webhookRepo interface {
	GetWebhookConfigs(ctx context.Context, tenantID string) ([]model.WebhookConfig, error)
	GetWebhookConfigByID(ctx context.Context, tenantID string, id int) (*model.WebhookConfig, error)
	CreateWebhookConfig(ctx context.Context, cfg model.WebhookConfig) (int, error)
	UpdateWebhookConfig(ctx context.Context, id int, cfg model.WebhookConfig) error
	DeleteWebhookConfig(ctx context.Context, tenantID string, id int) error
}

// WebhookService manages the current tenant's alert webhooks.
type WebhookService struct {
	db webhookRepo
}

func NewWebhookService(db webhookRepo) *WebhookService {
	return &WebhookService{db: db}
}

func (s *WebhookService) ListWebhookConfigs(ctx context.Context) ([]model.WebhookConfig, error) {
	return s.db.GetWebhookConfigs(ctx, tenant.FromContext(ctx))
}

func (s *WebhookService) GetWebhookConfig(ctx context.Context, id int) (*model.WebhookConfig, error) {
	cfg, err := s.db.GetWebhookConfigByID(ctx, tenant.FromContext(ctx), id)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return cfg, err
}

func (s *WebhookService) CreateWebhookConfig(ctx context.Context, req model.WebhookConfigRequest) (int, error) {
	cfg, err := webhookFromRequest(ctx, req)
	if err != nil {
		return 0, err
	}
	return s.db.CreateWebhookConfig(ctx, cfg)
}

func (s *WebhookService) UpdateWebhookConfig(ctx context.Context, id int, req model.WebhookConfigRequest) error {
	cfg, err := webhookFromRequest(ctx, req)
	if err != nil {
		return err
	}
	err = s.db.UpdateWebhookConfig(ctx, id, cfg)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func (s *WebhookService) DeleteWebhookConfig(ctx context.Context, id int) error {
	err := s.db.DeleteWebhookConfig(ctx, tenant.FromContext(ctx), id)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func webhookFromRequest(ctx context.Context, req model.WebhookConfigRequest) (model.WebhookConfig, error) {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.WebhookConfig{}, ErrInvalidInput
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodGet:
	default:
		return model.WebhookConfig{}, ErrInvalidInput
	}

	cfg := model.WebhookConfig{
		TenantID: tenant.FromContext(ctx),
		URL:      u.String(),
		Method:   method,
		Body:     req.Body,
		Headers:  req.Headers,
	}
	if cfg.Headers == nil {
		cfg.Headers = []model.WebhookHeader{}
	}
	return cfg, nil
}
