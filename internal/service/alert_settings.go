package service

import (
	"context"
	"strings"

	"github.com/controla/backend/internal/db"
	"github.com/controla/backend/internal/model"
	"github.com/controla/backend/internal/tenant"
)

type alertSettingsRepo interface {
	GetAlertSettings(ctx context.Context, tenantID string) (*model.AlertSettings, error)
	SaveAlertSettings(ctx context.Context, settings *model.AlertSettings) error
}

type AlertSettingsService struct {
	repo    alertSettingsRepo
	license License
}

func NewAlertSettingsService(repo alertSettingsRepo, license License) *AlertSettingsService {
	return &AlertSettingsService{repo: repo, license: license}
}

// Settings returns the stored settings of a tenant, or disabled defaults.
func (s *AlertSettingsService) Settings(ctx context.Context, tenantID string) (model.AlertSettings, error) {
	stored, err := s.repo.GetAlertSettings(ctx, tenantID)
	if err != nil {
		if db.IsNoRows(err) {
			return model.AlertSettings{TenantID: tenantID}, nil
		}
		return model.AlertSettings{}, err
	}
	return *stored, nil
}

func (s *AlertSettingsService) GetSettings(ctx context.Context) (model.AlertSettingsPayload, error) {
	settings, err := s.Settings(ctx, tenant.FromContext(ctx))
	if err != nil {
		return model.AlertSettingsPayload{}, err
	}
	return toSettingsPayload(settings), nil
}

// UpdateSettings replaces the current tenant's settings. Premium events can
// only be switched on when licensed.
func (s *AlertSettingsService) UpdateSettings(ctx context.Context, payload model.AlertSettingsPayload) (model.AlertSettingsPayload, error) {
	settings := model.AlertSettings{
		TenantID:                tenant.FromContext(ctx),
		Enabled:                 payload.Enabled,
		NotifyOnInstanceOffline: payload.Events[model.AlertEventInstanceOffline],
		NotifyOnWorkflowError:   payload.Events[model.AlertEventWorkflowError],
		NotifyOnInvalidAPIKey:   payload.Events[model.AlertEventInvalidAPIKey],
		WebhooksEnabled:         payload.Channels.Webhooks,
	}
	if payload.Channels.Slack != nil {
		settings.SlackChannelID = strings.TrimSpace(payload.Channels.Slack.ChannelID)
	}

	if settings.NotifyOnWorkflowError && !s.license.IsFeatureEnabled(model.FeatureWorkflowErrorAlert) {
		return model.AlertSettingsPayload{}, ErrFeatureNotLicensed
	}
	if settings.NotifyOnInvalidAPIKey && !s.license.IsFeatureEnabled(model.FeatureInvalidAPIKeyAlert) {
		return model.AlertSettingsPayload{}, ErrFeatureNotLicensed
	}

	if err := s.repo.SaveAlertSettings(ctx, &settings); err != nil {
		return model.AlertSettingsPayload{}, err
	}
	return toSettingsPayload(settings), nil
}

func toSettingsPayload(settings model.AlertSettings) model.AlertSettingsPayload {
	payload := model.AlertSettingsPayload{
		Enabled: settings.Enabled,
		Events: map[string]bool{
			model.AlertEventInstanceOffline: settings.NotifyOnInstanceOffline,
			model.AlertEventWorkflowError:   settings.NotifyOnWorkflowError,
			model.AlertEventInvalidAPIKey:   settings.NotifyOnInvalidAPIKey,
		},
		Channels: model.AlertChannels{Webhooks: settings.WebhooksEnabled},
	}
	if settings.SlackChannelID != "" {
		payload.Channels.Slack = &model.SlackChannel{ChannelID: settings.SlackChannelID}
	}
	return payload
}
