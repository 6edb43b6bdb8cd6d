// Alert dispatch for instance health events.
//
// Premium hooks (invalid credential, workflow error) are switched on or off
// once, from the license, when the handler is built. Every hook then checks
// the owning tenant's alert settings and fans out to Slack and the tenant's
// webhooks. Delivery failures are logged and never reach the caller.

package service

import (
	"context"
	"time"

	"github.com/controla/backend/internal/model"
	"github.com/rs/zerolog/log"
)

// AlertHandler receives alert-worthy instance events.
type AlertHandler interface {
	OnInvalidCredential(ctx context.Context, inst model.Instance)
	OnOffline(ctx context.Context, inst model.Instance)
	OnOnline(ctx context.Context, inst model.Instance)
	OnWorkflowError(ctx context.Context, inst model.Instance, workflowName, message string)
}

type alertSettingsSource interface {
	Settings(ctx context.Context, tenantID string) (model.AlertSettings, error)
}

type slackNotifier interface {
	IsConfigured() bool
	SendInstanceAlert(ctx context.Context, alert model.InstanceAlert, channelID string) error
}

type webhookNotifier interface {
	DeliverInstanceAlert(ctx context.Context, alert model.InstanceAlert)
}

type NotificationAlertHandler struct {
	settings alertSettingsSource
	slack    slackNotifier
	webhooks webhookNotifier
	metrics  *ProbeMetrics

	workflowErrors     bool
	invalidCredentials bool

	now func() time.Time
}

func NewNotificationAlertHandler(
	settings alertSettingsSource,
	slack slackNotifier,
	webhooks webhookNotifier,
	license License,
	metrics *ProbeMetrics,
) *NotificationAlertHandler {
	return &NotificationAlertHandler{
		settings:           settings,
		slack:              slack,
		webhooks:           webhooks,
		metrics:            metrics,
		workflowErrors:     license.IsFeatureEnabled(model.FeatureWorkflowErrorAlert),
		invalidCredentials: license.IsFeatureEnabled(model.FeatureInvalidAPIKeyAlert),
		now:                time.Now,
	}
}

func (h *NotificationAlertHandler) OnInvalidCredential(ctx context.Context, inst model.Instance) {
	if !h.invalidCredentials {
		return
	}
	h.notify(ctx, model.InstanceAlert{
		Kind:     model.AlertKindInvalidCredential,
		Instance: inst,
		Message:  "The instance rejected the configured API key.",
	}, func(s model.AlertSettings) bool { return s.NotifyOnInvalidAPIKey })
}

func (h *NotificationAlertHandler) OnOffline(ctx context.Context, inst model.Instance) {
	h.notify(ctx, model.InstanceAlert{
		Kind:     model.AlertKindOffline,
		Instance: inst,
		Message:  "The instance stopped responding.",
	}, func(s model.AlertSettings) bool { return s.NotifyOnInstanceOffline })
}

// OnOnline shares the offline toggle: recovery notices close an outage.
func (h *NotificationAlertHandler) OnOnline(ctx context.Context, inst model.Instance) {
	h.notify(ctx, model.InstanceAlert{
		Kind:     model.AlertKindOnline,
		Instance: inst,
		Message:  "The instance is reachable again.",
	}, func(s model.AlertSettings) bool { return s.NotifyOnInstanceOffline })
}

func (h *NotificationAlertHandler) OnWorkflowError(ctx context.Context, inst model.Instance, workflowName, message string) {
	if !h.workflowErrors {
		return
	}
	h.notify(ctx, model.InstanceAlert{
		Kind:         model.AlertKindWorkflowError,
		Instance:     inst,
		WorkflowName: workflowName,
		Message:      message,
	}, func(s model.AlertSettings) bool { return s.NotifyOnWorkflowError })
}

func (h *NotificationAlertHandler) notify(ctx context.Context, alert model.InstanceAlert, selected func(model.AlertSettings) bool) {
	settings, err := h.settings.Settings(ctx, alert.Instance.TenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant", alert.Instance.TenantID).Msg("Failed to load alert settings")
		return
	}
	if !settings.Enabled || !selected(settings) {
		return
	}

	alert.RaisedAt = h.now()
	h.metrics.RecordAlert(alert.Kind)

	if h.slack != nil && h.slack.IsConfigured() {
		if err := h.slack.SendInstanceAlert(ctx, alert, settings.SlackChannelID); err != nil {
			log.Warn().Err(err).
				Str("instance", alert.Instance.ExternalID).
				Str("kind", string(alert.Kind)).
				Msg("Failed to send Slack alert")
		}
	}
	if settings.WebhooksEnabled && h.webhooks != nil {
		h.webhooks.DeliverInstanceAlert(ctx, alert)
	}

	log.Info().
		Str("instance", alert.Instance.ExternalID).
		Str("tenant", alert.Instance.TenantID).
		Str("kind", string(alert.Kind)).
		Msg("Alert dispatched")
}
