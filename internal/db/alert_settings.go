package db

import (
	"context"
	"fmt"

	"github.com/controla/backend/internal/model"
)

func (db *Postgres) EnsureAlertSettingsSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alert_settings (
			tenant_id                  TEXT         PRIMARY KEY,
			enabled                    BOOLEAN      NOT NULL DEFAULT FALSE,
			notify_on_instance_offline BOOLEAN      NOT NULL DEFAULT FALSE,
			notify_on_workflow_error   BOOLEAN      NOT NULL DEFAULT FALSE,
			notify_on_invalid_api_key  BOOLEAN      NOT NULL DEFAULT FALSE,
			slack_channel_id           TEXT         NOT NULL DEFAULT '',
			webhooks_enabled           BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at                 TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at                 TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create alert_settings table: %w", err)
	}
	return nil
}

// GetAlertSettings returns pgx.ErrNoRows when the tenant never saved settings.
func (db *Postgres) GetAlertSettings(ctx context.Context, tenantID string) (*model.AlertSettings, error) {
	var s model.AlertSettings
	err := db.Pool.QueryRow(ctx, `
		SELECT tenant_id, enabled, notify_on_instance_offline, notify_on_workflow_error,
		       notify_on_invalid_api_key, slack_channel_id, webhooks_enabled, created_at, updated_at
		FROM alert_settings
		WHERE tenant_id = $1
	`, tenantID).Scan(
		&s.TenantID,
		&s.Enabled,
		&s.NotifyOnInstanceOffline,
		&s.NotifyOnWorkflowError,
		&s.NotifyOnInvalidAPIKey,
		&s.SlackChannelID,
		&s.WebhooksEnabled,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *Postgres) SaveAlertSettings(ctx context.Context, s *model.AlertSettings) error {
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO alert_settings (
			tenant_id, enabled, notify_on_instance_offline, notify_on_workflow_error,
			notify_on_invalid_api_key, slack_channel_id, webhooks_enabled, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			enabled                    = EXCLUDED.enabled,
			notify_on_instance_offline = EXCLUDED.notify_on_instance_offline,
			notify_on_workflow_error   = EXCLUDED.notify_on_workflow_error,
			notify_on_invalid_api_key  = EXCLUDED.notify_on_invalid_api_key,
			slack_channel_id           = EXCLUDED.slack_channel_id,
			webhooks_enabled           = EXCLUDED.webhooks_enabled,
			updated_at                 = NOW()
		RETURNING created_at, updated_at
	`,
		s.TenantID,
		s.Enabled,
		s.NotifyOnInstanceOffline,
		s.NotifyOnWorkflowError,
		s.NotifyOnInvalidAPIKey,
		s.SlackChannelID,
		s.WebhooksEnabled,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save alert settings: %w", err)
	}
	return nil
}
