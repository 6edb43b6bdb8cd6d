package model

import "time"

// Alert event keys, as exchanged with the settings UI
const (
	AlertEventInstanceOffline = "instanceOffline"
	AlertEventWorkflowError   = "workflowError"
	AlertEventInvalidAPIKey   = "invalidApiKey"
)

// AlertSettings - per-tenant notification preferences
type AlertSettings struct {
	TenantID                string
	Enabled                 bool
	NotifyOnInstanceOffline bool
	NotifyOnWorkflowError   bool
	NotifyOnInvalidAPIKey   bool

	// SlackChannelID overrides the default Slack channel when set
	SlackChannelID string
	// WebhooksEnabled fans alerts out to the tenant's webhook configs
	WebhooksEnabled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AlertChannels - channel block of the settings payload
type AlertChannels struct {
	Slack    *SlackChannel `json:"slack,omitempty"`
	Webhooks bool          `json:"webhooks"`
}

type SlackChannel struct {
	ChannelID string `json:"channelId"`
}

// AlertSettingsPayload - GET/PUT /api/v1/alerts/settings body
type AlertSettingsPayload struct {
	Enabled  bool            `json:"enabled"`
	Events   map[string]bool `json:"events"`
	Channels AlertChannels   `json:"channels"`
}

// AlertKind - what an alert message is about
type AlertKind string

const (
	AlertKindOffline           AlertKind = "instance_offline"
	AlertKindOnline            AlertKind = "instance_online"
	AlertKindInvalidCredential AlertKind = "invalid_api_key"
	AlertKindWorkflowError     AlertKind = "workflow_error"
)

// InstanceAlert - a rendered alert handed to notification channels
type InstanceAlert struct {
	Kind         AlertKind
	Instance     Instance
	WorkflowName string
	Message      string
	RaisedAt     time.Time
}
