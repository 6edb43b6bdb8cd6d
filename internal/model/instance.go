// Remote instance records and the views served by handler.

package model

import "time"

// InstanceStatus - the single status tracked per instance
type InstanceStatus string

const (
	StatusUnknown   InstanceStatus = "unknown"
	StatusOnline    InstanceStatus = "online"
	StatusOffline   InstanceStatus = "offline"
	StatusAuthError InstanceStatus = "auth_error" // classification only, persisted as StatusError
	StatusError     InstanceStatus = "error"
	StatusLocked    InstanceStatus = "locked"
)

// UnknownVersion is reported whenever a version cannot be discovered.
const UnknownVersion = "unknown"

// Instance - a registered remote automation server
type Instance struct {
	ID         int64
	ExternalID string // inst_xxxxxxxx, immutable
	TenantID   string
	Name       string
	BaseURL    string

	// APIKey holds the vault-sealed credential, never the plaintext
	APIKey string

	Status  InstanceStatus
	Version string

	LastSeenAt *time.Time

	// LastErrorCheck is the error-scan watermark; it only moves forward
	LastErrorCheck *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InstanceRequest - create/update payload
type InstanceRequest struct {
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
}

// InstanceSummary - list view
type InstanceSummary struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	BaseURL       string     `json:"baseUrl"`
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	LatestVersion string     `json:"latestVersion"`
	LastSeenAt    *time.Time `json:"lastSeenAt"`
}

// InstanceDetail - single instance view
type InstanceDetail struct {
	InstanceSummary
	CreatedAt time.Time `json:"createdAt"`
}

// WorkflowSummary - one workflow of a remote instance with recent run stats
type WorkflowSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Active      bool       `json:"active"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	LastErrorAt *time.Time `json:"lastErrorAt,omitempty"`
}
