package model

// UnlimitedInstances - MaxInstances value for no ceiling
const UnlimitedInstances = -1

const (
	FeatureWorkflowErrorAlert = "alert.workflow_error"
	FeatureInvalidAPIKeyAlert = "alert.invalid_api_key"
)

// LicenseInfo - GET /api/v1/license response
type LicenseInfo struct {
	Edition      string          `json:"edition"`
	MaxInstances int             `json:"maxInstances"`
	Features     map[string]bool `json:"features"`
}
