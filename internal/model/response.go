package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AuthLogoutResponse struct {
	Status string `json:"status"`
}

type AuthMeResponse struct {
	UserID   int64  `json:"userId"`
	LoginID  string `json:"loginId"`
	TenantID string `json:"tenantId"`
}

type InstanceListResponse struct {
	Status string            `json:"status"`
	Data   []InstanceSummary `json:"data"`
}

type InstanceDetailEnvelope struct {
	Status string          `json:"status"`
	Data   *InstanceDetail `json:"data"`
}

type WorkflowListResponse struct {
	Status string            `json:"status"`
	Data   []WorkflowSummary `json:"data"`
}

type EventListResponse struct {
	Status string            `json:"status"`
	Data   []NormalizedEvent `json:"data"`
}

type ErrorPatternListResponse struct {
	Status string         `json:"status"`
	Range  string         `json:"range"`
	Data   []ErrorPattern `json:"data"`
}
