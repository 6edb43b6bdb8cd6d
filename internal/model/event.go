package model

import "time"

const (
	EventTypeWorkflowError = "WORKFLOW_ERROR"
	SeverityError          = "ERROR"
)

// Payload keys of a NormalizedEvent
const (
	PayloadWorkflowID   = "workflowId"
	PayloadWorkflowName = "workflowName"
	PayloadErrorMessage = "errorMessage"
	PayloadExecutionID  = "executionId"
)

// NormalizedEvent - one failed execution harvested from a remote instance
type NormalizedEvent struct {
	ID         string            `json:"id"`
	EventType  string            `json:"eventType"`
	Severity   string            `json:"severity"`
	OccurredAt time.Time         `json:"occurredAt"`
	Payload    map[string]string `json:"payload"`
}

func (e NormalizedEvent) WorkflowName() string {
	return e.Payload[PayloadWorkflowName]
}

func (e NormalizedEvent) ErrorMessage() string {
	return e.Payload[PayloadErrorMessage]
}

// ErrorPattern - failed executions grouped by identical message text
type ErrorPattern struct {
	Message           string    `json:"message"`
	Count             int       `json:"count"`
	LastOccurred      time.Time `json:"lastOccurred"`
	AffectedWorkflows []string  `json:"affectedWorkflows"`
}
