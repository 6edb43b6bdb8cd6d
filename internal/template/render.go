// Package template renders user-defined webhook bodies for instance alerts.
//
// Supported variables:
//
//	{{instance.id}}, {{instance.name}}, {{instance.url}},
//	{{instance.status}}, {{instance.version}}
//
//	{{alert.kind}}, {{alert.workflow}}, {{alert.message}}, {{alert.raised_at}}
package template

import (
	"strings"
	"time"

	"github.com/controla/backend/internal/model"
)

// InstanceData - instance fields exposed to templates
type InstanceData struct {
	ID      string
	Name    string
	URL     string
	Status  string
	Version string
}

// AlertData - alert fields exposed to templates
type AlertData struct {
	Kind     string
	Workflow string
	Message  string
	RaisedAt time.Time
}

func InstanceDataFromModel(inst model.Instance) InstanceData {
	return InstanceData{
		ID:      inst.ExternalID,
		Name:    inst.Name,
		URL:     inst.BaseURL,
		Status:  string(inst.Status),
		Version: inst.Version,
	}
}

func AlertDataFromModel(alert model.InstanceAlert) AlertData {
	return AlertData{
		Kind:     string(alert.Kind),
		Workflow: alert.WorkflowName,
		Message:  alert.Message,
		RaisedAt: alert.RaisedAt,
	}
}

// RenderBody substitutes template variables. Variables of a nil section
// render as empty strings; unknown placeholders are left untouched.
func RenderBody(body string, instance *InstanceData, alert *AlertData) string {
	pairs := make([]string, 0, 18)

	if instance != nil {
		pairs = append(pairs,
			"{{instance.id}}", instance.ID,
			"{{instance.name}}", instance.Name,
			"{{instance.url}}", instance.URL,
			"{{instance.status}}", instance.Status,
			"{{instance.version}}", instance.Version,
		)
	} else {
		pairs = append(pairs,
			"{{instance.id}}", "",
			"{{instance.name}}", "",
			"{{instance.url}}", "",
			"{{instance.status}}", "",
			"{{instance.version}}", "",
		)
	}

	if alert != nil {
		raisedAt := ""
		if !alert.RaisedAt.IsZero() {
			raisedAt = alert.RaisedAt.Format(time.RFC3339)
		}
		pairs = append(pairs,
			"{{alert.kind}}", alert.Kind,
			"{{alert.workflow}}", alert.Workflow,
			"{{alert.message}}", alert.Message,
			"{{alert.raised_at}}", raisedAt,
		)
	} else {
		pairs = append(pairs,
			"{{alert.kind}}", "",
			"{{alert.workflow}}", "",
			"{{alert.message}}", "",
			"{{alert.raised_at}}", "",
		)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
