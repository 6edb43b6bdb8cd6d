package client

import (
	"context"
	"fmt"
	"time"

	"github.com/controla/backend/internal/model"
)

// SendInstanceAlert posts an alert to channelID, or to the default channel
// when channelID is blank.
//
// Offline alerts open a thread keyed by the instance; the matching online
// alert replies in it and closes it.
func (c *SlackClient) SendInstanceAlert(ctx context.Context, alert model.InstanceAlert, channelID string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}
	if channelID == "" {
		channelID = c.channelID
	}

	inst := alert.Instance
	raisedAt := alert.RaisedAt
	if raisedAt.IsZero() {
		raisedAt = time.Now()
	}

	fields := []SlackField{
		{Title: "Instance", Value: inst.Name, Short: true},
		{Title: "Status", Value: string(inst.Status), Short: true},
		{Title: "URL", Value: inst.BaseURL, Short: false},
	}
	if alert.WorkflowName != "" {
		fields = append(fields, SlackField{Title: "Workflow", Value: alert.WorkflowName, Short: true})
	}
	if c.frontendURL != "" && inst.ExternalID != "" {
		link := fmt.Sprintf("<%s/instances/%s|Open dashboard>", c.frontendURL, inst.ExternalID)
		fields = append(fields, SlackField{Title: "Dashboard", Value: link, Short: false})
	}

	msg := SlackMessage{
		Channel: channelID,
		Attachments: []SlackAttachment{
			{
				Color:  colorByKind(alert.Kind),
				Title:  fmt.Sprintf("%s %s", emojiByKind(alert.Kind), titleByKind(alert.Kind, inst.Name)),
				Text:   alert.Message,
				Fields: fields,
				Footer: "controla",
				Ts:     raisedAt.Unix(),
			},
		},
	}

	threadKey := inst.ExternalID
	if alert.Kind == model.AlertKindOnline {
		if threadTS, ok := c.GetThreadTS(threadKey); ok {
			msg.ThreadTS = threadTS
		}
	}

	resp, err := c.send(ctx, msg)
	if err != nil {
		return err
	}

	switch alert.Kind {
	case model.AlertKindOffline:
		if resp.TS != "" {
			c.StoreThreadTS(threadKey, resp.TS)
		}
	case model.AlertKindOnline:
		c.DeleteThreadTS(threadKey)
	}
	return nil
}

func titleByKind(kind model.AlertKind, name string) string {
	switch kind {
	case model.AlertKindOffline:
		return fmt.Sprintf("Instance %s is offline", name)
	case model.AlertKindOnline:
		return fmt.Sprintf("Instance %s is back online", name)
	case model.AlertKindInvalidCredential:
		return fmt.Sprintf("Instance %s rejected its API key", name)
	case model.AlertKindWorkflowError:
		return fmt.Sprintf("Workflow failed on %s", name)
	default:
		return name
	}
}

func colorByKind(kind model.AlertKind) string {
	switch kind {
	case model.AlertKindOnline:
		return "#36a64f" // green
	case model.AlertKindOffline, model.AlertKindWorkflowError:
		return "#dc3545" // red
	case model.AlertKindInvalidCredential:
		return "#ffc107" // yellow
	default:
		return "#17a2b8"
	}
}

func emojiByKind(kind model.AlertKind) string {
	switch kind {
	case model.AlertKindOnline:
		return "✅"
	case model.AlertKindInvalidCredential:
		return "🔑"
	default:
		return "🔥"
	}
}
