// Slack Web API client used by the alert handler.
//
// Environment:
//   - SLACK_BOT_TOKEN: bot token (xoxb-...)
//   - SLACK_CHANNEL_ID: default channel (C...)
//   - FRONTEND_URL: dashboard base URL for instance links
//
// A bot token is used instead of an incoming webhook because chat.postMessage
// returns the message ts, which lets recovery notices reply in the outage thread.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/controla/backend/internal/config"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

type SlackClient struct {
	botToken    string
	channelID   string
	frontendURL string
	apiURL      string
	httpClient  *http.Client

	// instance external id -> ts of the open outage message
	threadMap sync.Map
}

type SlackMessage struct {
	Channel     string            `json:"channel"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
	ThreadTS    string            `json:"thread_ts,omitempty"`
}

type SlackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

func NewSlackClient(cfg config.SlackConfig) *SlackClient {
	return &SlackClient{
		botToken:    cfg.BotToken,
		channelID:   cfg.ChannelID,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		apiURL:      slackPostMessageURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsConfigured reports whether a token and a default channel are both set.
func (c *SlackClient) IsConfigured() bool {
	return c.botToken != "" && c.channelID != ""
}

func (c *SlackClient) send(ctx context.Context, msg SlackMessage) (*SlackResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var slackResp SlackResponse
	if err := json.Unmarshal(body, &slackResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !slackResp.OK {
		return nil, fmt.Errorf("slack API error: %s", slackResp.Error)
	}
	return &slackResp, nil
}

func (c *SlackClient) StoreThreadTS(key, threadTS string) {
	c.threadMap.Store(key, threadTS)
}

func (c *SlackClient) GetThreadTS(key string) (string, bool) {
	val, ok := c.threadMap.Load(key)
	if !ok {
		return "", false
	}
	return val.(string), true
}

func (c *SlackClient) DeleteThreadTS(key string) {
	c.threadMap.Delete(key)
}
