// Remote n8n instance REST client
// Stateless: every call receives the instance base URL and the decrypted API key.
//
// Endpoints:
//   - GET /api/v1/users: lightweight authenticated probe
//   - GET /: editor HTML, scraped for the running version
//   - GET /api/v1/workflows: workflow listing
//   - GET /api/v1/executions: recent and failed executions
//
// Response shapes differ across n8n releases, so bodies are decoded into
// generic maps and read field by field.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/controla/backend/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	apiKeyHeader = "X-N8N-API-KEY"

	// MaxPageSize is the largest page the executions endpoint serves.
	MaxPageSize = 250

	maxBodyBytes = 8 << 20

	defaultErrorMessage   = "Execution failed"
	unknownWorkflowName   = "Unknown Workflow"
	unknownWorkflowID     = "unknown"
	workflowPlaceholderFn = "Workflow %s"
)

// SystemInfo - result of a single probe
type SystemInfo struct {
	Status  model.InstanceStatus
	Version string
}

// StatusError - non-2xx response from a remote instance
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned status %d for %s", e.Code, e.URL)
}

type N8nClient struct {
	httpClient *http.Client
	now        func() time.Time
}

func NewN8nClient(httpClient *http.Client) *N8nClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &N8nClient{
		httpClient: httpClient,
		now:        time.Now,
	}
}

// ClassifyStatus probes an instance and reports reachability and auth health.
// A missing key is offline without touching the network. Version discovery
// never changes the status.
func (c *N8nClient) ClassifyStatus(ctx context.Context, baseURL, apiKey string) SystemInfo {
	if strings.TrimSpace(baseURL) == "" || apiKey == "" {
		return SystemInfo{Status: model.StatusOffline, Version: model.UnknownVersion}
	}

	var body map[string]any
	err := c.getJSON(ctx, joinURL(baseURL, "/api/v1/users", nil), apiKey, &body)
	if err != nil {
		return SystemInfo{Status: classifyError(err), Version: model.UnknownVersion}
	}

	return SystemInfo{Status: model.StatusOnline, Version: c.fetchVersion(ctx, baseURL)}
}

func classifyError(err error) model.InstanceStatus {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden {
			return model.StatusAuthError
		}
		return model.StatusError
	}
	if isNetworkError(err) {
		return model.StatusOffline
	}
	return model.StatusError
}

// isNetworkError reports unreachable hosts, refused connections, DNS failures
// and timeouts. Malformed URLs and protocol errors are not network errors.
func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		err = urlErr.Err
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// fetchVersion scrapes the editor page. Any failure is "unknown".
func (c *N8nClient) fetchVersion(ctx context.Context, baseURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(baseURL, "/", nil), nil)
	if err != nil {
		return model.UnknownVersion
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.UnknownVersion
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.UnknownVersion
	}
	html, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.UnknownVersion
	}
	return ExtractVersion(string(html))
}

// FetchWorkflows lists workflows annotated with their latest run and latest
// failed run. Failing to load executions only drops the annotations.
func (c *N8nClient) FetchWorkflows(ctx context.Context, baseURL, apiKey string) ([]model.WorkflowSummary, error) {
	if strings.TrimSpace(baseURL) == "" || apiKey == "" {
		return []model.WorkflowSummary{}, nil
	}

	var listing map[string]any
	if err := c.getJSON(ctx, joinURL(baseURL, "/api/v1/workflows", nil), apiKey, &listing); err != nil {
		return nil, fmt.Errorf("failed to fetch workflows: %w", err)
	}

	workflows := make([]model.WorkflowSummary, 0)
	for _, item := range dataItems(listing) {
		active, _ := item["active"].(bool)
		workflows = append(workflows, model.WorkflowSummary{
			ID:     stringField(item, "id"),
			Name:   stringField(item, "name"),
			Active: active,
		})
	}

	query := url.Values{"limit": {strconv.Itoa(MaxPageSize)}}
	var executions map[string]any
	if err := c.getJSON(ctx, joinURL(baseURL, "/api/v1/executions", query), apiKey, &executions); err != nil {
		log.Warn().Err(err).Str("base_url", baseURL).Msg("Failed to fetch executions for workflow stats")
	} else {
		annotateRuns(workflows, dataItems(executions))
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return strings.ToLower(workflows[i].Name) < strings.ToLower(workflows[j].Name)
	})
	return workflows, nil
}

func annotateRuns(workflows []model.WorkflowSummary, executions []map[string]any) {
	lastRuns := make(map[string]time.Time)
	lastErrors := make(map[string]time.Time)

	for _, exec := range executions {
		wfID := stringField(exec, "workflowId")
		startedAt, ok := parseTime(stringField(exec, "startedAt"))
		if wfID == "" || !ok {
			continue
		}
		if prev, seen := lastRuns[wfID]; !seen || startedAt.After(prev) {
			lastRuns[wfID] = startedAt
		}
		status := strings.ToLower(stringField(exec, "status"))
		if status == "error" || status == "crashed" {
			if prev, seen := lastErrors[wfID]; !seen || startedAt.After(prev) {
				lastErrors[wfID] = startedAt
			}
		}
	}

	for i := range workflows {
		if t, ok := lastRuns[workflows[i].ID]; ok {
			workflows[i].LastRunAt = &t
		}
		if t, ok := lastErrors[workflows[i].ID]; ok {
			workflows[i].LastErrorAt = &t
		}
	}
}

// FetchFailedExecutions returns failed executions, newest page first, capped
// at MaxPageSize. When since is set only executions started strictly after it
// are kept; the remote time filter is not trusted. Any failure yields an
// empty list.
func (c *N8nClient) FetchFailedExecutions(ctx context.Context, baseURL, apiKey string, limit int, since *time.Time) []model.NormalizedEvent {
	if strings.TrimSpace(baseURL) == "" || apiKey == "" {
		return []model.NormalizedEvent{}
	}

	effective := limit
	if effective <= 0 || effective > MaxPageSize {
		effective = MaxPageSize
	}

	query := url.Values{
		"status":      {"error"},
		"includeData": {"true"},
		"limit":       {strconv.Itoa(effective)},
	}
	var body map[string]any
	if err := c.getJSON(ctx, joinURL(baseURL, "/api/v1/executions", query), apiKey, &body); err != nil {
		log.Warn().Err(err).Str("base_url", baseURL).Msg("Failed to fetch failed executions")
		return []model.NormalizedEvent{}
	}

	events := make([]model.NormalizedEvent, 0)
	for _, item := range dataItems(body) {
		event := c.normalizeExecution(item)
		if since != nil && !event.OccurredAt.After(*since) {
			continue
		}
		events = append(events, event)
		if len(events) == effective {
			break
		}
	}
	return events
}

func (c *N8nClient) normalizeExecution(data map[string]any) model.NormalizedEvent {
	id := stringField(data, "id")

	occurredAt, ok := parseTime(stringField(data, "startedAt"))
	if !ok {
		occurredAt = c.now()
	}

	workflowID := stringField(data, "workflowId")
	message := errorMessage(data)
	if message == "" {
		message = defaultErrorMessage
		log.Debug().Str("execution_id", id).Msg("Could not extract error message for execution")
	}
	if workflowID == "" {
		workflowID = unknownWorkflowID
	}

	return model.NormalizedEvent{
		ID:         id,
		EventType:  model.EventTypeWorkflowError,
		Severity:   model.SeverityError,
		OccurredAt: occurredAt,
		Payload: map[string]string{
			model.PayloadWorkflowID:   workflowID,
			model.PayloadWorkflowName: workflowName(data),
			model.PayloadErrorMessage: message,
			model.PayloadExecutionID:  id,
		},
	}
}

// workflowName prefers the embedded snapshot, then the denormalized field,
// then a placeholder built from the id.
func workflowName(data map[string]any) string {
	if snapshot, ok := data["workflowData"].(map[string]any); ok {
		if name := stringField(snapshot, "name"); name != "" {
			return name
		}
	}
	if name := stringField(data, "workflowName"); name != "" {
		return name
	}
	if id := stringField(data, "workflowId"); id != "" {
		return fmt.Sprintf(workflowPlaceholderFn, id)
	}
	return unknownWorkflowName
}

func errorMessage(data map[string]any) string {
	if resultData, ok := data["resultData"].(map[string]any); ok {
		if msg := messageFromResultData(resultData); msg != "" {
			return msg
		}
	}
	if inner, ok := data["data"].(map[string]any); ok {
		if resultData, ok := inner["resultData"].(map[string]any); ok {
			if msg := messageFromResultData(resultData); msg != "" {
				return msg
			}
		}
	}
	return stringField(data, "message")
}

func messageFromResultData(resultData map[string]any) string {
	switch errVal := resultData["error"].(type) {
	case map[string]any:
		if msg := stringField(errVal, "message"); msg != "" {
			return msg
		}
	case string:
		if errVal != "" {
			return errVal
		}
	}
	return stringField(resultData, "message")
}

func (c *N8nClient) getJSON(ctx context.Context, rawURL, apiKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}
	return nil
}

func joinURL(baseURL, path string, query url.Values) string {
	out := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	if len(query) > 0 {
		out += "?" + query.Encode()
	}
	return out
}

func dataItems(body map[string]any) []map[string]any {
	raw, ok := body["data"].([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, item)
		}
	}
	return items
}

// stringField reads a field that may be encoded as a string or a number.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func parseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
