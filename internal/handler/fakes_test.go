package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/controla/backend/internal/model"
	"github.com/controla/backend/internal/service"
	"github.com/controla/backend/internal/tenant"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTokenParser struct {
	users map[string]*model.AuthUser
}

func (p *fakeTokenParser) ParseAccessToken(token string) (*model.AuthUser, error) {
	if user, ok := p.users[token]; ok {
		return user, nil
	}
	return nil, service.ErrUnauthorized
}

func newTokenParser() *fakeTokenParser {
	return &fakeTokenParser{users: map[string]*model.AuthUser{
		"token-a": {ID: 1, LoginID: "alice", TenantID: "tenant-a"},
		"token-b": {ID: 2, LoginID: "bob", TenantID: "tenant-b"},
	}}
}

type fakeInstanceService struct {
	instances map[string]map[string]*model.InstanceDetail // tenant -> id -> detail
	createErr error

	lastLimit int
	lastRange string
	events    []model.NormalizedEvent
	patterns  []model.ErrorPattern
	workflows []model.WorkflowSummary
}

func newFakeInstanceService() *fakeInstanceService {
	return &fakeInstanceService{instances: map[string]map[string]*model.InstanceDetail{}}
}

func (f *fakeInstanceService) put(tenantID string, detail *model.InstanceDetail) {
	if f.instances[tenantID] == nil {
		f.instances[tenantID] = map[string]*model.InstanceDetail{}
	}
	f.instances[tenantID][detail.ID] = detail
}

func (f *fakeInstanceService) lookup(ctx context.Context, id string) (*model.InstanceDetail, error) {
	detail, ok := f.instances[tenant.FromContext(ctx)][id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return detail, nil
}

func (f *fakeInstanceService) ListInstances(ctx context.Context) ([]model.InstanceSummary, error) {
	var out []model.InstanceSummary
	for _, detail := range f.instances[tenant.FromContext(ctx)] {
		out = append(out, detail.InstanceSummary)
	}
	return out, nil
}

func (f *fakeInstanceService) GetInstance(ctx context.Context, id string) (*model.InstanceDetail, error) {
	return f.lookup(ctx, id)
}

func (f *fakeInstanceService) CreateInstance(ctx context.Context, req model.InstanceRequest) (*model.InstanceDetail, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, service.ErrInvalidInput
	}
	detail := &model.InstanceDetail{InstanceSummary: model.InstanceSummary{
		ID:      fmt.Sprintf("inst_%08d", len(f.instances[tenant.FromContext(ctx)])+1),
		Name:    req.Name,
		BaseURL: req.BaseURL,
		Status:  string(model.StatusUnknown),
		Version: model.UnknownVersion,
	}}
	f.put(tenant.FromContext(ctx), detail)
	return detail, nil
}

func (f *fakeInstanceService) UpdateInstance(ctx context.Context, id string, req model.InstanceRequest) (*model.InstanceDetail, error) {
	detail, err := f.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Name = req.Name
	return detail, nil
}

func (f *fakeInstanceService) DeleteInstance(ctx context.Context, id string) error {
	if _, err := f.lookup(ctx, id); err != nil {
		return err
	}
	delete(f.instances[tenant.FromContext(ctx)], id)
	return nil
}

func (f *fakeInstanceService) GetWorkflows(ctx context.Context, id string) ([]model.WorkflowSummary, error) {
	if _, err := f.lookup(ctx, id); err != nil {
		return nil, err
	}
	return f.workflows, nil
}

func (f *fakeInstanceService) GetFailedEvents(ctx context.Context, id string, limit int) ([]model.NormalizedEvent, error) {
	if _, err := f.lookup(ctx, id); err != nil {
		return nil, err
	}
	f.lastLimit = limit
	return f.events, nil
}

func (f *fakeInstanceService) GetErrorPatterns(ctx context.Context, id, rangeKey string) ([]model.ErrorPattern, error) {
	if _, err := f.lookup(ctx, id); err != nil {
		return nil, err
	}
	f.lastRange = rangeKey
	return f.patterns, nil
}

type fakeAlertSettings struct {
	stored   model.AlertSettingsPayload
	licensed bool
}

func (f *fakeAlertSettings) GetSettings(context.Context) (model.AlertSettingsPayload, error) {
	return f.stored, nil
}

func (f *fakeAlertSettings) UpdateSettings(_ context.Context, payload model.AlertSettingsPayload) (model.AlertSettingsPayload, error) {
	if payload.Events[model.AlertEventWorkflowError] && !f.licensed {
		return model.AlertSettingsPayload{}, service.ErrFeatureNotLicensed
	}
	f.stored = payload
	return payload, nil
}

type fakeWebhookService struct {
	configs map[int]*model.WebhookConfig
	failAll error
}

func (f *fakeWebhookService) ListWebhookConfigs(context.Context) ([]model.WebhookConfig, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []model.WebhookConfig
	for _, cfg := range f.configs {
		out = append(out, *cfg)
	}
	return out, nil
}

func (f *fakeWebhookService) GetWebhookConfig(_ context.Context, id int) (*model.WebhookConfig, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return cfg, nil
}

func (f *fakeWebhookService) CreateWebhookConfig(_ context.Context, req model.WebhookConfigRequest) (int, error) {
	if !strings.HasPrefix(req.URL, "http") {
		return 0, service.ErrInvalidInput
	}
	id := len(f.configs) + 1
	f.configs[id] = &model.WebhookConfig{ID: id, URL: req.URL, Method: req.Method}
	return id, nil
}

func (f *fakeWebhookService) UpdateWebhookConfig(_ context.Context, id int, req model.WebhookConfigRequest) error {
	cfg, ok := f.configs[id]
	if !ok {
		return service.ErrNotFound
	}
	cfg.URL = req.URL
	return nil
}

func (f *fakeWebhookService) DeleteWebhookConfig(_ context.Context, id int) error {
	if _, ok := f.configs[id]; !ok {
		return service.ErrNotFound
	}
	delete(f.configs, id)
	return nil
}

type staticLicenseInfo model.LicenseInfo

func (l staticLicenseInfo) Info() model.LicenseInfo { return model.LicenseInfo(l) }

type fakeAuthService struct{}

var errBadCredentials = errors.New("bad credentials")

func (fakeAuthService) Register(context.Context, string, string) (string, string, int64, error) {
	return "", "", 0, service.ErrForbidden
}

func (fakeAuthService) Login(_ context.Context, loginID, password string) (string, string, int64, error) {
	if loginID == "alice" && password == "secret" {
		return "token-a", "refresh-a", 900, nil
	}
	return "", "", 0, errors.Join(service.ErrUnauthorized, errBadCredentials)
}

func (fakeAuthService) Refresh(context.Context, string) (string, string, int64, error) {
	return "", "", 0, service.ErrUnauthorized
}

func (fakeAuthService) Logout(context.Context, string) error { return nil }

func (fakeAuthService) AllowSignup() bool { return false }

func (fakeAuthService) CookieConfig() service.CookieConfig {
	return service.CookieConfig{Name: "controla_refresh", Path: "/", SameSite: http.SameSiteLaxMode, MaxAge: 3600}
}

type testServer struct {
	router    *gin.Engine
	instances *fakeInstanceService
	settings  *fakeAlertSettings
	webhooks  *fakeWebhookService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		router:    gin.New(),
		instances: newFakeInstanceService(),
		settings:  &fakeAlertSettings{},
		webhooks:  &fakeWebhookService{configs: map[int]*model.WebhookConfig{}},
	}
	RegisterRoutes(ts.router, Handlers{
		Auth:          NewAuthHandler(fakeAuthService{}),
		Instances:     NewInstanceHandler(ts.instances),
		AlertSettings: NewAlertSettingsHandler(ts.settings),
		Webhooks:      NewWebhookSettingsHandler(ts.webhooks),
		License: NewLicenseHandler(staticLicenseInfo{
			Edition:      "community",
			MaxInstances: 3,
			Features:     map[string]bool{model.FeatureWorkflowErrorAlert: false},
		}),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	}, AuthMiddleware(newTokenParser()))
	return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}
