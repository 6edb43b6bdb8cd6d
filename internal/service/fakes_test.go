package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/controla/backend/internal/client"
	"github.com/controla/backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type memoryInstanceRepo struct {
	mu        sync.Mutex
	instances map[string]model.Instance
	order     []string
	nextID    int64
	saveErr   error

	// afterFind runs after every lookup, outside the repo mutex
	afterFind func()
}

func newMemoryInstanceRepo(instances ...model.Instance) *memoryInstanceRepo {
	r := &memoryInstanceRepo{instances: make(map[string]model.Instance)}
	for i := range instances {
		_ = r.InsertInstance(context.Background(), &instances[i])
	}
	return r
}

func (r *memoryInstanceRepo) FindAllInstances(ctx context.Context) ([]model.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Instance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.instances[id])
	}
	return out, nil
}

func (r *memoryInstanceRepo) FindInstancesByTenant(ctx context.Context, tenantID string) ([]model.Instance, error) {
	all, _ := r.FindAllInstances(ctx)
	out := []model.Instance{}
	for _, inst := range all {
		if inst.TenantID == tenantID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (r *memoryInstanceRepo) FindInstanceByExternalID(ctx context.Context, tenantID, externalID string) (*model.Instance, error) {
	r.mu.Lock()
	inst, ok := r.instances[externalID]
	hook := r.afterFind
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok || inst.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	return &inst, nil
}

func (r *memoryInstanceRepo) InsertInstance(ctx context.Context, inst *model.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[inst.ExternalID]; ok {
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	r.nextID++
	inst.ID = r.nextID
	r.order = append(r.order, inst.ExternalID)
	r.instances[inst.ExternalID] = *inst
	return nil
}

func (r *memoryInstanceRepo) SaveInstance(ctx context.Context, inst *model.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	existing, ok := r.instances[inst.ExternalID]
	if !ok || existing.TenantID != inst.TenantID {
		return fmt.Errorf("failed to save instance %s: %w", inst.ExternalID, pgx.ErrNoRows)
	}
	inst.ID = existing.ID
	r.instances[inst.ExternalID] = *inst
	return nil
}

func (r *memoryInstanceRepo) DeleteInstance(ctx context.Context, tenantID, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[externalID]
	if !ok || inst.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	delete(r.instances, externalID)
	for i, id := range r.order {
		if id == externalID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryInstanceRepo) CountInstancesByTenant(ctx context.Context, tenantID string) (int, error) {
	list, _ := r.FindInstancesByTenant(ctx, tenantID)
	return len(list), nil
}

func (r *memoryInstanceRepo) get(externalID string) model.Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instances[externalID]
}

type fetchCall struct {
	baseURL string
	limit   int
	since   *time.Time
}

type fakeProbe struct {
	mu            sync.Mutex
	results       map[string]client.SystemInfo
	panicFor      map[string]bool
	events        []model.NormalizedEvent
	workflows     []model.WorkflowSummary
	failFetch     bool
	classifyCalls int
	lastAPIKey    string
	fetches       []fetchCall

	// onClassify runs while a status probe is in flight
	onClassify func()
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{
		results:  make(map[string]client.SystemInfo),
		panicFor: make(map[string]bool),
	}
}

func (p *fakeProbe) set(baseURL string, status model.InstanceStatus, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[baseURL] = client.SystemInfo{Status: status, Version: version}
}

func (p *fakeProbe) ClassifyStatus(ctx context.Context, baseURL, apiKey string) client.SystemInfo {
	p.mu.Lock()
	p.classifyCalls++
	p.lastAPIKey = apiKey
	shouldPanic := p.panicFor[baseURL]
	info, ok := p.results[baseURL]
	hook := p.onClassify
	p.mu.Unlock()

	if hook != nil {
		hook()
	}

	if shouldPanic {
		panic("probe exploded")
	}
	if !ok {
		return client.SystemInfo{Status: model.StatusOffline, Version: model.UnknownVersion}
	}
	return info
}

func (p *fakeProbe) FetchWorkflows(ctx context.Context, baseURL, apiKey string) ([]model.WorkflowSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workflows, nil
}

func (p *fakeProbe) FetchFailedExecutions(ctx context.Context, baseURL, apiKey string, limit int, since *time.Time) []model.NormalizedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sinceCopy *time.Time
	if since != nil {
		t := *since
		sinceCopy = &t
	}
	p.fetches = append(p.fetches, fetchCall{baseURL: baseURL, limit: limit, since: sinceCopy})
	out := []model.NormalizedEvent{}
	if p.failFetch {
		return out
	}
	for _, e := range p.events {
		if since == nil || e.OccurredAt.After(*since) {
			out = append(out, e)
		}
	}
	return out
}

type staticVersions string

func (v staticVersions) Latest(ctx context.Context) string { return string(v) }

type recordedAlert struct {
	kind     model.AlertKind
	instance model.Instance
	workflow string
	message  string
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []recordedAlert
}

func (r *recordingAlerts) add(a recordedAlert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func (r *recordingAlerts) OnInvalidCredential(ctx context.Context, inst model.Instance) {
	r.add(recordedAlert{kind: model.AlertKindInvalidCredential, instance: inst})
}

func (r *recordingAlerts) OnOffline(ctx context.Context, inst model.Instance) {
	r.add(recordedAlert{kind: model.AlertKindOffline, instance: inst})
}

func (r *recordingAlerts) OnOnline(ctx context.Context, inst model.Instance) {
	r.add(recordedAlert{kind: model.AlertKindOnline, instance: inst})
}

func (r *recordingAlerts) OnWorkflowError(ctx context.Context, inst model.Instance, workflowName, message string) {
	r.add(recordedAlert{kind: model.AlertKindWorkflowError, instance: inst, workflow: workflowName, message: message})
}

func (r *recordingAlerts) kinds() []model.AlertKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AlertKind, 0, len(r.alerts))
	for _, a := range r.alerts {
		out = append(out, a.kind)
	}
	return out
}

func (r *recordingAlerts) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = nil
}

type fakeLicense struct {
	max      int
	features map[string]bool
}

func (l fakeLicense) MaxInstances() int                { return l.max }
func (l fakeLicense) IsFeatureEnabled(key string) bool { return l.features[key] }
func (l fakeLicense) Info() model.LicenseInfo {
	return model.LicenseInfo{MaxInstances: l.max, Features: l.features}
}

func unlimitedLicense() fakeLicense {
	return fakeLicense{
		max: model.UnlimitedInstances,
		features: map[string]bool{
			model.FeatureWorkflowErrorAlert: true,
			model.FeatureInvalidAPIKeyAlert: true,
		},
	}
}

func workflowEvent(message, workflow string, at time.Time) model.NormalizedEvent {
	return model.NormalizedEvent{
		ID:         workflow + "-" + at.Format(time.RFC3339),
		EventType:  model.EventTypeWorkflowError,
		Severity:   model.SeverityError,
		OccurredAt: at,
		Payload: map[string]string{
			model.PayloadWorkflowName: workflow,
			model.PayloadErrorMessage: message,
		},
	}
}
