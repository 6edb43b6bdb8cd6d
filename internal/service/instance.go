// Instance health engine.
//
// UpdateStatus is the single writer of status, version, last-seen and the
// error-scan watermark. Flow per call:
//  1. reload the record under the per-instance lock
//  2. open the stored credential (empty -> locked, no network)
//  3. classify via the probe client; auth failures persist as error and
//     always raise an invalid-credential alert
//  4. raise offline/online alerts on real edges only
//  5. online: stamp last-seen and scan failed executions since the watermark
//  6. persist

package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/controla/backend/internal/client"
	"github.com/controla/backend/internal/db"
	"github.com/controla/backend/internal/model"
	"github.com/controla/backend/internal/tenant"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultEventLimit is used when a caller asks for failed events without a limit.
	DefaultEventLimit = 50

	errorScanLimit     = 50
	errorScanBootstrap = 10 * time.Minute
	externalIDPrefix   = "inst_"
)

type instanceRepo interface {
	FindAllInstances(ctx context.Context) ([]model.Instance, error)
	FindInstancesByTenant(ctx context.Context, tenantID string) ([]model.Instance, error)
	FindInstanceByExternalID(ctx context.Context, tenantID, externalID string) (*model.Instance, error)
	InsertInstance(ctx context.Context, inst *model.Instance) error
	SaveInstance(ctx context.Context, inst *model.Instance) error
	DeleteInstance(ctx context.Context, tenantID, externalID string) error
	CountInstancesByTenant(ctx context.Context, tenantID string) (int, error)
}

type probeClient interface {
	ClassifyStatus(ctx context.Context, baseURL, apiKey string) client.SystemInfo
	FetchWorkflows(ctx context.Context, baseURL, apiKey string) ([]model.WorkflowSummary, error)
	FetchFailedExecutions(ctx context.Context, baseURL, apiKey string, limit int, since *time.Time) []model.NormalizedEvent
}

type versionSource interface {
	Latest(ctx context.Context) string
}

type credentialVault interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (plaintext string, needsReseal bool)
}

type InstanceService struct {
	repo     instanceRepo
	probe    probeClient
	versions versionSource
	vault    credentialVault
	alerts   AlertHandler
	license  License
	metrics  *ProbeMetrics
	newID    func() string

	locks *keyedMutex
	now   func() time.Time
}

func NewInstanceService(
	repo instanceRepo,
	probe probeClient,
	versions versionSource,
	vault credentialVault,
	alerts AlertHandler,
	license License,
	metrics *ProbeMetrics,
) *InstanceService {
	return &InstanceService{
		repo:     repo,
		probe:    probe,
		versions: versions,
		vault:    vault,
		alerts:   alerts,
		license:  license,
		metrics:  metrics,
		locks:    newKeyedMutex(),
		newID:    newExternalID,
		now:      time.Now,
	}
}

// AllInstances returns every instance across tenants.
func (s *InstanceService) AllInstances(ctx context.Context) ([]model.Instance, error) {
	return s.repo.FindAllInstances(ctx)
}

// UpdateStatus refreshes inst in place and persists it. Probe failures never
// surface as errors; only a vanished record or a failed save do.
func (s *InstanceService) UpdateStatus(ctx context.Context, inst *model.Instance) error {
	unlock := s.locks.Lock(inst.ExternalID)
	defer unlock()

	current, err := s.repo.FindInstanceByExternalID(ctx, inst.TenantID, inst.ExternalID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to reload instance %s: %w", inst.ExternalID, err)
	}
	*inst = *current

	return s.refreshAndSave(ctx, inst)
}

// refreshAndSave must run under the instance lock. Workflow alerts go out
// before the advanced watermark is stored, so a failed save means the next
// sweep reports the same failures again rather than dropping them.
func (s *InstanceService) refreshAndSave(ctx context.Context, inst *model.Instance) error {
	s.refreshStatus(ctx, inst)

	if err := s.repo.SaveInstance(ctx, inst); err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *InstanceService) refreshStatus(ctx context.Context, inst *model.Instance) {
	previous := inst.Status
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("instance", inst.ExternalID).
				Interface("panic", r).
				Msg("Status update panicked, marking instance as error")
			inst.Status = model.StatusError
		}
		if inst.Status != previous {
			s.metrics.RecordTransition(previous, inst.Status)
			log.Info().
				Str("instance", inst.ExternalID).
				Str("tenant", inst.TenantID).
				Str("from", string(previous)).
				Str("to", string(inst.Status)).
				Msg("Instance status changed")
		}
	}()

	apiKey, reseal := s.vault.Open(inst.APIKey)
	if apiKey == "" {
		inst.Status = model.StatusLocked
		return
	}
	if reseal {
		s.resealCredential(inst, apiKey)
	}

	started := time.Now()
	info := s.probe.ClassifyStatus(ctx, inst.BaseURL, apiKey)
	s.metrics.ObserveProbe(info.Status, time.Since(started))

	next := info.Status
	if info.Version != "" && info.Version != model.UnknownVersion {
		inst.Version = info.Version
	}

	if next == model.StatusAuthError {
		inst.Status = model.StatusError
		s.dispatch(inst.ExternalID, func() { s.alerts.OnInvalidCredential(ctx, *inst) })
	} else {
		inst.Status = next
	}

	switch {
	case previous == model.StatusOnline && inst.Status == model.StatusOffline:
		s.dispatch(inst.ExternalID, func() { s.alerts.OnOffline(ctx, *inst) })
	case (previous == model.StatusOffline || previous == model.StatusError) && inst.Status == model.StatusOnline:
		s.dispatch(inst.ExternalID, func() { s.alerts.OnOnline(ctx, *inst) })
	}

	if inst.Status == model.StatusOnline {
		now := s.now()
		inst.LastSeenAt = &now
		s.checkWorkflowErrors(ctx, inst, apiKey, now)
	}
}

// checkWorkflowErrors alerts on executions that failed after the watermark,
// then moves the watermark to now. The watermark advances even when the
// fetch failed, so a failed window is not retried.
func (s *InstanceService) checkWorkflowErrors(ctx context.Context, inst *model.Instance, apiKey string, now time.Time) {
	since := now.Add(-errorScanBootstrap)
	if inst.LastErrorCheck != nil {
		since = *inst.LastErrorCheck
	}

	events := s.probe.FetchFailedExecutions(ctx, inst.BaseURL, apiKey, errorScanLimit, &since)
	for _, event := range events {
		workflow, message := event.WorkflowName(), event.ErrorMessage()
		s.dispatch(inst.ExternalID, func() { s.alerts.OnWorkflowError(ctx, *inst, workflow, message) })
	}
	if len(events) > 0 {
		log.Debug().Str("instance", inst.ExternalID).Int("count", len(events)).Msg("Workflow failures found")
	}

	if inst.LastErrorCheck == nil || now.After(*inst.LastErrorCheck) {
		inst.LastErrorCheck = &now
	}
}

func (s *InstanceService) resealCredential(inst *model.Instance, apiKey string) {
	sealed, err := s.vault.Seal(apiKey)
	if err != nil {
		log.Warn().Err(err).Str("instance", inst.ExternalID).Msg("Failed to re-seal credential")
		return
	}
	inst.APIKey = sealed
	log.Info().Str("instance", inst.ExternalID).Msg("Credential migrated to sealed format")
}

// dispatch isolates alert side effects from the status machine.
func (s *InstanceService) dispatch(externalID string, fn func()) {
	if s.alerts == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("instance", externalID).Interface("panic", r).Msg("Alert dispatch panicked")
		}
	}()
	fn()
}

// GetErrorPatterns aggregates failed executions inside the range bucket.
func (s *InstanceService) GetErrorPatterns(ctx context.Context, externalID, rangeKey string) ([]model.ErrorPattern, error) {
	inst, err := s.find(ctx, externalID)
	if err != nil {
		return nil, err
	}
	apiKey, _ := s.vault.Open(inst.APIKey)
	if apiKey == "" {
		return []model.ErrorPattern{}, nil
	}

	since := rangeCutoff(s.now(), rangeKey)
	events := s.probe.FetchFailedExecutions(ctx, inst.BaseURL, apiKey, client.MaxPageSize, &since)
	return AggregateErrorPatterns(events), nil
}

// GetFailedEvents returns the most recent failed executions, newest first.
func (s *InstanceService) GetFailedEvents(ctx context.Context, externalID string, limit int) ([]model.NormalizedEvent, error) {
	inst, err := s.find(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	apiKey, _ := s.vault.Open(inst.APIKey)
	if apiKey == "" {
		return []model.NormalizedEvent{}, nil
	}
	return s.probe.FetchFailedExecutions(ctx, inst.BaseURL, apiKey, limit, nil), nil
}

func (s *InstanceService) GetWorkflows(ctx context.Context, externalID string) ([]model.WorkflowSummary, error) {
	inst, err := s.find(ctx, externalID)
	if err != nil {
		return nil, err
	}
	apiKey, _ := s.vault.Open(inst.APIKey)
	if apiKey == "" {
		return []model.WorkflowSummary{}, nil
	}
	return s.probe.FetchWorkflows(ctx, inst.BaseURL, apiKey)
}

// ListInstances refreshes and returns every instance of the current tenant.
func (s *InstanceService) ListInstances(ctx context.Context) ([]model.InstanceSummary, error) {
	tenantID := tenant.FromContext(ctx)
	instances, err := s.repo.FindInstancesByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	latest := s.versions.Latest(ctx)
	summaries := make([]model.InstanceSummary, 0, len(instances))
	for i := range instances {
		inst := &instances[i]
		if err := s.UpdateStatus(ctx, inst); err != nil {
			log.Warn().Err(err).Str("instance", inst.ExternalID).Msg("Failed to refresh instance status")
		}
		summaries = append(summaries, toSummary(*inst, latest))
	}
	return summaries, nil
}

func (s *InstanceService) GetInstance(ctx context.Context, externalID string) (*model.InstanceDetail, error) {
	inst, err := s.find(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateStatus(ctx, inst); err != nil {
		return nil, err
	}
	detail := toDetail(*inst, s.versions.Latest(ctx))
	return &detail, nil
}

// CreateInstance registers a new instance for the current tenant, enforcing
// the license ceiling. The instance starts unknown until its first probe.
func (s *InstanceService) CreateInstance(ctx context.Context, req model.InstanceRequest) (*model.InstanceDetail, error) {
	name := strings.TrimSpace(req.Name)
	baseURL, err := normalizeBaseURL(req.BaseURL)
	if err != nil || name == "" {
		return nil, ErrInvalidInput
	}

	tenantID := tenant.FromContext(ctx)
	if ceiling := s.license.MaxInstances(); ceiling >= 0 {
		count, err := s.repo.CountInstancesByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if count >= ceiling {
			return nil, ErrInstanceLimit
		}
	}

	sealed, err := s.sealOptional(req.APIKey)
	if err != nil {
		return nil, err
	}

	inst := &model.Instance{
		ExternalID: s.newID(),
		TenantID:   tenantID,
		Name:       name,
		BaseURL:    baseURL,
		APIKey:     sealed,
		Status:     model.StatusUnknown,
		Version:    model.UnknownVersion,
	}
	if err := s.repo.InsertInstance(ctx, inst); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	log.Info().Str("instance", inst.ExternalID).Str("tenant", tenantID).Msg("Instance registered")

	detail := toDetail(*inst, s.versions.Latest(ctx))
	return &detail, nil
}

// UpdateInstance applies the non-empty fields of req and refreshes status.
// The edit and the refresh share one hold of the instance lock, so a sweep
// cannot commit a status in between that the edit would overwrite.
func (s *InstanceService) UpdateInstance(ctx context.Context, externalID string, req model.InstanceRequest) (*model.InstanceDetail, error) {
	unlock := s.locks.Lock(externalID)
	defer unlock()

	inst, err := s.find(ctx, externalID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		inst.Name = name
	}
	if strings.TrimSpace(req.BaseURL) != "" {
		baseURL, err := normalizeBaseURL(req.BaseURL)
		if err != nil {
			return nil, ErrInvalidInput
		}
		inst.BaseURL = baseURL
	}
	if strings.TrimSpace(req.APIKey) != "" {
		sealed, err := s.sealOptional(req.APIKey)
		if err != nil {
			return nil, err
		}
		inst.APIKey = sealed
	}

	if err := s.refreshAndSave(ctx, inst); err != nil {
		return nil, err
	}
	detail := toDetail(*inst, s.versions.Latest(ctx))
	return &detail, nil
}

// DeleteInstance waits for any in-flight refresh of the instance, so a
// sweep never writes back a record its owner has just removed.
func (s *InstanceService) DeleteInstance(ctx context.Context, externalID string) error {
	unlock := s.locks.Lock(externalID)
	defer unlock()

	err := s.repo.DeleteInstance(ctx, tenant.FromContext(ctx), externalID)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

// find loads an instance owned by the current tenant.
func (s *InstanceService) find(ctx context.Context, externalID string) (*model.Instance, error) {
	inst, err := s.repo.FindInstanceByExternalID(ctx, tenant.FromContext(ctx), externalID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inst, nil
}

func (s *InstanceService) sealOptional(apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", nil
	}
	sealed, err := s.vault.Seal(apiKey)
	if err != nil {
		return "", fmt.Errorf("failed to seal credential: %w", err)
	}
	return sealed, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("unsupported base url %q", raw)
	}
	return raw, nil
}

func newExternalID() string {
	return externalIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func toSummary(inst model.Instance, latest string) model.InstanceSummary {
	return model.InstanceSummary{
		ID:            inst.ExternalID,
		Name:          inst.Name,
		BaseURL:       inst.BaseURL,
		Status:        string(inst.Status),
		Version:       inst.Version,
		LatestVersion: latest,
		LastSeenAt:    inst.LastSeenAt,
	}
}

func toDetail(inst model.Instance, latest string) model.InstanceDetail {
	return model.InstanceDetail{
		InstanceSummary: toSummary(inst, latest),
		CreatedAt:       inst.CreatedAt,
	}
}
