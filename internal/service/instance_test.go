package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/controla/backend/internal/model"
	"github.com/controla/backend/internal/security"
	"github.com/controla/backend/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://n8n.example.com"

type engineFixture struct {
	svc    *InstanceService
	repo   *memoryInstanceRepo
	probe  *fakeProbe
	alerts *recordingAlerts
	vault  *security.Vault
	now    time.Time
}

func newEngineFixture(t *testing.T, license License, instances ...model.Instance) *engineFixture {
	t.Helper()
	vault, err := security.NewVault("test-master-secret")
	require.NoError(t, err)

	f := &engineFixture{
		repo:   newMemoryInstanceRepo(instances...),
		probe:  newFakeProbe(),
		alerts: &recordingAlerts{},
		vault:  vault,
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewInstanceService(f.repo, f.probe, staticVersions("1.90.0"), vault, f.alerts, license, nil)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *engineFixture) seal(t *testing.T, plain string) string {
	t.Helper()
	sealed, err := f.vault.Seal(plain)
	require.NoError(t, err)
	return sealed
}

// addInstance stores an instance with a sealed credential and returns a copy.
func (f *engineFixture) addInstance(t *testing.T, externalID string, status model.InstanceStatus, apiKey string) model.Instance {
	t.Helper()
	inst := model.Instance{
		ExternalID: externalID,
		TenantID:   tenant.DefaultID,
		Name:       externalID,
		BaseURL:    testBaseURL,
		Status:     status,
		Version:    model.UnknownVersion,
	}
	if apiKey != "" {
		inst.APIKey = f.seal(t, apiKey)
	}
	require.NoError(t, f.repo.InsertInstance(context.Background(), &inst))
	return inst
}

// stillPending reports whether nothing arrived on done within a short grace
// period. A delivered result is put back for the caller.
func stillPending(done chan error) bool {
	select {
	case err := <-done:
		done <- err
		return false
	case <-time.After(50 * time.Millisecond):
		return true
	}
}

func TestUpdateStatusLockedWithoutCredential(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_locked1", model.StatusOnline, "")

	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))

	assert.Equal(t, model.StatusLocked, inst.Status)
	assert.Equal(t, model.StatusLocked, f.repo.get("inst_locked1").Status)
	assert.Zero(t, f.probe.classifyCalls)
	assert.Empty(t, f.alerts.kinds())
}

func TestUpdateStatusAlertEdges(t *testing.T) {
	tests := []struct {
		name       string
		previous   model.InstanceStatus
		probed     model.InstanceStatus
		wantAlerts []model.AlertKind
	}{
		{name: "online to offline", previous: model.StatusOnline, probed: model.StatusOffline, wantAlerts: []model.AlertKind{model.AlertKindOffline}},
		{name: "offline to online", previous: model.StatusOffline, probed: model.StatusOnline, wantAlerts: []model.AlertKind{model.AlertKindOnline}},
		{name: "error to online", previous: model.StatusError, probed: model.StatusOnline, wantAlerts: []model.AlertKind{model.AlertKindOnline}},
		{name: "online stays online", previous: model.StatusOnline, probed: model.StatusOnline},
		{name: "offline stays offline", previous: model.StatusOffline, probed: model.StatusOffline},
		{name: "unknown to online", previous: model.StatusUnknown, probed: model.StatusOnline},
		{name: "locked to online", previous: model.StatusLocked, probed: model.StatusOnline},
		{name: "online to error", previous: model.StatusOnline, probed: model.StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, unlimitedLicense())
			inst := f.addInstance(t, "inst_edge0001", tt.previous, "key")
			f.probe.set(testBaseURL, tt.probed, model.UnknownVersion)

			require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))

			assert.Equal(t, tt.probed, inst.Status)
			if tt.wantAlerts == nil {
				assert.Empty(t, f.alerts.kinds())
			} else {
				assert.Equal(t, tt.wantAlerts, f.alerts.kinds())
			}

			// a second identical poll is never an edge
			f.alerts.reset()
			require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
			assert.Empty(t, f.alerts.kinds())
		})
	}
}

func TestUpdateStatusAuthErrorAlwaysAlerts(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_auth0001", model.StatusOnline, "stale-key")
	f.probe.set(testBaseURL, model.StatusAuthError, model.UnknownVersion)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
		assert.Equal(t, model.StatusError, inst.Status)
	}

	assert.Equal(t, []model.AlertKind{
		model.AlertKindInvalidCredential,
		model.AlertKindInvalidCredential,
		model.AlertKindInvalidCredential,
	}, f.alerts.kinds())
	assert.Equal(t, model.StatusError, f.repo.get("inst_auth0001").Status)
}

func TestUpdateStatusKeepsLastKnownVersion(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_ver00001", model.StatusOnline, "key")

	f.probe.set(testBaseURL, model.StatusOnline, "1.64.0")
	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	assert.Equal(t, "1.64.0", inst.Version)

	f.probe.set(testBaseURL, model.StatusOnline, model.UnknownVersion)
	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	assert.Equal(t, "1.64.0", inst.Version)

	f.probe.set(testBaseURL, model.StatusOffline, model.UnknownVersion)
	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	assert.Equal(t, "1.64.0", inst.Version)
}

func TestUpdateStatusBootstrapsErrorScan(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_scan0001", model.StatusOnline, "key")
	f.probe.set(testBaseURL, model.StatusOnline, "1.0.0")
	f.probe.events = []model.NormalizedEvent{
		workflowEvent("boom", "Billing", f.now.Add(-5*time.Minute)),
		workflowEvent("old", "Billing", f.now.Add(-20*time.Minute)),
	}

	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))

	require.Len(t, f.probe.fetches, 1)
	assert.Equal(t, 50, f.probe.fetches[0].limit)
	require.NotNil(t, f.probe.fetches[0].since)
	assert.Equal(t, f.now.Add(-10*time.Minute), *f.probe.fetches[0].since)

	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, model.AlertKindWorkflowError, f.alerts.alerts[0].kind)
	assert.Equal(t, "Billing", f.alerts.alerts[0].workflow)
	assert.Equal(t, "boom", f.alerts.alerts[0].message)

	require.NotNil(t, inst.LastSeenAt)
	assert.Equal(t, f.now, *inst.LastSeenAt)
	require.NotNil(t, inst.LastErrorCheck)
	assert.Equal(t, f.now, *inst.LastErrorCheck)
}

func TestUpdateStatusScansFromWatermark(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_scan0002", model.StatusOnline, "key")
	f.probe.set(testBaseURL, model.StatusOnline, "1.0.0")

	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	first := f.now

	f.now = f.now.Add(time.Minute)
	f.probe.events = []model.NormalizedEvent{
		workflowEvent("seen before", "A", first.Add(-time.Second)),
		workflowEvent("new", "A", first.Add(30*time.Second)),
	}
	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))

	require.Len(t, f.probe.fetches, 2)
	assert.Equal(t, first, *f.probe.fetches[1].since)
	require.Len(t, f.alerts.alerts, 1)
	assert.Equal(t, "new", f.alerts.alerts[0].message)
	assert.Equal(t, f.now, *inst.LastErrorCheck)
}

func TestUpdateStatusAdvancesWatermarkWhenFetchFails(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_scan0003", model.StatusOnline, "key")
	old := f.now.Add(-time.Hour)
	stored := f.repo.get("inst_scan0003")
	stored.LastErrorCheck = &old
	require.NoError(t, f.repo.SaveInstance(context.Background(), &stored))

	f.probe.set(testBaseURL, model.StatusOnline, "1.0.0")
	f.probe.failFetch = true
	f.probe.events = []model.NormalizedEvent{workflowEvent("missed", "A", f.now.Add(-30*time.Minute))}

	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))

	// the failed window is skipped, not retried
	require.NotNil(t, inst.LastErrorCheck)
	assert.Equal(t, f.now, *inst.LastErrorCheck)
	assert.Empty(t, f.alerts.kinds())

	f.probe.failFetch = false
	f.now = f.now.Add(time.Minute)
	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	assert.Equal(t, f.now.Add(-time.Minute), *f.probe.fetches[1].since)
	assert.Empty(t, f.alerts.kinds())
}

func TestUpdateStatusWatermarkNeverMovesBackward(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.addInstance(t, "inst_scan0004", model.StatusOnline, "key")
	future := f.now.Add(time.Hour)
	stored := f.repo.get("inst_scan0004")
	stored.LastErrorCheck = &future
	require.NoError(t, f.repo.SaveInstance(context.Background(), &stored))
	f.probe.set(testBaseURL, model.StatusOnline, "1.0.0")

	inst := stored
	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	assert.Equal(t, future, *inst.LastErrorCheck)
}

func TestUpdateStatusSkipsScanWhenNotOnline(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_scan0005", model.StatusOnline, "key")
	f.probe.set(testBaseURL, model.StatusOffline, model.UnknownVersion)

	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))

	assert.Empty(t, f.probe.fetches)
	assert.Nil(t, inst.LastErrorCheck)
	assert.Nil(t, inst.LastSeenAt)
}

func TestUpdateStatusRecoversFromPanic(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_panic001", model.StatusOnline, "key")
	f.probe.panicFor[testBaseURL] = true

	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	assert.Equal(t, model.StatusError, inst.Status)
	assert.Equal(t, model.StatusError, f.repo.get("inst_panic001").Status)
}

func TestUpdateStatusResealsPlaintextCredential(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_plain001", model.StatusUnknown, "")
	stored := f.repo.get("inst_plain001")
	stored.APIKey = "legacy-plain-key"
	require.NoError(t, f.repo.SaveInstance(context.Background(), &stored))
	f.probe.set(testBaseURL, model.StatusOnline, "1.0.0")

	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))

	assert.Equal(t, "legacy-plain-key", f.probe.lastAPIKey)
	resealed := f.repo.get("inst_plain001").APIKey
	assert.True(t, strings.HasPrefix(resealed, "v2:"))
	plain, needsReseal := f.vault.Open(resealed)
	assert.Equal(t, "legacy-plain-key", plain)
	assert.False(t, needsReseal)
}

func TestUpdateStatusMissingInstance(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := model.Instance{ExternalID: "inst_missing1", TenantID: tenant.DefaultID}
	assert.ErrorIs(t, f.svc.UpdateStatus(context.Background(), &inst), ErrNotFound)
}

func TestUpdateStatusSaveFailure(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_save0001", model.StatusOnline, "key")
	f.repo.saveErr = errors.New("db down")

	assert.Error(t, f.svc.UpdateStatus(context.Background(), &inst))
}

func TestWorkflowAlertsRepeatWhenWatermarkSaveFails(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_save0002", model.StatusOnline, "key")
	f.probe.set(testBaseURL, model.StatusOnline, "1.0.0")
	f.probe.events = []model.NormalizedEvent{workflowEvent("boom", "Billing", f.now.Add(-time.Minute))}
	f.repo.saveErr = errors.New("db down")

	require.Error(t, f.svc.UpdateStatus(context.Background(), &inst))
	assert.Equal(t, []model.AlertKind{model.AlertKindWorkflowError}, f.alerts.kinds())
	assert.Nil(t, f.repo.get("inst_save0002").LastErrorCheck)

	// the stored watermark did not move, so the window is scanned again
	f.repo.saveErr = nil
	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	assert.Equal(t, []model.AlertKind{model.AlertKindWorkflowError, model.AlertKindWorkflowError}, f.alerts.kinds())
	require.NotNil(t, f.repo.get("inst_save0002").LastErrorCheck)
}

func TestUpdateStatusDoesNotRecreateVanishedInstance(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_gone0001", model.StatusOnline, "key")
	f.probe.set(testBaseURL, model.StatusOnline, "1.0.0")
	f.probe.onClassify = func() {
		_ = f.repo.DeleteInstance(context.Background(), tenant.DefaultID, "inst_gone0001")
	}

	err := f.svc.UpdateStatus(context.Background(), &inst)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := f.repo.FindAllInstances(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateStatusSerializesSameInstance(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_conc0001", model.StatusOnline, "key")
	f.probe.set(testBaseURL, model.StatusOffline, model.UnknownVersion)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := inst
			assert.NoError(t, f.svc.UpdateStatus(context.Background(), &local))
		}()
	}
	wg.Wait()

	assert.Equal(t, []model.AlertKind{model.AlertKindOffline}, f.alerts.kinds())
}

func TestDeleteDuringSweepLeavesNoInstance(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	inst := f.addInstance(t, "inst_del00002", model.StatusUnknown, "key")
	f.probe.set(testBaseURL, model.StatusOnline, "1.0.0")

	deleted := make(chan error, 1)
	var once sync.Once
	f.probe.onClassify = func() {
		once.Do(func() {
			go func() { deleted <- f.svc.DeleteInstance(context.Background(), "inst_del00002") }()
			assert.True(t, stillPending(deleted), "delete must wait for the in-flight refresh")
		})
	}

	require.NoError(t, f.svc.UpdateStatus(context.Background(), &inst))
	require.NoError(t, <-deleted)

	all, err := f.repo.FindAllInstances(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateInstanceDuringSweepAlertsOnce(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.addInstance(t, "inst_upd00002", model.StatusOnline, "key")
	f.probe.set(testBaseURL, model.StatusOffline, model.UnknownVersion)

	swept := make(chan error, 1)
	var once sync.Once
	f.repo.afterFind = func() {
		once.Do(func() {
			go func() {
				sweep := model.Instance{ExternalID: "inst_upd00002", TenantID: tenant.DefaultID}
				swept <- f.svc.UpdateStatus(context.Background(), &sweep)
			}()
			assert.True(t, stillPending(swept), "sweep must wait for the edit")
		})
	}

	detail, err := f.svc.UpdateInstance(context.Background(), "inst_upd00002", model.InstanceRequest{Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "offline", detail.Status)
	require.NoError(t, <-swept)

	stored := f.repo.get("inst_upd00002")
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, model.StatusOffline, stored.Status)
	assert.Equal(t, []model.AlertKind{model.AlertKindOffline}, f.alerts.kinds())
}

func TestCreateInstance(t *testing.T) {
	f := newEngineFixture(t, fakeLicense{max: 1})
	ctx := tenant.WithID(context.Background(), "tenant-a")

	detail, err := f.svc.CreateInstance(ctx, model.InstanceRequest{
		Name:    " prod ",
		BaseURL: "https://n8n.example.com/",
		APIKey:  "secret-key",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(detail.ID, "inst_"))
	assert.Len(t, detail.ID, len("inst_")+8)
	assert.Equal(t, "prod", detail.Name)
	assert.Equal(t, "https://n8n.example.com", detail.BaseURL)
	assert.Equal(t, "unknown", detail.Status)
	assert.Equal(t, "unknown", detail.Version)
	assert.Equal(t, "1.90.0", detail.LatestVersion)

	stored := f.repo.get(detail.ID)
	assert.Equal(t, "tenant-a", stored.TenantID)
	assert.NotEqual(t, "secret-key", stored.APIKey)
	plain, _ := f.vault.Open(stored.APIKey)
	assert.Equal(t, "secret-key", plain)

	_, err = f.svc.CreateInstance(ctx, model.InstanceRequest{Name: "second", BaseURL: "https://b.example.com"})
	assert.ErrorIs(t, err, ErrInstanceLimit)

	other := tenant.WithID(context.Background(), "tenant-b")
	_, err = f.svc.CreateInstance(other, model.InstanceRequest{Name: "theirs", BaseURL: "https://c.example.com"})
	assert.NoError(t, err)
}

func TestCreateInstanceIDCollisionKeepsExistingRow(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.svc.newID = func() string { return "inst_same0001" }

	_, err := f.svc.CreateInstance(tenant.WithID(context.Background(), "tenant-a"), model.InstanceRequest{
		Name:    "mine",
		BaseURL: "https://a.example.com",
	})
	require.NoError(t, err)

	_, err = f.svc.CreateInstance(tenant.WithID(context.Background(), "tenant-b"), model.InstanceRequest{
		Name:    "theirs",
		BaseURL: "https://b.example.com",
	})
	assert.ErrorIs(t, err, ErrConflict)

	stored := f.repo.get("inst_same0001")
	assert.Equal(t, "tenant-a", stored.TenantID)
	assert.Equal(t, "mine", stored.Name)
}

func TestCreateInstanceRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  model.InstanceRequest
	}{
		{name: "blank name", req: model.InstanceRequest{Name: " ", BaseURL: "https://a.example.com"}},
		{name: "unsupported scheme", req: model.InstanceRequest{Name: "a", BaseURL: "ftp://a.example.com"}},
		{name: "no host", req: model.InstanceRequest{Name: "a", BaseURL: "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, unlimitedLicense())
			_, err := f.svc.CreateInstance(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUpdateInstance(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.addInstance(t, "inst_upd00001", model.StatusLocked, "")
	f.probe.set("https://new.example.com", model.StatusOnline, "1.2.3")

	detail, err := f.svc.UpdateInstance(context.Background(), "inst_upd00001", model.InstanceRequest{
		Name:    "renamed",
		BaseURL: "https://new.example.com",
		APIKey:  "fresh-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", detail.Name)
	assert.Equal(t, "online", detail.Status)
	assert.Equal(t, "1.2.3", detail.Version)
	assert.Equal(t, "fresh-key", f.probe.lastAPIKey)

	_, err = f.svc.UpdateInstance(context.Background(), "inst_nothere1", model.InstanceRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteInstanceChecksOwnership(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.addInstance(t, "inst_del00001", model.StatusOnline, "key")

	err := f.svc.DeleteInstance(tenant.WithID(context.Background(), "intruder"), "inst_del00001")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.DeleteInstance(context.Background(), "inst_del00001"))
	_, err = f.svc.GetInstance(context.Background(), "inst_del00001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetErrorPatterns(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.addInstance(t, "inst_pat00001", model.StatusOnline, "key")
	f.probe.events = []model.NormalizedEvent{
		workflowEvent("A", "w1", f.now.Add(-2*time.Hour)),
		workflowEvent("A", "w2", f.now.Add(-time.Hour)),
		workflowEvent("B", "w1", f.now.Add(-48*time.Hour)),
	}

	patterns, err := f.svc.GetErrorPatterns(context.Background(), "inst_pat00001", "1d")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "A", patterns[0].Message)
	assert.Equal(t, 2, patterns[0].Count)
	assert.Equal(t, 250, f.probe.fetches[0].limit)
	assert.Equal(t, f.now.Add(-24*time.Hour), *f.probe.fetches[0].since)

	patterns, err = f.svc.GetErrorPatterns(context.Background(), "inst_pat00001", "bogus")
	require.NoError(t, err)
	assert.Len(t, patterns, 2)
	assert.Equal(t, f.now.Add(-14*24*time.Hour), *f.probe.fetches[1].since)
}

func TestGetFailedEvents(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.addInstance(t, "inst_evt00001", model.StatusOnline, "key")
	f.probe.events = []model.NormalizedEvent{workflowEvent("A", "w1", f.now)}

	events, err := f.svc.GetFailedEvents(context.Background(), "inst_evt00001", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, DefaultEventLimit, f.probe.fetches[0].limit)
	assert.Nil(t, f.probe.fetches[0].since)

	_, err = f.svc.GetFailedEvents(context.Background(), "inst_evt00001", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, f.probe.fetches[1].limit)
}

func TestReadPathsOnLockedInstanceAreEmpty(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.addInstance(t, "inst_lock0002", model.StatusLocked, "")
	f.probe.workflows = []model.WorkflowSummary{{ID: "1", Name: "hidden"}}
	ctx := context.Background()

	workflows, err := f.svc.GetWorkflows(ctx, "inst_lock0002")
	require.NoError(t, err)
	assert.Empty(t, workflows)

	events, err := f.svc.GetFailedEvents(ctx, "inst_lock0002", 5)
	require.NoError(t, err)
	assert.Empty(t, events)

	patterns, err := f.svc.GetErrorPatterns(ctx, "inst_lock0002", "14d")
	require.NoError(t, err)
	assert.Empty(t, patterns)
	assert.Empty(t, f.probe.fetches)
}

func TestListInstancesScopesToTenant(t *testing.T) {
	f := newEngineFixture(t, unlimitedLicense())
	f.addInstance(t, "inst_list0001", model.StatusUnknown, "key")
	foreign := model.Instance{ExternalID: "inst_list0002", TenantID: "other", Name: "x", BaseURL: testBaseURL}
	require.NoError(t, f.repo.InsertInstance(context.Background(), &foreign))
	f.probe.set(testBaseURL, model.StatusOnline, "1.5.0")

	summaries, err := f.svc.ListInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "inst_list0001", summaries[0].ID)
	assert.Equal(t, "online", summaries[0].Status)
	assert.Equal(t, "1.5.0", summaries[0].Version)
	assert.Equal(t, "1.90.0", summaries[0].LatestVersion)
}
