package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driving"
)

// Mock services for testing

type mockSyncAdmin struct {
	startSyncFn     func(ctx context.Context, req driving.StartSyncRequest) (*domain.SyncState, error)
	stopSyncFn      func(ctx context.Context) (*domain.SyncState, error)
	forceResetFn    func(ctx context.Context) (*domain.SyncState, error)
	forceStopAllFn  func(ctx context.Context) (*domain.SyncState, error)
	getSyncStatusFn func(ctx context.Context) (*domain.SyncState, error)
	getSyncLogFn    func(ctx context.Context) ([]domain.SyncLogEntry, error)
}

func (m *mockSyncAdmin) StartSync(ctx context.Context, req driving.StartSyncRequest) (*domain.SyncState, error) {
	if m.startSyncFn != nil {
		return m.startSyncFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSyncAdmin) StopSync(ctx context.Context) (*domain.SyncState, error) {
	if m.stopSyncFn != nil {
		return m.stopSyncFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSyncAdmin) ForceResetSync(ctx context.Context) (*domain.SyncState, error) {
	if m.forceResetFn != nil {
		return m.forceResetFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSyncAdmin) ForceStopAllSyncs(ctx context.Context) (*domain.SyncState, error) {
	if m.forceStopAllFn != nil {
		return m.forceStopAllFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSyncAdmin) GetSyncStatus(ctx context.Context) (*domain.SyncState, error) {
	if m.getSyncStatusFn != nil {
		return m.getSyncStatusFn(ctx)
	}
	return domain.NewIdleSyncState(), nil
}

func (m *mockSyncAdmin) GetSyncLog(ctx context.Context) ([]domain.SyncLogEntry, error) {
	if m.getSyncLogFn != nil {
		return m.getSyncLogFn(ctx)
	}
	return nil, nil
}

type mockSettingsService struct {
	getFn  func(ctx context.Context, projectID string) (*domain.AppSettings, error)
	saveFn func(ctx context.Context, projectID string, settings *domain.AppSettings) (*domain.AppSettings, error)
}

func (m *mockSettingsService) GetSettings(ctx context.Context, projectID string) (*domain.AppSettings, error) {
	if m.getFn != nil {
		return m.getFn(ctx, projectID)
	}
	return domain.DefaultAppSettings(), nil
}

func (m *mockSettingsService) SaveSettings(ctx context.Context, projectID string, settings *domain.AppSettings) (*domain.AppSettings, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, projectID, settings)
	}
	return settings, nil
}

type mockFieldEvents struct {
	handleFn func(ctx context.Context, issueIDOrKey string) error
}

func (m *mockFieldEvents) HandleCommentEvent(ctx context.Context, issueIDOrKey string) error {
	if m.handleFn != nil {
		return m.handleFn(ctx, issueIDOrKey)
	}
	return nil
}

type mockResolver struct {
	ids map[string]string
}

func (m *mockResolver) ResolveProjectID(ctx context.Context, projectKey string) string {
	return m.ids[projectKey]
}

func newTestServer(admin *mockSyncAdmin, settings *mockSettingsService, events *mockFieldEvents) *Server {
	return NewServer(DefaultConfig(), ServerDeps{
		Admin:    admin,
		Settings: settings,
		Events:   events,
		Resolver: &mockResolver{ids: map[string]string{"DEMO": "10001"}},
	})
}

func TestStartSync_Accepted(t *testing.T) {
	var gotReq driving.StartSyncRequest
	admin := &mockSyncAdmin{
		startSyncFn: func(ctx context.Context, req driving.StartSyncRequest) (*domain.SyncState, error) {
			gotReq = req
			state := domain.NewIdleSyncState()
			state.IsRunning = true
			state.TotalWorkItems = 120
			return state, nil
		},
	}
	server := newTestServer(admin, &mockSettingsService{}, &mockFieldEvents{})

	body, _ := json.Marshal(driving.StartSyncRequest{ProjectID: "10001", ProjectKey: "DEMO", BatchSize: 50})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/start", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want 202", rec.Code)
	}
	if gotReq.ProjectID != "10001" || gotReq.BatchSize != 50 {
		t.Errorf("unexpected request passed through: %+v", gotReq)
	}
	var state domain.SyncState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if !state.IsRunning || state.TotalWorkItems != 120 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestStartSync_Conflict(t *testing.T) {
	admin := &mockSyncAdmin{
		startSyncFn: func(ctx context.Context, req driving.StartSyncRequest) (*domain.SyncState, error) {
			return nil, domain.ErrSyncAlreadyRunning
		},
	}
	server := newTestServer(admin, &mockSettingsService{}, &mockFieldEvents{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/start", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("got status %d, want 409", rec.Code)
	}
}

func TestStartSync_FilterRequired(t *testing.T) {
	admin := &mockSyncAdmin{
		startSyncFn: func(ctx context.Context, req driving.StartSyncRequest) (*domain.SyncState, error) {
			return nil, domain.ErrFilterRequired
		},
	}
	server := newTestServer(admin, &mockSettingsService{}, &mockFieldEvents{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/start", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestGetSyncStatus(t *testing.T) {
	admin := &mockSyncAdmin{
		getSyncStatusFn: func(ctx context.Context) (*domain.SyncState, error) {
			state := domain.NewIdleSyncState()
			state.ProcessedWorkItems = 40
			state.TotalWorkItems = 120
			return state, nil
		},
	}
	server := newTestServer(admin, &mockSettingsService{}, &mockFieldEvents{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var state domain.SyncState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.ProcessedWorkItems != 40 {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestGetSyncLog(t *testing.T) {
	admin := &mockSyncAdmin{
		getSyncLogFn: func(ctx context.Context) ([]domain.SyncLogEntry, error) {
			return []domain.SyncLogEntry{
				domain.NewSyncLogEntry(domain.LogTypeComplete, "10001", "DEMO", nil),
				domain.NewSyncLogEntry(domain.LogTypeStart, "10001", "DEMO", nil),
			}, nil
		},
	}
	server := newTestServer(admin, &mockSettingsService{}, &mockFieldEvents{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/log", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var resp struct {
		Entries []domain.SyncLogEntry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 2 || resp.Entries[0].Type != domain.LogTypeComplete {
		t.Errorf("unexpected log: %+v", resp.Entries)
	}
}

func TestGetSettings_ResolvesProjectKey(t *testing.T) {
	var gotScope string
	settings := &mockSettingsService{
		getFn: func(ctx context.Context, projectID string) (*domain.AppSettings, error) {
			gotScope = projectID
			return domain.DefaultAppSettings(), nil
		},
	}
	server := newTestServer(&mockSyncAdmin{}, settings, &mockFieldEvents{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings?projectKey=DEMO", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if gotScope != "10001" {
		t.Errorf("got scope %q, want resolved project ID", gotScope)
	}
}

func TestSaveSettings_InvalidPayload(t *testing.T) {
	settings := &mockSettingsService{
		saveFn: func(ctx context.Context, projectID string, s *domain.AppSettings) (*domain.AppSettings, error) {
			return nil, domain.ErrInvalidInput
		},
	}
	server := newTestServer(&mockSyncAdmin{}, settings, &mockFieldEvents{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestSaveSettings_RoundTrips(t *testing.T) {
	settings := &mockSettingsService{}
	server := newTestServer(&mockSyncAdmin{}, settings, &mockFieldEvents{})

	payload := domain.DefaultAppSettings()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings?projectId=10001", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var saved domain.AppSettings
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.AgentReplyCountVisibility == nil || saved.AgentReplyCountVisibility.Value != string(domain.VisibilityAll) {
		t.Errorf("unexpected settings: %+v", saved)
	}
}

func TestCommentEvent(t *testing.T) {
	var gotIssue string
	events := &mockFieldEvents{
		handleFn: func(ctx context.Context, issueIDOrKey string) error {
			gotIssue = issueIDOrKey
			return nil
		},
	}
	server := newTestServer(&mockSyncAdmin{}, &mockSettingsService{}, events)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/comment", bytes.NewReader([]byte(`{"issueIdOrKey":"DEMO-7"}`)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if gotIssue != "DEMO-7" {
		t.Errorf("got issue %q, want DEMO-7", gotIssue)
	}
}

func TestCommentEvent_MissingIssue(t *testing.T) {
	server := newTestServer(&mockSyncAdmin{}, &mockSettingsService{}, &mockFieldEvents{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/comment", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(&mockSyncAdmin{}, &mockSettingsService{}, &mockFieldEvents{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rec.Code)
	}
}
