package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viaacode/teamleader2db/internal/domain"
	"github.com/viaacode/teamleader2db/internal/teamleader"
	"github.com/viaacode/teamleader2db/internal/worker"
)

// mockSyncService implements sync.Service for testing
type mockSyncService struct {
	status    map[domain.ResourceType]domain.ResourceStatus
	statusErr error

	syncAllCalls int
	lastFullSync bool
	syncDone     chan struct{}
}

func (m *mockSyncService) SyncAll(ctx context.Context, fullSync bool) (domain.SyncSummary, error) {
	m.syncAllCalls++
	m.lastFullSync = fullSync
	if m.syncDone != nil {
		close(m.syncDone)
	}
	return domain.SyncSummary{}, nil
}

func (m *mockSyncService) SyncResource(ctx context.Context, resource domain.ResourceType, fullSync bool) (int, error) {
	return 0, nil
}

func (m *mockSyncService) Status(ctx context.Context) (map[domain.ResourceType]domain.ResourceStatus, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

// mockAuthorizer implements Authorizer for testing
type mockAuthorizer struct {
	result    teamleader.CallbackResult
	lastCode  string
	lastState string
	calls     int
}

func (m *mockAuthorizer) HandleCallback(ctx context.Context, code, state string) teamleader.CallbackResult {
	m.calls++
	m.lastCode = code
	m.lastState = state
	return m.result
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleOAuthCallbackMissingCode(t *testing.T) {
	auth := &mockAuthorizer{}
	h := NewSyncHandler(&mockSyncService{}, worker.NewRunner("sync"), auth)

	req := httptest.NewRequest(http.MethodGet, "/sync/oauth?state=abc", nil)
	rec := httptest.NewRecorder()
	h.HandleOAuthCallback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, auth.calls)
	assert.Equal(t, ErrMsgMissingCodeParam, decodeBody(t, rec)["error"])
}

func TestHandleOAuthCallbackAccepted(t *testing.T) {
	auth := &mockAuthorizer{result: teamleader.CallbackResult{Accepted: true}}
	h := NewSyncHandler(&mockSyncService{}, worker.NewRunner("sync"), auth)

	req := httptest.NewRequest(http.MethodGet, "/sync/oauth?code=new-code&state=abc", nil)
	rec := httptest.NewRecorder()
	h.HandleOAuthCallback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, "new-code", auth.lastCode)
	assert.Equal(t, "abc", auth.lastState)
}

func TestHandleOAuthCallbackRejected(t *testing.T) {
	auth := &mockAuthorizer{result: teamleader.CallbackResult{Accepted: false, Reason: "state mismatch"}}
	h := NewSyncHandler(&mockSyncService{}, worker.NewRunner("sync"), auth)

	req := httptest.NewRequest(http.MethodGet, "/sync/oauth?code=new-code&state=evil", nil)
	rec := httptest.NewRecorder()
	h.HandleOAuthCallback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, "state mismatch", body["reason"])
}

func TestHandleStatus(t *testing.T) {
	lastModified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockSyncService{status: map[domain.ResourceType]domain.ResourceStatus{
		domain.ResourceContacts: {
			DatabaseTable: "tl_contacts",
			SyncedEntries: 7,
			LastModified:  &lastModified,
		},
	}}
	h := NewSyncHandler(svc, worker.NewRunner("sync"), &mockAuthorizer{})

	req := httptest.NewRequest(http.MethodGet, "/sync/teamleader", nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["job_running"])

	contacts, ok := body["contacts"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tl_contacts", contacts["database_table"])
	assert.Equal(t, float64(7), contacts["synced_entries"])
}

func TestHandleStatusFailure(t *testing.T) {
	svc := &mockSyncService{statusErr: assert.AnError}
	h := NewSyncHandler(svc, worker.NewRunner("sync"), &mockAuthorizer{})

	req := httptest.NewRequest(http.MethodGet, "/sync/teamleader", nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrMsgSyncStatusFailed, decodeBody(t, rec)["error"])
}

func TestHandleStartSync(t *testing.T) {
	svc := &mockSyncService{syncDone: make(chan struct{})}
	runner := worker.NewRunner("sync")
	h := NewSyncHandler(svc, runner, &mockAuthorizer{})

	req := httptest.NewRequest(http.MethodPost, "/sync/teamleader?full_sync=true", nil)
	rec := httptest.NewRecorder()
	h.HandleStartSync(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, MsgSyncStarted, body["status"])
	assert.Equal(t, true, body["full_sync"])

	select {
	case <-svc.syncDone:
	case <-time.After(2 * time.Second):
		t.Fatal("background sync never ran")
	}
	require.NoError(t, runner.Shutdown(context.Background()))
	assert.True(t, svc.lastFullSync)
}

func TestHandleStartSyncAlreadyRunning(t *testing.T) {
	runner := worker.NewRunner("sync")
	release := make(chan struct{})
	require.True(t, runner.Start(func(ctx context.Context) { <-release }))
	defer func() {
		close(release)
		runner.Shutdown(context.Background())
	}()

	svc := &mockSyncService{}
	h := NewSyncHandler(svc, runner, &mockAuthorizer{})

	req := httptest.NewRequest(http.MethodPost, "/sync/teamleader", nil)
	rec := httptest.NewRecorder()
	h.HandleStartSync(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, MsgSyncAlreadyRunning, body["status"])
	assert.Equal(t, 0, svc.syncAllCalls)
}
