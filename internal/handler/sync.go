package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/viaacode/teamleader2db/internal/domain"
	"github.com/viaacode/teamleader2db/internal/logger"
	"github.com/viaacode/teamleader2db/internal/sync"
	"github.com/viaacode/teamleader2db/internal/teamleader"
	"github.com/viaacode/teamleader2db/internal/worker"
)

// Authorizer is the callback surface the OAuth handler needs from the
// auth manager.
type Authorizer interface {
	HandleCallback(ctx context.Context, code, state string) teamleader.CallbackResult
}

// SyncHandler serves the sync control endpoints
type SyncHandler struct {
	service sync.Service
	runner  *worker.Runner
	auth    Authorizer
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service sync.Service, runner *worker.Runner, auth Authorizer) *SyncHandler {
	return &SyncHandler{service: service, runner: runner, auth: auth}
}

// HandleOAuthCallback completes the authorization-code flow. The upstream
// consent screen redirects here with code and state query parameters.
func (h *SyncHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, ErrMsgMissingCodeParam)
		return
	}
	state := r.URL.Query().Get("state")

	result := h.auth.HandleCallback(r.Context(), code, state)
	if !result.Accepted {
		writeJSON(w, http.StatusBadRequest, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleStatus reports per-resource sync state plus the job-running flag.
func (h *SyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to collect sync status", "error", err)
		writeError(w, http.StatusInternalServerError, ErrMsgSyncStatusFailed)
		return
	}

	payload := make(map[string]any, len(status)+1)
	for resource, entry := range status {
		payload[string(resource)] = entry
	}
	payload["job_running"] = h.runner.Running()

	writeJSON(w, http.StatusOK, payload)
}

// HandleStartSync triggers a background sync unless one is already running.
// full_sync=true truncates every resource table before refetching.
func (h *SyncHandler) HandleStartSync(w http.ResponseWriter, r *http.Request) {
	fullSync, _ := strconv.ParseBool(r.URL.Query().Get("full_sync"))

	started := h.runner.Start(func(ctx context.Context) {
		summary, err := h.service.SyncAll(ctx, fullSync)
		if err != nil {
			logger.FromContext(ctx).Error("Teamleader sync failed", "error", err, "partial_summary", summarize(summary))
		}
	})

	status := MsgSyncStarted
	if !started {
		status = MsgSyncAlreadyRunning
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"full_sync": fullSync,
	})
}

func summarize(summary domain.SyncSummary) map[string]int {
	out := make(map[string]int, len(summary))
	for resource, count := range summary {
		out[string(resource)] = count
	}
	return out
}
