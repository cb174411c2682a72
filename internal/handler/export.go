package handler

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/viaacode/teamleader2db/internal/logger"
	"github.com/viaacode/teamleader2db/internal/worker"
)

// Exporter is the surface the export endpoints need from the CSV writer.
type Exporter interface {
	ExportCSV(ctx context.Context) (int, error)
	Path() string
}

// ExportHandler serves the contacts CSV export endpoints
type ExportHandler struct {
	exporter Exporter
	runner   *worker.Runner

	mu         sync.Mutex
	lastExport string
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exporter Exporter, runner *worker.Runner) *ExportHandler {
	return &ExportHandler{
		exporter:   exporter,
		runner:     runner,
		lastExport: MsgExportNeverRan,
	}
}

func (h *ExportHandler) setLastExport(value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastExport = value
}

func (h *ExportHandler) getLastExport() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastExport
}

// HandleStartExport triggers a background CSV export unless one is running.
func (h *ExportHandler) HandleStartExport(w http.ResponseWriter, r *http.Request) {
	started := h.runner.Start(func(ctx context.Context) {
		h.setLastExport(MsgExportInProgress)
		if _, err := h.exporter.ExportCSV(ctx); err != nil {
			logger.FromContext(ctx).Error("Contacts csv export failed", "error", err)
			h.setLastExport("export failed: " + err.Error())
			return
		}
		h.setLastExport(time.Now().Format(time.RFC3339))
	})

	status := MsgExportStarted
	if !started {
		status = MsgExportAlreadyRunning
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// HandleExportStatus reports whether an export is running and when the
// last one completed.
func (h *ExportHandler) HandleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"export_running": h.runner.Running(),
		"last_export":    h.getLastExport(),
	})
}

// HandleDownloadCSV serves the most recent export file.
func (h *ExportHandler) HandleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	path := h.exporter.Path()
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, ErrMsgExportNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts_export.csv"`)
	http.ServeFile(w, r, path)
}
