package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viaacode/teamleader2db/internal/worker"
)

// mockExporter implements Exporter for testing
type mockExporter struct {
	path    string
	records int
	err     error
	calls   int
	done    chan struct{}
}

func (m *mockExporter) ExportCSV(ctx context.Context) (int, error) {
	m.calls++
	if m.done != nil {
		defer close(m.done)
	}
	return m.records, m.err
}

func (m *mockExporter) Path() string {
	return m.path
}

func waitForJob(t *testing.T, runner *worker.Runner, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background export never ran")
	}
	require.NoError(t, runner.Shutdown(context.Background()))
}

func TestHandleStartExport(t *testing.T) {
	exporter := &mockExporter{records: 3, done: make(chan struct{})}
	runner := worker.NewRunner("export")
	h := NewExportHandler(exporter, runner)

	req := httptest.NewRequest(http.MethodPost, "/export/export_csv", nil)
	rec := httptest.NewRecorder()
	h.HandleStartExport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgExportStarted, decodeBody(t, rec)["status"])

	waitForJob(t, runner, exporter.done)
	assert.Equal(t, 1, exporter.calls)

	// A finished export leaves a parseable completion timestamp behind
	_, err := time.Parse(time.RFC3339, h.getLastExport())
	assert.NoError(t, err)
}

func TestHandleStartExportAlreadyRunning(t *testing.T) {
	runner := worker.NewRunner("export")
	release := make(chan struct{})
	require.True(t, runner.Start(func(ctx context.Context) { <-release }))
	defer func() {
		close(release)
		runner.Shutdown(context.Background())
	}()

	exporter := &mockExporter{}
	h := NewExportHandler(exporter, runner)

	req := httptest.NewRequest(http.MethodPost, "/export/export_csv", nil)
	rec := httptest.NewRecorder()
	h.HandleStartExport(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgExportAlreadyRunning, decodeBody(t, rec)["status"])
	assert.Equal(t, 0, exporter.calls)
}

func TestHandleStartExportFailureRecorded(t *testing.T) {
	exporter := &mockExporter{err: errors.New("disk full"), done: make(chan struct{})}
	runner := worker.NewRunner("export")
	h := NewExportHandler(exporter, runner)

	req := httptest.NewRequest(http.MethodPost, "/export/export_csv", nil)
	rec := httptest.NewRecorder()
	h.HandleStartExport(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	waitForJob(t, runner, exporter.done)
	assert.True(t, strings.HasPrefix(h.getLastExport(), "export failed:"))
	assert.Contains(t, h.getLastExport(), "disk full")
}

func TestHandleExportStatusNeverRan(t *testing.T) {
	h := NewExportHandler(&mockExporter{}, worker.NewRunner("export"))

	req := httptest.NewRequest(http.MethodGet, "/export/export_status", nil)
	rec := httptest.NewRecorder()
	h.HandleExportStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["export_running"])
	assert.Equal(t, MsgExportNeverRan, body["last_export"])
}

func TestHandleDownloadCSVMissingFile(t *testing.T) {
	exporter := &mockExporter{path: filepath.Join(t.TempDir(), "contacts.csv")}
	h := NewExportHandler(exporter, worker.NewRunner("export"))

	req := httptest.NewRequest(http.MethodGet, "/export/download_csv", nil)
	rec := httptest.NewRecorder()
	h.HandleDownloadCSV(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrMsgExportNotFound, decodeBody(t, rec)["error"])
}

func TestHandleDownloadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	content := "id,first_name\nuuid1,Ada\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	h := NewExportHandler(&mockExporter{path: path}, worker.NewRunner("export"))

	req := httptest.NewRequest(http.MethodGet, "/export/download_csv", nil)
	rec := httptest.NewRecorder()
	h.HandleDownloadCSV(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "contacts_export.csv")
	assert.Equal(t, content, rec.Body.String())
}
