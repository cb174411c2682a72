package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viaacode/teamleader2db/internal/database"
	"github.com/viaacode/teamleader2db/internal/handler"
	"github.com/viaacode/teamleader2db/internal/logger"
	"github.com/viaacode/teamleader2db/internal/metrics"
)

// Server wraps the HTTP control surface
type Server struct {
	httpServer *http.Server
}

// NewServer creates a new Server instance
func NewServer(port int, dbPool database.Pool, syncHandler *handler.SyncHandler, exportHandler *handler.ExportHandler) *Server {
	r := chi.NewRouter()

	// Middleware stack, outermost to innermost
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	// Health check routes
	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(dbPool))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", handler.HandleLive())
	})

	// Metrics endpoint for Prometheus scraping
	r.Handle("/metrics", promhttp.Handler())

	// Sync routes
	r.Route("/sync", func(r chi.Router) {
		r.Get("/oauth", syncHandler.HandleOAuthCallback)
		r.Get("/teamleader", syncHandler.HandleStatus)
		r.Post("/teamleader", syncHandler.HandleStartSync)
	})

	// Export routes
	r.Route("/export", func(r chi.Router) {
		r.Post("/export_csv", exportHandler.HandleStartExport)
		r.Get("/export_status", exportHandler.HandleExportStatus)
		r.Get("/download_csv", exportHandler.HandleDownloadCSV)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Skip logging for health check endpoints and metrics
		if strings.HasPrefix(r.URL.Path, "/healthz") ||
			strings.HasPrefix(r.URL.Path, "/readyz") ||
			strings.HasPrefix(r.URL.Path, "/health/") ||
			strings.HasPrefix(r.URL.Path, "/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		requestID := logger.GenerateRequestID()
		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		log := logger.FromContext(ctx)
		log.Info("Request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	})
}

// Start starts the server
func (s *Server) Start() error {
	slog.Default().Info("Server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
