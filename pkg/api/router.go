package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/pkg/api/auth"
	"github.com/bastionsec/sharescan/pkg/api/handlers"
	apiMiddleware "github.com/bastionsec/sharescan/pkg/api/middleware"
	"github.com/bastionsec/sharescan/pkg/api/sse"
	"github.com/bastionsec/sharescan/pkg/metrics"
	"github.com/bastionsec/sharescan/pkg/status"
)

// Store is the result-store surface the API needs. *store.GORMStore
// satisfies it.
type Store interface {
	handlers.Pinger
	handlers.SessionStore
	handlers.PatternStore
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /healthz - Liveness probe
//   - GET /healthz/ready - Readiness probe
//   - GET /metrics - Prometheus metrics (when metrics are enabled)
//   - POST /api/v1/scans - Start a scan
//   - GET /api/v1/scans - List tracked scans
//   - GET /api/v1/scans/{id} - Scan status
//   - GET /api/v1/scans/{id}/events - Scan event stream (SSE)
//   - GET /api/v1/sessions - List scan sessions
//   - GET /api/v1/sessions/{id} - Session detail
//   - GET /api/v1/sessions/{id}/summary - Session rollups
//   - GET /api/v1/sessions/{id}/shares - Shares found in a session
//   - GET /api/v1/sessions/{id}/findings - Sensitive files found in a session
//   - DELETE /api/v1/sessions/{id} - Delete a session (admin only)
//   - /api/v1/patterns/* - Detection pattern management
func NewRouter(st Store, runner *ScanRunner, scanStatus *status.Store, events *sse.Broadcaster, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Health check handlers
	healthHandler := handlers.NewHealthHandler(st)

	// Health routes - unauthenticated
	r.Route("/healthz", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	// Prometheus scrape endpoint, only when metrics are initialized
	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/healthz", http.StatusTemporaryRedirect)
	})

	scanHandler := handlers.NewScanHandler(runner, scanStatus, events)
	sessionHandler := handlers.NewSessionHandler(st)
	patternHandler := handlers.NewPatternHandler(st)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// The event stream stays open for the scan's lifetime, so it
		// is registered outside the request timeout group.
		r.Get("/scans/{id}/events", scanHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			// Read endpoints - unauthenticated
			r.Get("/scans", scanHandler.List)
			r.Get("/scans/{id}", scanHandler.Get)

			r.Get("/sessions", sessionHandler.List)
			r.Get("/sessions/{id}", sessionHandler.Get)
			r.Get("/sessions/{id}/summary", sessionHandler.Summary)
			r.Get("/sessions/{id}/shares", sessionHandler.Shares)
			r.Get("/sessions/{id}/findings", sessionHandler.Findings)

			r.Get("/patterns", patternHandler.List)
			r.Get("/patterns/{id}", patternHandler.Get)

			// Mutating endpoints - require a valid token
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.JWTAuth(jwtService))

				r.Post("/scans", scanHandler.Start)

				r.Post("/patterns", patternHandler.Create)
				r.Put("/patterns/{id}", patternHandler.Update)
				r.Post("/patterns/{id}/enable", patternHandler.Enable)
				r.Post("/patterns/{id}/disable", patternHandler.Disable)
				r.Delete("/patterns/{id}", patternHandler.Delete)

				// Destructive session operations - admin only
				r.Group(func(r chi.Router) {
					r.Use(apiMiddleware.RequireAdmin())
					r.Delete("/sessions/{id}", sessionHandler.Delete)
				})
			})
		})
	})

	return r
}

// isProbePath returns true for healthcheck and metrics scrape endpoints.
func isProbePath(path string) bool {
	return path == "/healthz" || strings.HasPrefix(path, "/healthz/") || path == "/metrics"
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Probe requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		// Probe requests are logged at DEBUG to avoid polluting logs in k8s
		if isProbePath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
