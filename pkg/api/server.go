// Package api provides the REST control surface for sharescan.
//
// The server starts scans in the background, streams their progress to
// clients, and serves stored sessions, shares, findings, and detection
// patterns. Mutating endpoints require a JWT minted with the shared
// signing secret.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/pkg/api/auth"
	"github.com/bastionsec/sharescan/pkg/api/sse"
	"github.com/bastionsec/sharescan/pkg/status"
)

// shutdownTimeout bounds graceful shutdown after the serve context is
// cancelled. Longer than the engine's drain grace so a cancelled scan
// can flush its tail before the process exits.
const shutdownTimeout = 45 * time.Second

// Deps bundles the collaborators the API server needs.
type Deps struct {
	// Store is the result datastore.
	Store Store

	// Status tracks scan lifecycles across restarts.
	Status *status.Store

	// Run executes one scan. The serve command wires this to the scan
	// engine.
	Run RunFunc
}

// Server provides the HTTP server for the REST API.
//
// The server supports graceful shutdown: running scans are cancelled
// and drained before the listener closes.
type Server struct {
	server       *http.Server
	runner       *ScanRunner
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving requests.
//
// Defaults are applied here to ensure the server works correctly even when
// created directly (e.g., in tests). This is idempotent with the defaults
// applied during config loading.
func NewServer(config APIConfig, deps Deps) (*Server, error) {
	config.ApplyDefaults()

	if deps.Store == nil {
		return nil, fmt.Errorf("api server requires a result store")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("api server requires a status store")
	}
	if deps.Run == nil {
		return nil, fmt.Errorf("api server requires a scan run function")
	}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:        config.GetJWTSecret(),
		TokenDuration: config.JWT.TokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid JWT configuration (set the secret via %s or the config file): %w",
			EnvAPISecret, err)
	}

	events := sse.NewBroadcaster()
	runner := NewScanRunner(deps.Run, deps.Status, events, int64(config.MaxConcurrentScans))
	router := NewRouter(deps.Store, runner, deps.Status, events, jwtService)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: server,
		runner: runner,
		config: config,
	}, nil
}

// Start starts the API HTTP server and blocks until the context is cancelled
// or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and returns.
func (s *Server) Start(ctx context.Context) error {
	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/healthz", s.config.Port),
			"scans", fmt.Sprintf("http://localhost:%d/api/v1/scans", s.config.Port),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Create new context with timeout for graceful shutdown
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Running scans are cancelled and drained first; their done events let
// open event streams finish, so the listener can close cleanly.
//
// Stop is safe to call multiple times and safe to call concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.runner.Shutdown(ctx); err != nil {
			logger.Warn("Scan drain incomplete at shutdown", logger.Err(err))
		}

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
