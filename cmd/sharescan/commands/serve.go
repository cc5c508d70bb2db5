package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/internal/rlimit"
	"github.com/bastionsec/sharescan/internal/telemetry"
	"github.com/bastionsec/sharescan/pkg/api"
	"github.com/bastionsec/sharescan/pkg/api/handlers"
	"github.com/bastionsec/sharescan/pkg/config"
	"github.com/bastionsec/sharescan/pkg/engine"
	"github.com/bastionsec/sharescan/pkg/metrics"
	metricsprom "github.com/bastionsec/sharescan/pkg/metrics/prometheus"
	"github.com/bastionsec/sharescan/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sharescan API server",
	Long: `Start the sharescan REST API server.

The server accepts scan requests over HTTP, runs them in the background,
and streams their progress to clients. Scan statuses survive restarts in
the status store; results land in the same result store the CLI reads.

The JWT secret for mutating endpoints comes from the config file or the
SHARESCAN_API_SECRET environment variable.

Examples:
  # Start with the default config location
  sharescan serve

  # Start with a custom config
  sharescan serve --config /etc/sharescan/config.yaml

  # Override the log level for one run
  SHARESCAN_LOGGING_LEVEL=DEBUG sharescan serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if !cfg.API.IsEnabled() {
		return fmt.Errorf("the API server is disabled in configuration (set api.enabled: true)")
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "sharescan",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "sharescan",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("sharescan - SMB share scanner")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// The server runs scans itself, so it needs the same fd headroom as
	// a local scan.
	if soft, err := rlimit.Maximize(); err != nil {
		logger.Warn("Could not raise file descriptor limit", logger.Err(err))
	} else {
		logger.Debug("File descriptor limit", "nofile", soft)
	}

	// Initialize metrics first so the engine and router see the live
	// registry.
	config.InitializeMetrics(cfg)
	scanMetrics := metricsprom.NewScanMetrics()
	if metrics.IsEnabled() {
		logger.Info("Metrics enabled", "endpoint", fmt.Sprintf("http://localhost:%d/metrics", cfg.API.Port))
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Result store (runs migrations and seeds default patterns)
	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer func() { _ = st.Close() }()
	if err := st.Init(ctx); err != nil {
		return err
	}
	logger.Info("Result store ready", "type", cfg.Database.Type)

	// Scan status store
	statusStore, err := config.CreateStatusStore(cfg.Status)
	if err != nil {
		return fmt.Errorf("failed to open status store: %w", err)
	}
	defer func() { _ = statusStore.Close() }()

	apiServer, err := api.NewServer(cfg.API, api.Deps{
		Store:  st,
		Status: statusStore,
		Run:    newScanRunFunc(cfg, st, scanMetrics),
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	logger.Info("API server configured", "port", cfg.API.Port, "max_concurrent_scans", cfg.API.MaxConcurrentScans)

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// newScanRunFunc builds the engine-backed scan executor handed to the
// API server. Each request gets its own directory source and scanner
// stack; the result store and metrics are shared.
func newScanRunFunc(cfg *config.Config, st *store.GORMStore, m metrics.ScanMetrics) api.RunFunc {
	return func(ctx context.Context, req handlers.ScanRequest, sink engine.ProgressSink) (*engine.Summary, error) {
		creds, err := ntlm.Parse(req.Username, req.Password, "", req.Domain)
		if err != nil {
			return nil, err
		}

		// Per-request overrides on top of the configured scan settings.
		dirCfg := cfg.Directory
		dirCfg.Domain = req.Domain
		dirCfg.Server = req.Server
		if req.LDAPPort > 0 {
			dirCfg.Port = req.LDAPPort
		}

		scanCfg := cfg.Scan
		if req.Threads > 0 {
			scanCfg.Threads = req.Threads
		}
		if req.BatchSize > 0 {
			scanCfg.BatchSize = req.BatchSize
		}
		if req.MaxDepth > 0 {
			scanCfg.MaxDepth = req.MaxDepth
		}
		if req.ScanTimeout > 0 {
			scanCfg.ShareTimeout = time.Duration(req.ScanTimeout) * time.Second
		}
		if req.HostTimeout > 0 {
			scanCfg.HostTimeout = time.Duration(req.HostTimeout) * time.Second
		}
		if req.MaxComputers > 0 {
			scanCfg.MaxComputers = req.MaxComputers
		}

		source, err := config.CreateDirectorySource(dirCfg, creds)
		if err != nil {
			return nil, err
		}
		defer func() { _ = source.Close() }()

		engineCfg := config.EngineConfig(scanCfg, req.Domain, req.OU)
		eng, err := engine.New(&engineCfg, source, config.CreateScannerFactory(scanCfg, creds), st, sink, m)
		if err != nil {
			return nil, err
		}

		return eng.Run(ctx)
	}
}
