package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bastionsec/sharescan/pkg/api"
	"github.com/bastionsec/sharescan/pkg/scanner"
	"github.com/bastionsec/sharescan/pkg/store"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyDirectoryDefaults(&cfg.Directory)
	applyScanDefaults(&cfg.Scan)
	applyDatabaseDefaults(&cfg.Database)
	applyAPIDefaults(&cfg.API)
	applyStatusDefaults(&cfg.Status)
	applyExportDefaults(&cfg.Export)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	// Apply profiling defaults
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	// Default profile types include CPU, memory allocation, and goroutines
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyDirectoryDefaults sets LDAP endpoint defaults.
func applyDirectoryDefaults(cfg *DirectoryConfig) {
	if cfg.Port == 0 {
		if cfg.UseTLS {
			cfg.Port = 636
		} else {
			cfg.Port = 389
		}
	}
	if cfg.Auth == "" {
		cfg.Auth = "ntlm"
	}
	if cfg.BindRetries == 0 {
		cfg.BindRetries = 3
	}
	if cfg.BindBackoff == 0 {
		cfg.BindBackoff = 2 * time.Second
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 5000
	}
}

// applyScanDefaults sets scan behavior defaults.
func applyScanDefaults(cfg *ScanConfig) {
	if cfg.Threads == 0 {
		cfg.Threads = 10
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1000
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 5
	}
	if cfg.MaxComputers == 0 {
		cfg.MaxComputers = 800000
	}
	if cfg.SMBPort == 0 {
		cfg.SMBPort = 445
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 5 * time.Second
	}
	if cfg.ShareTimeout == 0 {
		cfg.ShareTimeout = 30 * time.Second
	}
	if cfg.HostTimeout == 0 {
		cfg.HostTimeout = 5 * time.Minute
	}
	if cfg.ExcludedShares == nil {
		cfg.ExcludedShares = append([]string(nil), scanner.DefaultExcludedShares...)
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 30 * time.Second
	}
}

// applyDatabaseDefaults sets result store defaults.
func applyDatabaseDefaults(cfg *store.Config) {
	cfg.ApplyDefaults()
}

// applyAPIDefaults sets API server defaults.
func applyAPIDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

// applyStatusDefaults sets scan status store defaults.
func applyStatusDefaults(cfg *StatusConfig) {
	if cfg.Path == "" {
		cfg.Path = filepath.Join(getConfigDir(), "status")
	}
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
}

// applyExportDefaults sets report export defaults.
func applyExportDefaults(cfg *ExportConfig) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.S3.Parallel == 0 {
		cfg.S3.Parallel = 4
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{},
		Database: store.Config{
			Type: store.DatabaseTypeSQLite, // Default to SQLite for single-node
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
