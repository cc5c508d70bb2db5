package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/bastionsec/sharescan/pkg/api"
	"github.com/bastionsec/sharescan/pkg/store"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the ShareScan configuration.
//
// This structure captures the static configuration of the scanner:
//   - Logging configuration
//   - Telemetry/tracing configuration
//   - Directory endpoint (LDAP server, domain, bind method)
//   - Scan behavior (threads, batching, timeouts, depth, exclusions)
//   - Result database connection (SQLite or PostgreSQL)
//   - API server settings (serve mode)
//   - Scan status store (serve mode)
//   - Report export targets (directory, S3)
//
// Credentials are never part of the configuration file. They come from
// the interactive prompt, CLI flags, or the API request body.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (SHARESCAN_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Directory configures the LDAP endpoint computers are enumerated
	// from.
	Directory DirectoryConfig `mapstructure:"directory" yaml:"directory"`

	// Scan configures worker counts, batching, timeouts and the
	// sensitive-filename walk.
	Scan ScanConfig `mapstructure:"scan" yaml:"scan"`

	// Database configures the result store (SQLite or PostgreSQL).
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains the API server configuration for serve mode
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Status configures the scan status store used by serve mode
	Status StatusConfig `mapstructure:"status" yaml:"status"`

	// Export configures report output targets
	Export ExportConfig `mapstructure:"export" yaml:"export"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// 1.0 = sample all traces, 0.5 = sample 50%, 0.0 = no sampling
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040" (standard Pyroscope port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	// Default: ["cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"]
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// DirectoryConfig configures the LDAP endpoint used to enumerate
// computer accounts. Bind credentials are supplied at scan time, never
// stored here.
type DirectoryConfig struct {
	// Server is the directory server hostname or address (required for scans)
	Server string `mapstructure:"server" yaml:"server"`

	// Domain is the DNS domain to enumerate, e.g. corp.example.com
	Domain string `mapstructure:"domain" yaml:"domain"`

	// Port is the LDAP port
	// Default: 389, or 636 when TLS is enabled
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// BaseDN roots the computer search. Derived from Domain when empty
	BaseDN string `mapstructure:"base_dn" yaml:"base_dn,omitempty"`

	// UseTLS connects over LDAPS instead of plain LDAP
	UseTLS bool `mapstructure:"use_tls" yaml:"use_tls"`

	// InsecureSkipVerify disables TLS certificate verification
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`

	// Auth selects the bind method
	// Valid values: ntlm, simple, kerberos
	// Default: ntlm
	Auth string `mapstructure:"auth" validate:"omitempty,oneof=ntlm simple kerberos" yaml:"auth"`

	// Krb5Conf is the krb5.conf path for Kerberos binds
	// Default: /etc/krb5.conf
	Krb5Conf string `mapstructure:"krb5_conf" yaml:"krb5_conf,omitempty"`

	// BindRetries is the number of bind attempts before failing the run
	// Default: 3
	BindRetries int `mapstructure:"bind_retries" yaml:"bind_retries"`

	// BindBackoff is the base wait between bind attempts
	// Default: 2s
	BindBackoff time.Duration `mapstructure:"bind_backoff" yaml:"bind_backoff"`

	// DialTimeout bounds the TCP connect to the directory server
	// Default: 10s
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`

	// RequestTimeout bounds each LDAP request on the wire
	// Default: 60s
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// PageSize is the paged-search page size
	// Default: 5000
	PageSize int `mapstructure:"page_size" validate:"omitempty,min=1" yaml:"page_size"`
}

// ScanConfig configures scan behavior: concurrency, batching, timeout
// budgets, recursion depth and share exclusions.
type ScanConfig struct {
	// Threads is the number of concurrent host scans
	// Default: 10
	Threads int `mapstructure:"threads" validate:"omitempty,min=1" yaml:"threads"`

	// BatchSize is both the host partition size handed to the worker
	// pool and the storage flush threshold
	// Default: 1000
	BatchSize int `mapstructure:"batch_size" validate:"omitempty,min=1" yaml:"batch_size"`

	// MaxDepth is how many directory levels below the share root the
	// sensitive-file walk descends
	// Default: 5
	MaxDepth int `mapstructure:"max_depth" validate:"omitempty,min=0" yaml:"max_depth"`

	// MaxComputers caps directory enumeration
	// Default: 800000
	MaxComputers int `mapstructure:"max_computers" validate:"omitempty,min=1" yaml:"max_computers"`

	// SMBPort is the SMB port
	// Default: 445
	SMBPort int `mapstructure:"smb_port" validate:"omitempty,min=1,max=65535" yaml:"smb_port"`

	// ConnTimeout bounds the TCP connect to a host
	// Default: 5s
	ConnTimeout time.Duration `mapstructure:"conn_timeout" yaml:"conn_timeout"`

	// ShareTimeout bounds the scan of a single share
	// Default: 30s
	ShareTimeout time.Duration `mapstructure:"share_timeout" yaml:"share_timeout"`

	// HostTimeout bounds the scan of a whole host, all shares included
	// Default: 5m
	HostTimeout time.Duration `mapstructure:"host_timeout" yaml:"host_timeout"`

	// ExcludedShares are share names never scanned (case-insensitive)
	// Default: [ADMIN$, IPC$, print$]
	ExcludedShares []string `mapstructure:"excluded_shares" yaml:"excluded_shares"`

	// Sensitive enables the recursive sensitive-filename walk. Shares
	// are still probed and inventoried when disabled
	// Default: true
	Sensitive *bool `mapstructure:"sensitive" yaml:"sensitive"`

	// ShutdownGrace is how long a cancelled run waits for in-flight
	// hosts
	// Default: 30s
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

// SensitiveEnabled returns whether the sensitive-filename walk is on.
// Defaults to true when unset.
func (c *ScanConfig) SensitiveEnabled() bool {
	if c.Sensitive == nil {
		return true
	}
	return *c.Sensitive
}

// MetricsConfig configures Prometheus metrics collection.
// When Enabled is false, no metrics are collected (zero overhead).
// The /metrics endpoint is served by the API server in serve mode.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// StatusConfig configures the scan status store used by serve mode.
// One-shot CLI scans keep status in memory.
type StatusConfig struct {
	// Path is the Badger directory for persisted scan statuses
	// Default: $XDG_CONFIG_HOME/sharescan/status
	Path string `mapstructure:"path" yaml:"path"`

	// TTL is how long scan statuses are retained
	// Default: 24h
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ExportConfig configures report output targets.
type ExportConfig struct {
	// Dir is the directory report bundles and CSVs are written to
	// Default: current directory
	Dir string `mapstructure:"dir" yaml:"dir"`

	// S3 configures optional report upload to an S3 bucket
	S3 S3ExportConfig `mapstructure:"s3" yaml:"s3"`
}

// S3ExportConfig configures report upload to S3-compatible storage.
// Credentials default to the AWS SDK chain (environment, shared config,
// instance role); static keys here are for MinIO-style deployments.
type S3ExportConfig struct {
	// Enabled controls whether exports are uploaded after writing
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bucket is the destination bucket (required when enabled)
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Prefix is prepended to every object key
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`

	// Region is the bucket region
	Region string `mapstructure:"region" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint for S3-compatible storage
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// AccessKeyID and SecretAccessKey select static credentials
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// ForcePathStyle uses path-style addressing (MinIO, localstack)
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// Parallel caps concurrent uploads
	// Default: 4
	Parallel int `mapstructure:"parallel" validate:"omitempty,min=1" yaml:"parallel"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SHARESCAN_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: User-friendly error with instructions if config not found
func MustLoad(configPath string) (*Config, error) {
	// Determine config path
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  sharescan config init\n\n"+
				"Or specify a custom config file:\n"+
				"  sharescan <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  sharescan config init --config %s",
				configPath, configPath)
		}
	}

	// Load configuration
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file with restricted permissions (0600 = owner read/write only).
	// Config files may contain the API JWT secret or S3 keys.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use SHARESCAN_ prefix and underscores
	// Example: SHARESCAN_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("SHARESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/sharescan/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Other errors are problems
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to time.Duration
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sharescan")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "sharescan")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the init command).
func GetConfigDir() string {
	return getConfigDir()
}
