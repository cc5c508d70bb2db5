package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// configTemplate is the commented sample configuration written by
// InitConfig. %s is replaced with a freshly generated JWT secret.
const configTemplate = `# ShareScan Configuration File
#
# Every value can be overridden with a SHARESCAN_* environment variable,
# e.g. SHARESCAN_LOGGING_LEVEL=DEBUG or SHARESCAN_SCAN_THREADS=50.
# Credentials are never read from this file; supply them interactively,
# via flags, or in the API request.

logging:
  # Log level: DEBUG, INFO, WARN, ERROR
  level: "INFO"
  # Log format: text, json
  format: "text"
  # Log output: stdout, stderr, or a file path
  output: "stdout"

# Directory endpoint computers are enumerated from.
directory:
  # LDAP server hostname or address
  server: ""
  # DNS domain to enumerate, e.g. corp.example.com
  domain: ""
  # LDAP port (389, or 636 with TLS)
  port: 389
  # Connect over LDAPS
  use_tls: false
  # Bind method: ntlm, simple, kerberos
  auth: "ntlm"

# Scan behavior.
scan:
  # Concurrent host scans
  threads: 10
  # Host partition size and storage flush threshold
  batch_size: 1000
  # Directory levels below the share root the sensitive walk descends
  max_depth: 5
  # Directory enumeration cap
  max_computers: 800000
  # Per-share scan budget
  share_timeout: 30s
  # Per-host scan budget, all shares included
  host_timeout: 5m
  # Shares never scanned (case-insensitive)
  excluded_shares:
    - "ADMIN$"
    - "IPC$"
    - "print$"
  # Search accessible trees for sensitive filenames
  sensitive: true

# Result database. SQLite needs no setup; use postgres for fleet-scale
# scans.
database:
  type: sqlite
  # postgres:
  #   host: localhost
  #   port: 5432
  #   database: sharescan
  #   user: sharescan
  #   password: ""
  #   min_conns: 10
  #   max_conns: 100

# Prometheus metrics, served at /metrics by the API server.
metrics:
  enabled: false

# API server (serve mode).
api:
  enabled: true
  port: 8080
  # At most this many scans run at once; further requests get 409
  max_concurrent_scans: 1
  jwt:
    # HMAC signing key for API tokens, at least 32 characters.
    # SHARESCAN_API_SECRET overrides this value.
    secret: "%s"
    token_duration: 24h

# Scan status store (serve mode).
status:
  ttl: 24h

# Report export targets.
export:
  # Directory report bundles and CSVs are written to
  dir: "."
  s3:
    enabled: false
    # bucket: sharescan-reports
    # region: us-east-1

# OpenTelemetry tracing (opt-in).
telemetry:
  enabled: false
  endpoint: "localhost:4317"
  insecure: true
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: "http://localhost:4040"

# Maximum time to wait for graceful shutdown
shutdown_timeout: 30s
`

// InitConfig creates a sample configuration file at the default
// location. Returns the path of the created file.
//
// Fails if the file already exists unless force is set.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath creates a sample configuration file at the given
// path, creating parent directories as needed.
//
// Fails if the file already exists unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := generateJWTSecret()
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	content := fmt.Sprintf(configTemplate, secret)

	// 0600: the file carries the generated JWT secret.
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateJWTSecret returns 32 bytes of entropy hex-encoded, the same
// shape as `openssl rand -hex 32`.
func generateJWTSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
