package config

import (
	"context"
	"fmt"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
	"github.com/bastionsec/sharescan/pkg/directory"
	"github.com/bastionsec/sharescan/pkg/engine"
	"github.com/bastionsec/sharescan/pkg/export"
	"github.com/bastionsec/sharescan/pkg/metrics"
	"github.com/bastionsec/sharescan/pkg/patterns"
	"github.com/bastionsec/sharescan/pkg/scanner"
	"github.com/bastionsec/sharescan/pkg/status"
	"github.com/prometheus/client_golang/prometheus"
)

// InitializeMetrics installs the process-wide Prometheus registry when
// metrics are enabled. Returns nil when disabled; all recording sites
// degrade to no-ops in that case.
func InitializeMetrics(cfg *Config) *prometheus.Registry {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.InitRegistry()
}

// CreateDirectorySource builds the LDAP computer source for a scan run.
// Credentials come from the prompt, flags or API request, never from
// the configuration file.
func CreateDirectorySource(cfg DirectoryConfig, creds ntlm.Credentials) (*directory.Source, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("directory server is required")
	}

	return directory.New(&directory.Config{
		Server:             cfg.Server,
		Port:               cfg.Port,
		Domain:             cfg.Domain,
		BaseDN:             cfg.BaseDN,
		UseTLS:             cfg.UseTLS,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Auth:               directory.AuthMethod(cfg.Auth),
		Krb5Conf:           cfg.Krb5Conf,
		Credentials:        creds,
		BindRetries:        cfg.BindRetries,
		BindBackoff:        cfg.BindBackoff,
		DialTimeout:        cfg.DialTimeout,
		RequestTimeout:     cfg.RequestTimeout,
		PageSize:           uint32(cfg.PageSize),
	})
}

// CreateScannerFactory returns the factory the engine calls once the
// pattern set for the run is frozen.
func CreateScannerFactory(cfg ScanConfig, creds ntlm.Credentials) engine.ScannerFactory {
	return func(registry *patterns.Registry) (engine.HostScanner, error) {
		return scanner.New(&scanner.Config{
			Port:           cfg.SMBPort,
			Credentials:    creds,
			ConnTimeout:    cfg.ConnTimeout,
			ShareTimeout:   cfg.ShareTimeout,
			HostTimeout:    cfg.HostTimeout,
			MaxDepth:       cfg.MaxDepth,
			ExcludedShares: cfg.ExcludedShares,
		}, registry)
	}
}

// EngineConfig converts the scan section into an engine configuration.
// Domain and OU are per-run inputs; everything else comes from the
// configuration file.
func EngineConfig(cfg ScanConfig, domain, ou string) engine.Config {
	return engine.Config{
		Domain:        domain,
		OU:            ou,
		MaxComputers:  cfg.MaxComputers,
		Threads:       cfg.Threads,
		ChunkSize:     cfg.BatchSize,
		StorageBatch:  cfg.BatchSize,
		ScanSensitive: cfg.SensitiveEnabled(),
		ShutdownGrace: cfg.ShutdownGrace,
	}
}

// CreateStatusStore opens the Badger-backed scan status store used by
// serve mode.
func CreateStatusStore(cfg StatusConfig) (*status.Store, error) {
	st, err := status.Open(status.Config{
		Path: cfg.Path,
		TTL:  cfg.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open status store: %w", err)
	}
	return st, nil
}

// CreateUploader builds the S3 report uploader when upload is enabled.
// Returns nil, nil when disabled so callers can skip the upload step.
func CreateUploader(ctx context.Context, cfg S3ExportConfig) (*export.Uploader, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	s3cfg := export.S3Config{
		Bucket:          cfg.Bucket,
		Prefix:          cfg.Prefix,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		ForcePathStyle:  cfg.ForcePathStyle,
		Parallel:        cfg.Parallel,
	}

	client, err := export.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return export.NewUploader(ctx, client, s3cfg)
}
