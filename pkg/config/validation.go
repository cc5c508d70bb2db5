package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid values.
//
// Struct tag validation (oneof, min, max, ...) runs first, then
// cross-field checks that tags cannot express. Validation never mutates
// the configuration; normalization happens in ApplyDefaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling endpoint is required when profiling is enabled")
	}

	if cfg.Export.S3.Enabled && cfg.Export.S3.Bucket == "" {
		return fmt.Errorf("export s3 bucket is required when s3 upload is enabled")
	}

	// The API secret may arrive via SHARESCAN_API_SECRET at serve time,
	// so an empty secret is not an error here. A present-but-short one is.
	if secret := cfg.API.JWT.Secret; secret != "" && len(secret) < 32 {
		return fmt.Errorf("api jwt secret must be at least 32 characters, got %d", len(secret))
	}

	return nil
}
