package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the sharescan configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  sharescan config validate

  # Validate specific config file
  sharescan config validate --config /etc/sharescan/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string

	if cfg.API.IsEnabled() && !cfg.API.HasJWTSecret() {
		warnings = append(warnings, "JWT secret not configured - API authentication will fail")
	}

	if cfg.Directory.Server == "" {
		warnings = append(warnings, "Directory server not configured - scans will need --server")
	}

	if !cfg.Scan.SensitiveEnabled() {
		warnings = append(warnings, "Sensitive filename matching is disabled")
	}

	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Database type:   %s\n", cfg.Database.Type)
	fmt.Printf("  API port:        %d\n", cfg.API.Port)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)
	fmt.Printf("  Scan threads:    %d\n", cfg.Scan.Threads)

	return nil
}
