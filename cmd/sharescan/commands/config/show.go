package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/internal/cli/output"
	"github.com/bastionsec/sharescan/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current sharescan configuration.

Shows the effective configuration after defaults, the config file, and
SHARESCAN_* environment variables have been merged. By default outputs
YAML format. Use --output to change format.

Examples:
  # Show effective config as YAML
  sharescan config show

  # Show as JSON
  sharescan config show --output json

  # Show a specific config file
  sharescan config show --config /etc/sharescan/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
