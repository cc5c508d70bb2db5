package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/pkg/api"
	"github.com/bastionsec/sharescan/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration file",
	Long: `Create a starter sharescan configuration file with sensible defaults.

By default, the configuration file is created at
$XDG_CONFIG_HOME/sharescan/config.yaml. Use the global --config flag to
choose a custom path. Credentials are never written to the file; supply
them per scan with flags, the interactive prompt, or the API request.

Examples:
  # Initialize at the default location
  sharescan config init

  # Initialize at a custom path
  sharescan config init --config /etc/sharescan/config.yaml

  # Overwrite an existing file
  sharescan config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the file to point at your directory server and database")
	fmt.Println("  2. Run a scan: sharescan scan -d corp.example.com -u auditor")
	fmt.Printf("  3. Or start the API server: sharescan serve --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random JWT secret has been generated for development use.")
	fmt.Println("  For production, generate a secure secret and use an environment variable:")
	fmt.Println("    # Generates a 64-character hex string (32 bytes of entropy)")
	fmt.Printf("    export %s=$(openssl rand -hex 32)\n", api.EnvAPISecret)

	return nil
}
