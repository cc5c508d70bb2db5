// Package commands implements the CLI commands for the sharescan binary.
package commands

import (
	"os"

	configcmd "github.com/bastionsec/sharescan/cmd/sharescan/commands/config"
	patternscmd "github.com/bastionsec/sharescan/cmd/sharescan/commands/patterns"
	reportcmd "github.com/bastionsec/sharescan/cmd/sharescan/commands/report"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sharescan",
	Short: "SMB share scanner for Active Directory domains",
	Long: `sharescan enumerates domain computers over LDAP, probes their SMB
shares concurrently, and flags filenames matching sensitivity patterns.
Results are persisted per scan session for reporting and export.

Run one-shot scans with "sharescan scan", or start the REST control
surface with "sharescan serve" and drive scans over HTTP.

Use "sharescan [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/sharescan/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(nthashCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(reportcmd.Cmd)
	rootCmd.AddCommand(patternscmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
