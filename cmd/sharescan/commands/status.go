package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/internal/cli/output"
	"github.com/bastionsec/sharescan/internal/cli/timeutil"
	"github.com/bastionsec/sharescan/pkg/apiclient"
	"github.com/bastionsec/sharescan/pkg/config"
	"github.com/bastionsec/sharescan/pkg/status"
)

var (
	statusServerURL string
	statusOutput    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and scan status",
	Long: `Display the status of a running sharescan server and its scans.

The command queries the server's health endpoint and lists tracked
scans: running ones with their progress, and recently finished ones
with their result counts.

Examples:
  # Check the local server (port from config)
  sharescan status

  # Check a remote server
  sharescan status --server-url http://scanhost:8080

  # Output as JSON
  sharescan status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServerURL, "server-url", "", "sharescan server URL (default: http://localhost:<api.port>)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// serverStatus aggregates the health probe and the scan listing for one
// status invocation.
type serverStatus struct {
	Running   bool                `json:"running" yaml:"running"`
	Healthy   bool                `json:"healthy" yaml:"healthy"`
	Message   string              `json:"message" yaml:"message"`
	StartedAt string              `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string              `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Scans     []status.ScanStatus `json:"scans,omitempty" yaml:"scans,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	url := statusServerURL
	if url == "" {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return err
		}
		url = fmt.Sprintf("http://localhost:%d", cfg.API.Port)
	}

	st := serverStatus{Message: "Server is not running"}

	client := apiclient.New(url)
	if health, err := client.Health(); err == nil {
		st.Running = true
		st.Healthy = health.Healthy()
		st.StartedAt = health.Data.StartedAt
		st.Uptime = health.Data.Uptime
		if st.Healthy {
			st.Message = "Server is running and healthy"
		} else {
			st.Message = fmt.Sprintf("Server is running but unhealthy: %s", health.Error)
		}

		if scans, err := client.ListScans(); err == nil {
			st.Scans = scans
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, st)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, st)
	default:
		return printStatusTable(st, url)
	}
}

func printStatusTable(st serverStatus, url string) error {
	fmt.Println()
	fmt.Println("sharescan Server Status")
	fmt.Println("=======================")
	fmt.Println()

	if st.Running {
		if st.Healthy {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (unhealthy)\033[0m\n")
		}
		fmt.Printf("  Server:     %s\n", url)
		if st.StartedAt != "" {
			fmt.Printf("  Started:    %s\n", timeutil.FormatTime(st.StartedAt))
		}
		if st.Uptime != "" {
			fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(st.Uptime))
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
		fmt.Printf("  Server:     %s\n", url)
	}

	fmt.Println()
	fmt.Printf("  %s\n", st.Message)
	fmt.Println()

	if len(st.Scans) == 0 {
		return nil
	}

	table := output.NewTableData("SCAN", "STATE", "DOMAIN", "PROGRESS", "STARTED", "SHARES", "SENSITIVE")
	for _, s := range st.Scans {
		table.AddRow(s.ID, string(s.State), s.Domain,
			formatScanProgress(s),
			humanize.Time(s.StartedAt),
			humanize.Comma(int64(s.Shares)),
			humanize.Comma(int64(s.Sensitive)))
	}
	return output.PrintTable(os.Stdout, table)
}

func formatScanProgress(s status.ScanStatus) string {
	if s.State != status.StateRunning {
		return "-"
	}
	if s.Progress.Total == 0 {
		return "enumerating"
	}
	return fmt.Sprintf("%d/%d", s.Progress.Processed, s.Progress.Total)
}
