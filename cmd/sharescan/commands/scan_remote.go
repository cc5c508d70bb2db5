package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bastionsec/sharescan/pkg/api/handlers"
	"github.com/bastionsec/sharescan/pkg/apiclient"
	"github.com/bastionsec/sharescan/pkg/status"
)

// remotePollInterval is how often a followed remote scan is refreshed.
// Progress on the server side is lossy anyway, so polling faster buys
// nothing.
const remotePollInterval = 2 * time.Second

// runRemoteScan submits the scan to a sharescan server and follows its
// progress over the API. Detaching with Ctrl+C leaves the scan running
// server-side.
func runRemoteScan(password string) error {
	if scanUsername == "" || password == "" {
		return fmt.Errorf("remote scans require --username and a password")
	}
	if scanServer == "" {
		return fmt.Errorf("remote scans require --server")
	}

	client := apiclient.New(scanRemote)
	if scanToken != "" {
		client = client.WithToken(scanToken)
	}

	req := handlers.ScanRequest{
		Domain:       scanDomain,
		Server:       scanServer,
		Username:     scanUsername,
		Password:     password,
		LDAPPort:     scanLDAPPort,
		Threads:      scanThreads,
		BatchSize:    scanBatchSize,
		MaxDepth:     scanMaxDepth,
		MaxComputers: scanMaxComputers,
		OU:           scanOU,
	}
	if scanShareTimeout > 0 {
		req.ScanTimeout = int(scanShareTimeout.Seconds())
	}
	if scanHostTimeout > 0 {
		req.HostTimeout = int(scanHostTimeout.Seconds())
	}

	resp, err := client.StartScan(req)
	if err != nil {
		return fmt.Errorf("failed to start remote scan: %w", err)
	}
	fmt.Printf("Scan %s started on %s\n", resp.ScanID, scanRemote)

	return watchRemoteScan(client, resp.ScanID)
}

// watchRemoteScan polls the scan until it reaches a terminal state.
func watchRemoteScan(client *apiclient.Client, scanID string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(remotePollInterval)
	defer ticker.Stop()

	prog := newProgressLine(os.Stderr)
	sink := prog.Sink()

	for {
		select {
		case <-sigChan:
			prog.Finish()
			fmt.Println("Detached. The scan keeps running on the server; follow it with 'sharescan status'.")
			return nil

		case <-ticker.C:
			st, err := client.GetScan(scanID)
			if err != nil {
				prog.Finish()
				return fmt.Errorf("lost track of scan %s: %w", scanID, err)
			}
			if st.State.Terminal() {
				prog.Finish()
				return printRemoteResult(st)
			}
			if st.Progress.Total > 0 {
				sink.Report(st.Progress.CurrentHost, st.Progress.Processed, st.Progress.Total)
			}
		}
	}
}

func printRemoteResult(st *status.ScanStatus) error {
	if st.State == status.StateCompleted {
		fmt.Printf("Scan %s completed: %s shares, %s sensitive files (session %s)\n",
			st.ID, humanize.Comma(int64(st.Shares)), humanize.Comma(int64(st.Sensitive)), st.SessionID)
		return nil
	}
	if st.Error != "" {
		return fmt.Errorf("scan %s failed: %s", st.ID, st.Error)
	}
	return fmt.Errorf("scan %s failed", st.ID)
}
