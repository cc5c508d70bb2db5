package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/cmd/sharescan/cmdutil"
	"github.com/bastionsec/sharescan/pkg/config"
	"github.com/bastionsec/sharescan/pkg/export"
)

var (
	exportDir    string
	exportUpload bool
	exportCSV    bool
	exportJSON   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a scan session",
	Long: `Export a scan session's results as files.

By default a bundle directory is written containing the share
inventory and sensitive-findings CSVs plus a full-session JSON dump.
With --csv or --json a single artifact is written to stdout instead,
for piping.

The session id "latest" selects the most recent session. When S3
export is configured (export.s3 in config, or --upload), the bundle is
uploaded after writing.

Examples:
  # Bundle the most recent session into the configured export dir
  sharescan export latest

  # Bundle a specific session somewhere else
  sharescan export 7d9e4a1c-... --dir /tmp/reports

  # Stream just the share CSV
  sharescan export latest --csv > shares.csv

  # Bundle and upload to the configured bucket
  sharescan export latest --upload`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (default: export.dir from config)")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "Upload the bundle to S3 even if export.s3.enabled is false")
	exportCmd.Flags().BoolVar(&exportCSV, "csv", false, "Write the scan CSV to stdout instead of a bundle")
	exportCmd.Flags().BoolVar(&exportJSON, "json", false, "Write the session JSON to stdout instead of a bundle")
	exportCmd.MarkFlagsMutuallyExclusive("csv", "json")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, st, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	sessionID, err := cmdutil.ResolveSession(ctx, st, args[0])
	if err != nil {
		return err
	}

	exporter, err := export.New(st)
	if err != nil {
		return err
	}

	// Single-artifact modes stream to stdout and skip the bundle.
	if exportCSV {
		return exporter.ScanCSV(ctx, sessionID, os.Stdout)
	}
	if exportJSON {
		return exporter.SessionJSON(ctx, sessionID, os.Stdout)
	}

	dir := exportDir
	if dir == "" {
		dir = cfg.Export.Dir
	}
	if dir == "" {
		dir = "."
	}

	paths, err := exporter.Bundle(ctx, sessionID, dir)
	if err != nil {
		return err
	}
	fmt.Printf("Exported session %s:\n", sessionID)
	for _, p := range paths {
		fmt.Printf("  %s\n", p)
	}

	if !cfg.Export.S3.Enabled && !exportUpload {
		return nil
	}
	if cfg.Export.S3.Bucket == "" {
		return fmt.Errorf("S3 upload requested but export.s3.bucket is not configured")
	}

	s3cfg := cfg.Export.S3
	s3cfg.Enabled = true
	uploader, err := config.CreateUploader(ctx, s3cfg)
	if err != nil {
		return err
	}

	keys, err := uploader.UploadAll(ctx, paths)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded to s3://%s:\n", cfg.Export.S3.Bucket)
	for _, key := range keys {
		fmt.Printf("  %s\n", key)
	}

	return nil
}
