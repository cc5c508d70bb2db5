// Package export renders persisted scan sessions into portable
// artifacts: the flat per-share CSV scans have always produced, a
// self-contained JSON dump, and a per-session report bundle, with an
// optional S3 upload for any of them.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bastionsec/sharescan/internal/telemetry"
	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/store"
)

// Artifact filenames inside a report bundle.
const (
	SharesCSV    = "shares_overview.csv"
	SensitiveCSV = "sensitive_files.csv"
	RootFilesCSV = "root_files.csv"
	SummaryTXT   = "summary.txt"
)

// ScanCSVName returns the flat result filename for a scan at the given
// time, share_scan_20060102_150405.csv.
func ScanCSVName(t time.Time) string {
	return "share_scan_" + t.UTC().Format("20060102_150405") + ".csv"
}

// BundleDir returns the default report directory name for the given
// time, reports_20060102_150405.
func BundleDir(t time.Time) string {
	return "reports_" + t.UTC().Format("20060102_150405")
}

// Reader is the slice of the store the exporter reads from.
type Reader interface {
	ListShares(ctx context.Context, filter store.ShareFilter) ([]models.Share, error)
	ListFindings(ctx context.Context, filter store.FindingFilter) ([]models.Finding, error)
	Summary(ctx context.Context, sessionID string) (*models.SessionSummary, error)
}

// Exporter renders one persisted session into files.
type Exporter struct {
	store Reader
}

// New creates an exporter over the given store.
func New(store Reader) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Exporter{store: store}, nil
}

// ScanCSV writes the flat result CSV for a session: one row per
// sensitive file, and a single row for every share without findings.
func (e *Exporter) ScanCSV(ctx context.Context, sessionID string, w io.Writer) error {
	ctx, span := telemetry.StartExportSpan(ctx, "csv", telemetry.SessionID(sessionID))
	defer span.End()

	shares, err := e.sessionShares(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	telemetry.SetAttributes(ctx, telemetry.ExportRows(len(shares)))
	return WriteScanCSV(w, shares)
}

// Bundle writes the per-session report artifacts into dir, creating it
// if needed, and returns the written paths: the shares overview, the
// sensitive file listing, the root inventories and a plain-text access
// summary.
func (e *Exporter) Bundle(ctx context.Context, sessionID, dir string) ([]string, error) {
	ctx, span := telemetry.StartExportSpan(ctx, "bundle", telemetry.SessionID(sessionID))
	defer span.End()

	shares, err := e.sessionShares(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	findings, err := e.store.ListFindings(ctx, store.FindingFilter{SessionID: sessionID})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("list findings: %w", err)
	}
	summary, err := e.store.Summary(ctx, sessionID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("session summary: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	artifacts := []struct {
		name  string
		write func(io.Writer) error
	}{
		{SharesCSV, func(w io.Writer) error { return writeSharesCSV(w, shares) }},
		{SensitiveCSV, func(w io.Writer) error { return writeSensitiveCSV(w, findings) }},
		{RootFilesCSV, func(w io.Writer) error { return writeRootFilesCSV(w, shares) }},
		{SummaryTXT, func(w io.Writer) error { return writeSummary(w, summary) }},
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path, err := writeArtifact(dir, a.name, a.write)
		if err != nil {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// sessionShares loads a session's shares with files preloaded, ordered
// by hostname then share name for stable export output.
func (e *Exporter) sessionShares(ctx context.Context, sessionID string) ([]models.Share, error) {
	shares, err := e.store.ListShares(ctx, store.ShareFilter{SessionID: sessionID, WithFiles: true})
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Hostname != shares[j].Hostname {
			return shares[i].Hostname < shares[j].Hostname
		}
		return shares[i].ShareName < shares[j].ShareName
	})
	return shares, nil
}

func writeArtifact(dir, name string, write func(io.Writer) error) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path, nil
}
