//go:build integration

package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/patterns"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *GORMStore {
	t.Helper()
	store, err := New(&Config{
		Type: DatabaseTypeSQLite,
		SQLite: SQLiteConfig{
			Path: ":memory:",
		},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// testShare builds a share record for a given host/share/time.
func testShare(hostname, shareName string, scanTime time.Time) models.Share {
	return models.Share{
		Hostname:    hostname,
		ShareName:   shareName,
		AccessLevel: models.AccessReadOnly.String(),
		TotalFiles:  3,
		TotalDirs:   1,
		HiddenFiles: 1,
		ScanTime:    scanTime,
		RootFiles: []models.RootFile{
			{Position: 0, Name: "docs", Kind: "directory", Attributes: "DIRECTORY"},
			{Position: 1, Name: "readme.txt", Kind: "file", SizeBytes: 120},
		},
		SensitiveFiles: []models.SensitiveFile{
			{FilePath: "\\\\" + hostname + "\\" + shareName + "\\passwords.txt", FileName: "passwords.txt", DetectionType: "credential", Description: "Files containing passwords"},
		},
	}
}

func TestNewStore(t *testing.T) {
	t.Run("default config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()

		if config.Type != DatabaseTypeSQLite {
			t.Errorf("expected SQLite, got %s", config.Type)
		}
		if config.OpTimeout != 30*time.Second {
			t.Errorf("expected 30s op timeout, got %s", config.OpTimeout)
		}
		if config.MaxRetries != 3 {
			t.Errorf("expected 3 retries, got %d", config.MaxRetries)
		}
	})

	t.Run("postgres pool defaults", func(t *testing.T) {
		config := &Config{Type: DatabaseTypePostgres}
		config.ApplyDefaults()

		if config.Postgres.MinConns != 10 {
			t.Errorf("expected 10 min connections, got %d", config.Postgres.MinConns)
		}
		if config.Postgres.MaxConns != 100 {
			t.Errorf("expected 100 max connections, got %d", config.Postgres.MaxConns)
		}
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		config := &Config{
			Type: "invalid",
		}
		_, err := New(config)
		if err == nil {
			t.Error("expected error for invalid config")
		}
	})

	t.Run("creates in-memory store", func(t *testing.T) {
		store := createTestStore(t)

		if err := store.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	var sessionID string

	t.Run("begin session", func(t *testing.T) {
		session, err := store.BeginSession(ctx, "CORP")
		if err != nil {
			t.Fatalf("failed to begin session: %v", err)
		}
		if session.ID == "" {
			t.Error("expected non-empty session ID")
		}
		if session.Status != models.SessionRunning.String() {
			t.Errorf("expected running status, got %q", session.Status)
		}
		if session.Domain != "CORP" {
			t.Errorf("expected domain CORP, got %q", session.Domain)
		}
		sessionID = session.ID
	})

	t.Run("get session", func(t *testing.T) {
		session, err := store.GetSession(ctx, sessionID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if session.EndTime != nil {
			t.Error("expected nil end time for running session")
		}
	})

	t.Run("get session not found", func(t *testing.T) {
		_, err := store.GetSession(ctx, "missing")
		if !errors.Is(err, models.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("end session", func(t *testing.T) {
		totals := models.SessionTotals{Hosts: 12, Shares: 40, Sensitive: 7}
		if err := store.EndSession(ctx, sessionID, models.SessionCompleted, totals); err != nil {
			t.Fatalf("failed to end session: %v", err)
		}

		session, err := store.GetSession(ctx, sessionID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if session.Status != models.SessionCompleted.String() {
			t.Errorf("expected completed status, got %q", session.Status)
		}
		if session.EndTime == nil {
			t.Error("expected end time to be set")
		}
		if session.TotalHosts != 12 || session.TotalShares != 40 || session.TotalSensitive != 7 {
			t.Errorf("unexpected totals: %+v", session)
		}
	})

	t.Run("end session twice fails", func(t *testing.T) {
		err := store.EndSession(ctx, sessionID, models.SessionFailed, models.SessionTotals{})
		if !errors.Is(err, models.ErrSessionSealed) {
			t.Errorf("expected ErrSessionSealed, got %v", err)
		}

		// First terminal status wins.
		session, _ := store.GetSession(ctx, sessionID)
		if session.Status != models.SessionCompleted.String() {
			t.Errorf("status changed after seal: %q", session.Status)
		}
	})

	t.Run("end unknown session fails", func(t *testing.T) {
		err := store.EndSession(ctx, "missing", models.SessionCompleted, models.SessionTotals{})
		if !errors.Is(err, models.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("end with non-terminal status fails", func(t *testing.T) {
		err := store.EndSession(ctx, sessionID, models.SessionRunning, models.SessionTotals{})
		if err == nil {
			t.Error("expected error for non-terminal status")
		}
	})

	t.Run("list sessions newest first", func(t *testing.T) {
		second, err := store.BeginSession(ctx, "CORP")
		if err != nil {
			t.Fatalf("failed to begin second session: %v", err)
		}

		sessions, err := store.ListSessions(ctx, 0, 0)
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(sessions))
		}
		if sessions[0].ID != second.ID {
			t.Errorf("expected newest session first, got %q", sessions[0].ID)
		}
	})
}

func TestStoreBatch(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "CORP")
	if err != nil {
		t.Fatalf("failed to begin session: %v", err)
	}

	scanTime := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	t.Run("stores records with children", func(t *testing.T) {
		records := []models.Share{
			testShare("fs01.corp.example.com", "docs", scanTime),
			testShare("fs01.corp.example.com", "public", scanTime),
		}

		result, err := store.StoreBatch(ctx, session.ID, records)
		if err != nil {
			t.Fatalf("failed to store batch: %v", err)
		}
		if result.SharesWritten != 2 || result.Skipped != 0 {
			t.Errorf("expected 2 stored / 0 skipped, got %+v", result)
		}
		if result.SensitiveWritten != 2 {
			t.Errorf("expected 2 sensitive rows written, got %d", result.SensitiveWritten)
		}

		shares, err := store.ListShares(ctx, ShareFilter{SessionID: session.ID, WithFiles: true})
		if err != nil {
			t.Fatalf("failed to list shares: %v", err)
		}
		if len(shares) != 2 {
			t.Fatalf("expected 2 shares, got %d", len(shares))
		}
		for _, share := range shares {
			if len(share.RootFiles) != 2 {
				t.Errorf("share %s: expected 2 root files, got %d", share.ShareName, len(share.RootFiles))
			}
			if len(share.SensitiveFiles) != 1 {
				t.Errorf("share %s: expected 1 sensitive file, got %d", share.ShareName, len(share.SensitiveFiles))
			}
			if share.RootFiles[0].Position != 0 || share.RootFiles[0].Name != "docs" {
				t.Errorf("root files not in position order: %+v", share.RootFiles)
			}
		}
	})

	t.Run("duplicate record is skipped", func(t *testing.T) {
		records := []models.Share{
			testShare("fs01.corp.example.com", "docs", scanTime),
			testShare("fs02.corp.example.com", "backup", scanTime),
		}

		result, err := store.StoreBatch(ctx, session.ID, records)
		if err != nil {
			t.Fatalf("failed to store batch: %v", err)
		}
		if result.SharesWritten != 1 || result.Skipped != 1 {
			t.Errorf("expected 1 stored / 1 skipped, got %+v", result)
		}
	})

	t.Run("unknown session skips all records", func(t *testing.T) {
		records := []models.Share{
			testShare("fs03.corp.example.com", "docs", scanTime),
		}

		result, err := store.StoreBatch(ctx, "missing", records)
		if err != nil {
			t.Fatalf("unexpected batch error: %v", err)
		}
		if result.SharesWritten != 0 || result.Skipped != 1 {
			t.Errorf("expected 0 stored / 1 skipped, got %+v", result)
		}
	})

	t.Run("oversized fields are truncated", func(t *testing.T) {
		record := testShare("fs04.corp.example.com", "docs", scanTime)
		record.ErrorMessage = strings.Repeat("x", 5000)
		record.TotalFiles = -3
		record.SensitiveFiles[0].FilePath = "\\\\fs04\\docs\\" + strings.Repeat("d", 5000)

		result, err := store.StoreBatch(ctx, session.ID, []models.Share{record})
		if err != nil {
			t.Fatalf("failed to store batch: %v", err)
		}
		if result.SharesWritten != 1 {
			t.Fatalf("expected record stored, got %+v", result)
		}

		shares, err := store.ListShares(ctx, ShareFilter{SessionID: session.ID, Hostname: "fs04.corp.example.com", WithFiles: true})
		if err != nil {
			t.Fatalf("failed to list shares: %v", err)
		}
		if len(shares) != 1 {
			t.Fatalf("expected 1 share, got %d", len(shares))
		}
		if len(shares[0].ErrorMessage) != maxErrorLen {
			t.Errorf("error message not truncated: %d", len(shares[0].ErrorMessage))
		}
		if shares[0].TotalFiles != 0 {
			t.Errorf("negative count not clamped: %d", shares[0].TotalFiles)
		}
		if len(shares[0].SensitiveFiles[0].FilePath) != maxPathLen {
			t.Errorf("file path not truncated: %d", len(shares[0].SensitiveFiles[0].FilePath))
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		result, err := store.StoreBatch(ctx, session.ID, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.SharesWritten != 0 || result.Skipped != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("list shares filters by access level", func(t *testing.T) {
		record := testShare("fs05.corp.example.com", "locked", scanTime)
		record.AccessLevel = models.AccessDenied.String()
		record.RootFiles = nil
		record.SensitiveFiles = nil

		if _, err := store.StoreBatch(ctx, session.ID, []models.Share{record}); err != nil {
			t.Fatalf("failed to store batch: %v", err)
		}

		shares, err := store.ListShares(ctx, ShareFilter{SessionID: session.ID, AccessLevel: models.AccessDenied.String()})
		if err != nil {
			t.Fatalf("failed to list shares: %v", err)
		}
		if len(shares) != 1 || shares[0].ShareName != "locked" {
			t.Errorf("unexpected filter result: %+v", shares)
		}
	})

	t.Run("get share not found", func(t *testing.T) {
		_, err := store.GetShare(ctx, "missing")
		if !errors.Is(err, models.ErrShareNotFound) {
			t.Errorf("expected ErrShareNotFound, got %v", err)
		}
	})
}

func TestListFindings(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "CORP")
	if err != nil {
		t.Fatalf("failed to begin session: %v", err)
	}

	scanTime := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	record := testShare("fs01.corp.example.com", "docs", scanTime)
	record.SensitiveFiles = append(record.SensitiveFiles, models.SensitiveFile{
		FilePath:      "\\\\fs01.corp.example.com\\docs\\hr\\salaries.xlsx",
		FileName:      "salaries.xlsx",
		DetectionType: "hr",
		Description:   "HR and salary data",
	})

	if _, err := store.StoreBatch(ctx, session.ID, []models.Share{record}); err != nil {
		t.Fatalf("failed to store batch: %v", err)
	}

	t.Run("returns joined findings", func(t *testing.T) {
		findings, err := store.ListFindings(ctx, FindingFilter{SessionID: session.ID})
		if err != nil {
			t.Fatalf("failed to list findings: %v", err)
		}
		if len(findings) != 2 {
			t.Fatalf("expected 2 findings, got %d", len(findings))
		}
		for _, f := range findings {
			if f.Hostname != "fs01.corp.example.com" || f.ShareName != "docs" {
				t.Errorf("finding missing share join: %+v", f)
			}
		}
	})

	t.Run("filters by category", func(t *testing.T) {
		findings, err := store.ListFindings(ctx, FindingFilter{SessionID: session.ID, Category: "hr"})
		if err != nil {
			t.Fatalf("failed to list findings: %v", err)
		}
		if len(findings) != 1 || findings[0].FileName != "salaries.xlsx" {
			t.Errorf("unexpected category filter result: %+v", findings)
		}
	})
}

func TestSummary(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "CORP")
	if err != nil {
		t.Fatalf("failed to begin session: %v", err)
	}

	scanTime := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	readable := testShare("fs01.corp.example.com", "docs", scanTime)
	denied := testShare("fs02.corp.example.com", "locked", scanTime)
	denied.AccessLevel = models.AccessDenied.String()
	denied.RootFiles = nil
	denied.SensitiveFiles = nil

	if _, err := store.StoreBatch(ctx, session.ID, []models.Share{readable, denied}); err != nil {
		t.Fatalf("failed to store batch: %v", err)
	}

	summary, err := store.Summary(ctx, session.ID)
	if err != nil {
		t.Fatalf("failed to build summary: %v", err)
	}

	if summary.ShareCount != 2 {
		t.Errorf("expected 2 shares, got %d", summary.ShareCount)
	}
	if summary.AccessLevels[models.AccessReadOnly.String()] != 1 {
		t.Errorf("unexpected access level counts: %+v", summary.AccessLevels)
	}
	if summary.SensitiveCount != 1 {
		t.Errorf("expected 1 sensitive finding, got %d", summary.SensitiveCount)
	}
	if len(summary.TopCategories) != 1 || summary.TopCategories[0].Category != "credential" {
		t.Errorf("unexpected top categories: %+v", summary.TopCategories)
	}
	if len(summary.TopHosts) != 1 || summary.TopHosts[0].Hostname != "fs01.corp.example.com" {
		t.Errorf("unexpected top hosts: %+v", summary.TopHosts)
	}

	t.Run("summary for unknown session fails", func(t *testing.T) {
		_, err := store.Summary(ctx, "missing")
		if !errors.Is(err, models.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestPatternOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	t.Run("defaults are seeded on init", func(t *testing.T) {
		rows, err := store.ListPatterns(ctx, false)
		if err != nil {
			t.Fatalf("failed to list patterns: %v", err)
		}
		if len(rows) != len(patterns.Defaults()) {
			t.Errorf("expected %d seeded patterns, got %d", len(patterns.Defaults()), len(rows))
		}
	})

	t.Run("seeding again is a no-op", func(t *testing.T) {
		if err := store.SeedDefaultPatterns(ctx, patterns.Defaults()); err != nil {
			t.Fatalf("failed to re-seed: %v", err)
		}
		rows, _ := store.ListPatterns(ctx, false)
		if len(rows) != len(patterns.Defaults()) {
			t.Errorf("re-seed duplicated patterns: %d", len(rows))
		}
	})

	var patternID string

	t.Run("add pattern", func(t *testing.T) {
		row, err := store.AddPattern(ctx, `(?i)invoice`, "financial", "Invoices")
		if err != nil {
			t.Fatalf("failed to add pattern: %v", err)
		}
		if row.ID == "" || !row.Enabled {
			t.Errorf("unexpected pattern row: %+v", row)
		}
		patternID = row.ID
	})

	t.Run("add duplicate pattern fails", func(t *testing.T) {
		_, err := store.AddPattern(ctx, `(?i)invoice`, "financial", "Invoices")
		if !errors.Is(err, models.ErrDuplicatePattern) {
			t.Errorf("expected ErrDuplicatePattern, got %v", err)
		}
	})

	t.Run("add invalid regex fails", func(t *testing.T) {
		_, err := store.AddPattern(ctx, `([unclosed`, "financial", "")
		if err == nil {
			t.Error("expected error for invalid regex")
		}
	})

	t.Run("update pattern", func(t *testing.T) {
		if err := store.UpdatePattern(ctx, patternID, `(?i)invoice|receipt`, "financial", "Invoices and receipts"); err != nil {
			t.Fatalf("failed to update pattern: %v", err)
		}
		row, err := store.GetPattern(ctx, patternID)
		if err != nil {
			t.Fatalf("failed to get pattern: %v", err)
		}
		if row.Pattern != `(?i)invoice|receipt` {
			t.Errorf("pattern not updated: %q", row.Pattern)
		}
	})

	t.Run("disable pattern", func(t *testing.T) {
		if err := store.SetPatternEnabled(ctx, patternID, false); err != nil {
			t.Fatalf("failed to disable pattern: %v", err)
		}

		enabled, err := store.ListPatterns(ctx, true)
		if err != nil {
			t.Fatalf("failed to list patterns: %v", err)
		}
		for _, row := range enabled {
			if row.ID == patternID {
				t.Error("disabled pattern still listed as enabled")
			}
		}
	})

	t.Run("delete pattern", func(t *testing.T) {
		if err := store.DeletePattern(ctx, patternID); err != nil {
			t.Fatalf("failed to delete pattern: %v", err)
		}
		err := store.DeletePattern(ctx, patternID)
		if !errors.Is(err, models.ErrPatternNotFound) {
			t.Errorf("expected ErrPatternNotFound, got %v", err)
		}
	})

	t.Run("update unknown pattern fails", func(t *testing.T) {
		err := store.UpdatePattern(ctx, "missing", `(?i)x`, "financial", "")
		if !errors.Is(err, models.ErrPatternNotFound) {
			t.Errorf("expected ErrPatternNotFound, got %v", err)
		}
	})
}

func TestDeleteSessionCascade(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "CORP")
	if err != nil {
		t.Fatalf("failed to begin session: %v", err)
	}

	scanTime := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	if _, err := store.StoreBatch(ctx, session.ID, []models.Share{testShare("fs01.corp.example.com", "docs", scanTime)}); err != nil {
		t.Fatalf("failed to store batch: %v", err)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}

	shares, err := store.ListShares(ctx, ShareFilter{SessionID: session.ID})
	if err != nil {
		t.Fatalf("failed to list shares: %v", err)
	}
	if len(shares) != 0 {
		t.Errorf("expected cascade delete, found %d shares", len(shares))
	}

	var orphans int64
	if err := store.DB().Model(&models.RootFile{}).Count(&orphans).Error; err != nil {
		t.Fatalf("failed to count root files: %v", err)
	}
	if orphans != 0 {
		t.Errorf("expected cascade to remove root files, found %d", orphans)
	}

	t.Run("delete unknown session fails", func(t *testing.T) {
		err := store.DeleteSession(ctx, "missing")
		if !errors.Is(err, models.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})
}
