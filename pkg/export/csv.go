package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/bastionsec/sharescan/pkg/models"
)

// scanHeader is the column set of the flat scan CSV. It has stayed
// stable across versions; downstream tooling parses it by name.
var scanHeader = []string{
	"hostname", "share_name", "access_level", "error_message",
	"sensitive_file_path", "sensitive_file_name", "detection_type",
}

// WriteScanCSV writes the flat scan CSV: shares without findings get
// one row with empty sensitive columns, shares with findings get one
// row per finding.
func WriteScanCSV(w io.Writer, shares []models.Share) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scanHeader); err != nil {
		return err
	}

	for i := range shares {
		sh := &shares[i]
		if len(sh.SensitiveFiles) == 0 {
			if err := cw.Write([]string{
				sh.Hostname, sh.ShareName, sh.AccessLevel, sh.ErrorMessage, "", "", "",
			}); err != nil {
				return err
			}
			continue
		}
		for j := range sh.SensitiveFiles {
			f := &sh.SensitiveFiles[j]
			if err := cw.Write([]string{
				sh.Hostname, sh.ShareName, sh.AccessLevel, sh.ErrorMessage,
				f.FilePath, f.FileName, f.DetectionType,
			}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeSharesCSV(w io.Writer, shares []models.Share) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"hostname", "share_name", "access_level", "error_message",
		"total_files", "total_dirs", "hidden_files", "scan_time",
	}); err != nil {
		return err
	}

	for i := range shares {
		sh := &shares[i]
		if err := cw.Write([]string{
			sh.Hostname, sh.ShareName, sh.AccessLevel, sh.ErrorMessage,
			strconv.Itoa(sh.TotalFiles), strconv.Itoa(sh.TotalDirs), strconv.Itoa(sh.HiddenFiles),
			sh.ScanTime.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeSensitiveCSV(w io.Writer, findings []models.Finding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"hostname", "share_name", "file_path", "file_name", "detection_type", "description",
	}); err != nil {
		return err
	}

	for i := range findings {
		f := &findings[i]
		if err := cw.Write([]string{
			f.Hostname, f.ShareName, f.FilePath, f.FileName, f.DetectionType, f.Description,
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeRootFilesCSV(w io.Writer, shares []models.Share) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"hostname", "share_name", "name", "kind", "size_bytes", "attributes", "created_at", "modified_at",
	}); err != nil {
		return err
	}

	for i := range shares {
		sh := &shares[i]
		for j := range sh.RootFiles {
			rf := &sh.RootFiles[j]
			if err := cw.Write([]string{
				sh.Hostname, sh.ShareName, rf.Name, rf.Kind,
				strconv.FormatInt(rf.SizeBytes, 10), rf.Attributes,
				formatTimePtr(rf.CreatedAt), formatTimePtr(rf.ModifiedAt),
			}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// writeSummary renders the access-level breakdown, one line per level.
func writeSummary(w io.Writer, summary *models.SessionSummary) error {
	if _, err := fmt.Fprintln(w, "Access Level Summary:"); err != nil {
		return err
	}

	levels := make([]string, 0, len(summary.AccessLevels))
	for level := range summary.AccessLevels {
		levels = append(levels, level)
	}
	sort.Strings(levels)

	for _, level := range levels {
		if _, err := fmt.Fprintf(w, "%s: %d shares\n", level, summary.AccessLevels[level]); err != nil {
			return err
		}
	}
	return nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
