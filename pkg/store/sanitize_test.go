package store

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bastionsec/sharescan/pkg/models"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"under limit", "short", 10, "short"},
		{"at limit", "exact", 5, "exact"},
		{"over limit", "too long here", 7, "too lon"},
		{"empty", "", 5, ""},
		{"multibyte under", "päss", 10, "päss"},
		{"multibyte cut", "ööööö", 3, "ööö"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.limit)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.limit)
			}
		})
	}
}

func TestClampCount(t *testing.T) {
	if got := clampCount(-5); got != 0 {
		t.Errorf("clampCount(-5) = %d, want 0", got)
	}
	if got := clampCount(0); got != 0 {
		t.Errorf("clampCount(0) = %d, want 0", got)
	}
	if got := clampCount(42); got != 42 {
		t.Errorf("clampCount(42) = %d, want 42", got)
	}
}

func TestSanitizeShare(t *testing.T) {
	share := &models.Share{
		Hostname:     strings.Repeat("h", 300),
		ShareName:    "docs",
		ErrorMessage: strings.Repeat("e", 2000),
		TotalFiles:   -1,
		TotalDirs:    3,
		HiddenFiles:  -7,
		RootFiles: []models.RootFile{
			{Name: strings.Repeat("n", 300), SizeBytes: -12},
		},
		SensitiveFiles: []models.SensitiveFile{
			{
				FilePath:      strings.Repeat("p", 5000),
				FileName:      strings.Repeat("f", 300),
				DetectionType: strings.Repeat("d", 80),
				Description:   strings.Repeat("x", 300),
			},
		},
	}

	sanitizeShare(share)

	if len(share.Hostname) != maxNameLen {
		t.Errorf("hostname length = %d, want %d", len(share.Hostname), maxNameLen)
	}
	if len(share.ErrorMessage) != maxErrorLen {
		t.Errorf("error message length = %d, want %d", len(share.ErrorMessage), maxErrorLen)
	}
	if share.TotalFiles != 0 || share.HiddenFiles != 0 {
		t.Errorf("negative counters not clamped: files=%d hidden=%d", share.TotalFiles, share.HiddenFiles)
	}
	if share.TotalDirs != 3 {
		t.Errorf("valid counter changed: dirs=%d", share.TotalDirs)
	}
	if len(share.RootFiles[0].Name) != maxNameLen {
		t.Errorf("root file name length = %d, want %d", len(share.RootFiles[0].Name), maxNameLen)
	}
	if share.RootFiles[0].SizeBytes != 0 {
		t.Errorf("negative size not clamped: %d", share.RootFiles[0].SizeBytes)
	}

	sf := share.SensitiveFiles[0]
	if len(sf.FilePath) != maxPathLen {
		t.Errorf("file path length = %d, want %d", len(sf.FilePath), maxPathLen)
	}
	if len(sf.FileName) != maxNameLen {
		t.Errorf("file name length = %d, want %d", len(sf.FileName), maxNameLen)
	}
	if len(sf.DetectionType) != maxDetectionLen {
		t.Errorf("detection type length = %d, want %d", len(sf.DetectionType), maxDetectionLen)
	}
	if len(sf.Description) != maxDescriptionLen {
		t.Errorf("description length = %d, want %d", len(sf.Description), maxDescriptionLen)
	}
}
