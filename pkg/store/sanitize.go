package store

import "github.com/bastionsec/sharescan/pkg/models"

// Column limits enforced before insert. Values beyond these are truncated,
// not rejected, so one pathological filename cannot sink a whole batch.
const (
	maxPathLen        = 4096
	maxNameLen        = 255
	maxDetectionLen   = 50
	maxErrorLen       = 1024
	maxDescriptionLen = 255
)

// truncate caps s at limit runes. Limits are rune counts, not bytes, so
// multi-byte names are never cut mid-character.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// clampCount coerces negative counters to zero.
func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// sanitizeShare normalizes a share record in place before insert.
func sanitizeShare(share *models.Share) {
	share.Hostname = truncate(share.Hostname, maxNameLen)
	share.ShareName = truncate(share.ShareName, maxNameLen)
	share.ErrorMessage = truncate(share.ErrorMessage, maxErrorLen)
	share.TotalFiles = clampCount(share.TotalFiles)
	share.TotalDirs = clampCount(share.TotalDirs)
	share.HiddenFiles = clampCount(share.HiddenFiles)

	for i := range share.RootFiles {
		f := &share.RootFiles[i]
		f.Name = truncate(f.Name, maxNameLen)
		if f.SizeBytes < 0 {
			f.SizeBytes = 0
		}
	}

	for i := range share.SensitiveFiles {
		f := &share.SensitiveFiles[i]
		f.FilePath = truncate(f.FilePath, maxPathLen)
		f.FileName = truncate(f.FileName, maxNameLen)
		f.DetectionType = truncate(f.DetectionType, maxDetectionLen)
		f.Description = truncate(f.Description, maxDescriptionLen)
	}
}
