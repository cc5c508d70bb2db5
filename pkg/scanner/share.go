package scanner

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/internal/telemetry"
	"github.com/bastionsec/sharescan/pkg/models"
)

// scanShare probes one share and builds its persistent record: access
// level, a bounded root inventory, and the sensitive filename matches
// from the recursive walk. The record holds whatever the share deadline
// allowed to finish.
func (s *Scanner) scanShare(ctx context.Context, sess session, hostname, shareName string) models.Share {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShareTimeout)
	defer cancel()

	ctx, span := telemetry.StartShareSpan(ctx, hostname, shareName)
	defer span.End()

	if lc := logger.FromContext(ctx); lc != nil {
		ctx = logger.WithContext(ctx, lc.WithShare(shareName))
	}

	record := models.Share{
		Hostname:  hostname,
		ShareName: shareName,
		ScanTime:  time.Now().UTC(),
	}

	fs, err := sess.Mount(shareName)
	if err != nil {
		record.AccessLevel, record.ErrorMessage = classifyProbeError(err)
		telemetry.RecordError(ctx, err)
		return record
	}
	fs = fs.WithContext(ctx)
	defer fs.Umount()

	entries, err := fs.ReadDir(".")
	if err != nil {
		record.AccessLevel, record.ErrorMessage = classifyProbeError(err)
		telemetry.RecordError(ctx, err)
		return record
	}

	record.AccessLevel = s.probeWrite(fs).String()
	s.inventory(&record, entries)

	if s.patterns != nil {
		s.walk(ctx, fs, "", entries, 0, &record.SensitiveFiles)
		if ctx.Err() != nil {
			logger.WarnCtx(ctx, "Share scan cut short, keeping partial results",
				logger.Access(record.AccessLevel), logger.Sensitive(len(record.SensitiveFiles)))
		}
	}

	telemetry.SetAttributes(ctx,
		telemetry.AccessLevel(record.AccessLevel),
		telemetry.FileCount(record.TotalFiles),
		telemetry.SensitiveCount(len(record.SensitiveFiles)))
	logger.DebugCtx(ctx, "Share scanned",
		logger.Access(record.AccessLevel),
		logger.Files(record.TotalFiles), logger.Dirs(record.TotalDirs),
		logger.Sensitive(len(record.SensitiveFiles)))
	return record
}

// classifyProbeError maps a root listing failure to the stored access
// level.
func classifyProbeError(err error) (level, message string) {
	if isAccessDenied(err) {
		return models.AccessDenied.String(), err.Error()
	}
	return models.AccessError.String(), err.Error()
}

// probeWrite distinguishes FULL_ACCESS from READ_ONLY by creating and
// removing a marker file at the share root.
func (s *Scanner) probeWrite(fs shareFS) models.AccessLevel {
	name := fmt.Sprintf("test_%s.tmp", time.Now().UTC().Format("20060102150405"))

	f, err := fs.Create(name)
	if err != nil {
		return models.AccessReadOnly
	}
	f.Close()
	if err := fs.Remove(name); err != nil {
		logger.Warn("Probe file could not be removed", logger.Filename(name), logger.Err(err))
	}
	return models.AccessFull
}

// inventory fills the root listing and counts. Counts cover every root
// entry even when only the first MaxRootEntries are retained as rows.
func (s *Scanner) inventory(record *models.Share, entries []os.FileInfo) {
	for _, fi := range entries {
		name := fi.Name()
		if name == "." || name == ".." {
			continue
		}

		attrs := fileAttributes(fi)
		if attrs&models.FileAttributeDirectory != 0 {
			record.TotalDirs++
		} else {
			record.TotalFiles++
		}
		if attrs&models.FileAttributeHidden != 0 {
			record.HiddenFiles++
		}

		if len(record.RootFiles) >= s.config.MaxRootEntries {
			continue
		}

		kind := models.KindFile
		if attrs&models.FileAttributeDirectory != 0 {
			kind = models.KindDirectory
		}
		created, modified := fileTimes(fi)
		record.RootFiles = append(record.RootFiles, models.RootFile{
			Position:   len(record.RootFiles),
			Name:       name,
			Kind:       kind.String(),
			SizeBytes:  fi.Size(),
			Attributes: models.JoinAttributes(models.AttributeNames(attrs)),
			CreatedAt:  created,
			ModifiedAt: modified,
		})
	}
}

// walk recurses through the share classifying filenames. Directories
// below MaxDepth are not descended; a listing failure drops that subtree
// and the walk moves on. Cancellation is checked at every entry.
func (s *Scanner) walk(ctx context.Context, fs shareFS, dir string, entries []os.FileInfo, depth int, out *[]models.SensitiveFile) {
	for _, fi := range entries {
		if ctx.Err() != nil {
			return
		}
		name := fi.Name()
		if name == "." || name == ".." {
			continue
		}
		full := path.Join(dir, name)

		if fi.IsDir() {
			if depth >= s.config.MaxDepth {
				continue
			}
			children, err := fs.ReadDir(full)
			if err != nil {
				logger.DebugCtx(ctx, "Subtree skipped", logger.Path(full), logger.Err(err))
				continue
			}
			s.walk(ctx, fs, full, children, depth+1, out)
			continue
		}

		for _, m := range s.patterns.Classify(name) {
			*out = append(*out, models.SensitiveFile{
				FilePath:      full,
				FileName:      name,
				DetectionType: m.Category,
				Description:   m.Description,
			})
		}
	}
}

// fileAttributes extracts the SMB attribute bits from a directory entry.
func fileAttributes(fi os.FileInfo) uint32 {
	if st, ok := fi.Sys().(*smb2.FileStat); ok {
		return st.FileAttributes
	}
	if fi.IsDir() {
		return models.FileAttributeDirectory
	}
	return 0
}

// fileTimes extracts creation and modification timestamps, nil when the
// server did not report them.
func fileTimes(fi os.FileInfo) (created, modified *time.Time) {
	if st, ok := fi.Sys().(*smb2.FileStat); ok && !st.CreationTime.IsZero() {
		t := st.CreationTime.UTC()
		created = &t
	}
	if mt := fi.ModTime(); !mt.IsZero() {
		t := mt.UTC()
		modified = &t
	}
	return created, modified
}
