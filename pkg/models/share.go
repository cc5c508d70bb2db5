package models

import (
	"strings"
	"time"
)

// SMB file attribute bits surfaced in root inventories. Only the flags
// the reporting layer cares about are mapped; everything else is dropped.
const (
	FileAttributeReadOnly  uint32 = 0x00000001
	FileAttributeHidden    uint32 = 0x00000002
	FileAttributeDirectory uint32 = 0x00000010
)

// Attribute names as stored in RootFile.Attributes.
const (
	AttrReadOnly  = "READONLY"
	AttrHidden    = "HIDDEN"
	AttrDirectory = "DIRECTORY"
)

// AttributeNames maps an SMB FileAttributes bitmask to the stored flag
// names, in a fixed order.
func AttributeNames(attrs uint32) []string {
	var names []string
	if attrs&FileAttributeDirectory != 0 {
		names = append(names, AttrDirectory)
	}
	if attrs&FileAttributeReadOnly != 0 {
		names = append(names, AttrReadOnly)
	}
	if attrs&FileAttributeHidden != 0 {
		names = append(names, AttrHidden)
	}
	return names
}

// JoinAttributes renders a flag list into the comma-separated column form.
func JoinAttributes(names []string) string {
	return strings.Join(names, ",")
}

// Share is one scanned share on one host at one scan time. Records are
// built by the share scanner, immutable once the host scanner returns,
// and persisted in storage batches.
type Share struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	SessionID    string `gorm:"not null;size:36;index" json:"session_id"`
	Hostname     string `gorm:"not null;size:255;index;uniqueIndex:idx_shares_host_share_time" json:"hostname"`
	ShareName    string `gorm:"not null;size:255;uniqueIndex:idx_shares_host_share_time" json:"share_name"`
	AccessLevel  string `gorm:"not null;size:20" json:"access_level"`
	ErrorMessage string `gorm:"size:1024" json:"error_message,omitempty"`

	// Counts reflect the full share root even when only the first 20
	// entries are retained as RootFiles.
	TotalFiles  int `gorm:"default:0" json:"total_files"`
	TotalDirs   int `gorm:"default:0" json:"total_dirs"`
	HiddenFiles int `gorm:"default:0" json:"hidden_files"`

	ScanTime  time.Time `gorm:"not null;index;uniqueIndex:idx_shares_host_share_time" json:"scan_time"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	RootFiles      []RootFile      `gorm:"foreignKey:ShareID;constraint:OnDelete:CASCADE" json:"root_files,omitempty"`
	SensitiveFiles []SensitiveFile `gorm:"foreignKey:ShareID;constraint:OnDelete:CASCADE" json:"sensitive_files,omitempty"`
}

// TableName returns the table name for Share.
func (Share) TableName() string {
	return "shares"
}

// GetAccessLevel returns the access level as an AccessLevel type.
func (s *Share) GetAccessLevel() AccessLevel {
	return ParseAccessLevel(s.AccessLevel)
}

// Readable returns true if the share contents could be listed.
func (s *Share) Readable() bool {
	return s.GetAccessLevel().Readable()
}

// RootFile is one retained entry from a share's root inventory.
// Position preserves enumeration order.
type RootFile struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	ShareID    string     `gorm:"not null;size:36;index" json:"share_id"`
	Position   int        `gorm:"not null;default:0" json:"position"`
	Name       string     `gorm:"not null;size:255" json:"name"`
	Kind       string     `gorm:"not null;size:20" json:"kind"`
	SizeBytes  int64      `gorm:"default:0" json:"size_bytes"`
	Attributes string     `gorm:"size:64" json:"attributes,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// TableName returns the table name for RootFile.
func (RootFile) TableName() string {
	return "root_files"
}

// AttributeList splits the stored attribute column back into flag names.
func (r *RootFile) AttributeList() []string {
	if r.Attributes == "" {
		return nil
	}
	return strings.Split(r.Attributes, ",")
}

// HasAttribute reports whether the entry carries the named flag.
func (r *RootFile) HasAttribute(name string) bool {
	for _, a := range r.AttributeList() {
		if a == name {
			return true
		}
	}
	return false
}

// IsDirectory returns true for directory entries.
func (r *RootFile) IsDirectory() bool {
	return r.Kind == string(KindDirectory)
}

// SensitiveFile is one filename that matched a detection pattern during
// the recursive walk. A file matching several categories produces one
// row per category.
type SensitiveFile struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	ShareID       string `gorm:"not null;size:36;index" json:"share_id"`
	FilePath      string `gorm:"not null;size:4096;check:length(file_path) <= 4096" json:"file_path"`
	FileName      string `gorm:"not null;size:255" json:"file_name"`
	DetectionType string `gorm:"not null;size:50;index" json:"detection_type"`
	Description   string `gorm:"size:255" json:"description,omitempty"`
}

// TableName returns the table name for SensitiveFile.
func (SensitiveFile) TableName() string {
	return "sensitive_files"
}
