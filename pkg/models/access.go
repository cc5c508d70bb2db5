// Package models provides shared domain types for the sharescan engine.
//
// This package contains all data models used across the scanner, the
// result store and the control API, including scan sessions, share
// records, sensitive-file findings and detection patterns. It provides
// a single source of truth for domain types with GORM annotations for
// database persistence.
package models

// AccessLevel classifies what the scanner could do with a share, reduced
// from the probe outcomes {can-list, can-write}.
type AccessLevel string

const (
	// AccessFull means the root listing succeeded and a probe file could
	// be created and deleted at the share root.
	AccessFull AccessLevel = "FULL_ACCESS"

	// AccessReadOnly means the root listing succeeded but the write probe
	// was rejected.
	AccessReadOnly AccessLevel = "READ_ONLY"

	// AccessDenied means the share refused the root listing with an
	// access-denied status.
	AccessDenied AccessLevel = "DENIED"

	// AccessError means the share could not be probed at all; the record
	// carries the failure in ErrorMessage.
	AccessError AccessLevel = "ERROR"
)

// IsValid returns true if this is a valid access level value.
func (a AccessLevel) IsValid() bool {
	switch a {
	case AccessFull, AccessReadOnly, AccessDenied, AccessError:
		return true
	default:
		return false
	}
}

// Readable returns true if the share contents could be listed.
func (a AccessLevel) Readable() bool {
	return a == AccessFull || a == AccessReadOnly
}

// String returns the string representation of the access level.
func (a AccessLevel) String() string {
	return string(a)
}

// ParseAccessLevel converts a string to an AccessLevel.
// Returns AccessError if the string is not a valid level.
func ParseAccessLevel(s string) AccessLevel {
	a := AccessLevel(s)
	if a.IsValid() {
		return a
	}
	return AccessError
}

// AccessLevelOrder returns all access levels in display order, from most
// to least permissive.
func AccessLevelOrder() []AccessLevel {
	return []AccessLevel{AccessFull, AccessReadOnly, AccessDenied, AccessError}
}

// SessionStatus tracks the lifecycle of a scan session row.
type SessionStatus string

const (
	// SessionRunning is the state of a session between Begin and End.
	SessionRunning SessionStatus = "running"

	// SessionCompleted means the orchestrator loop finished, regardless
	// of how many individual hosts failed.
	SessionCompleted SessionStatus = "completed"

	// SessionFailed means the run was aborted or cancelled before the
	// host loop completed.
	SessionFailed SessionStatus = "failed"
)

// IsValid returns true if this is a valid session status value.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionRunning, SessionCompleted, SessionFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true once the session can no longer change state.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// String returns the string representation of the status.
func (s SessionStatus) String() string {
	return string(s)
}

// FileKind distinguishes files from directories in root inventories.
type FileKind string

const (
	KindFile      FileKind = "file"
	KindDirectory FileKind = "directory"
)

// String returns the string representation of the kind.
func (k FileKind) String() string {
	return string(k)
}
