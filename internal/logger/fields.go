package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so scan runs can
// be aggregated and queried by scan, host and share.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Scan Lifecycle
	// ========================================================================
	KeyScanID    = "scan_id"    // Scan identifier (scan_YYYYMMDD_HHMMSS)
	KeySessionID = "session_id" // Datastore session row ID
	KeyDomain    = "domain"     // Directory domain being scanned
	KeyStatus    = "status"     // Session or scan status

	// ========================================================================
	// Scan Target
	// ========================================================================
	KeyHost     = "host"         // Target hostname or address
	KeyAddress  = "address"      // Resolved IP address
	KeyShare    = "share"        // Share name
	KeyPath     = "path"         // Path inside a share
	KeyFilename = "filename"     // File or directory name (basename)
	KeyAccess   = "access_level" // Probed access level
	KeyDepth    = "depth"        // Walk depth from the share root
	KeyCategory = "category"     // Detection category
	KeyPattern  = "pattern"      // Detection regex or search filter

	// ========================================================================
	// Counters
	// ========================================================================
	KeyHosts     = "hosts"     // Host count
	KeyShares    = "shares"    // Share count
	KeyFiles     = "files"     // File count
	KeyDirs      = "dirs"      // Directory count
	KeyHidden    = "hidden"    // Hidden entry count
	KeySensitive = "sensitive" // Sensitive finding count
	KeyEntries   = "entries"   // Directory entries returned
	KeyProcessed = "processed" // Hosts processed so far
	KeyTotal     = "total"     // Total hosts in the run
	KeyBatch     = "batch"     // Batch size or batch number
	KeyDropped   = "dropped"   // Records dropped after store failures

	// ========================================================================
	// Store & Retry
	// ========================================================================
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
	KeyRows       = "rows"        // Rows written

	// ========================================================================
	// Export
	// ========================================================================
	KeyBucket = "bucket" // S3 bucket for report upload
	KeyKey    = "key"    // Object key in cloud storage
	KeyRegion = "region" // Cloud region
	KeyFormat = "format" // Export format: csv, json

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyCount      = "count"       // Generic count
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ScanID returns a slog.Attr for the scan identifier
func ScanID(id string) slog.Attr {
	return slog.String(KeyScanID, id)
}

// SessionID returns a slog.Attr for the session row ID
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Domain returns a slog.Attr for the directory domain
func Domain(name string) slog.Attr {
	return slog.String(KeyDomain, name)
}

// Status returns a slog.Attr for a session or scan status
func Status(s string) slog.Attr {
	return slog.String(KeyStatus, s)
}

// Host returns a slog.Attr for the target host
func Host(name string) slog.Attr {
	return slog.String(KeyHost, name)
}

// Address returns a slog.Attr for the resolved address
func Address(addr string) slog.Attr {
	return slog.String(KeyAddress, addr)
}

// Share returns a slog.Attr for the share name
func Share(name string) slog.Attr {
	return slog.String(KeyShare, name)
}

// Path returns a slog.Attr for a path inside a share
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for a filename (basename)
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// Access returns a slog.Attr for the probed access level
func Access(level string) slog.Attr {
	return slog.String(KeyAccess, level)
}

// Depth returns a slog.Attr for walk depth
func Depth(d int) slog.Attr {
	return slog.Int(KeyDepth, d)
}

// Category returns a slog.Attr for a detection category
func Category(c string) slog.Attr {
	return slog.String(KeyCategory, c)
}

// Pattern returns a slog.Attr for a detection regex or search filter
func Pattern(p string) slog.Attr {
	return slog.String(KeyPattern, p)
}

// Hosts returns a slog.Attr for a host count
func Hosts(n int) slog.Attr {
	return slog.Int(KeyHosts, n)
}

// Shares returns a slog.Attr for a share count
func Shares(n int) slog.Attr {
	return slog.Int(KeyShares, n)
}

// Files returns a slog.Attr for a file count
func Files(n int) slog.Attr {
	return slog.Int(KeyFiles, n)
}

// Dirs returns a slog.Attr for a directory count
func Dirs(n int) slog.Attr {
	return slog.Int(KeyDirs, n)
}

// Sensitive returns a slog.Attr for a sensitive finding count
func Sensitive(n int) slog.Attr {
	return slog.Int(KeySensitive, n)
}

// Entries returns a slog.Attr for directory entries returned
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// Processed returns a slog.Attr for hosts processed so far
func Processed(n int) slog.Attr {
	return slog.Int(KeyProcessed, n)
}

// Total returns a slog.Attr for total hosts in the run
func Total(n int) slog.Attr {
	return slog.Int(KeyTotal, n)
}

// Batch returns a slog.Attr for a batch size or number
func Batch(n int) slog.Attr {
	return slog.Int(KeyBatch, n)
}

// Dropped returns a slog.Attr for dropped record counts
func Dropped(n int) slog.Attr {
	return slog.Int(KeyDropped, n)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// Rows returns a slog.Attr for rows written
func Rows(n int) slog.Attr {
	return slog.Int(KeyRows, n)
}

// Bucket returns a slog.Attr for a cloud bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for an object key in cloud storage
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Region returns a slog.Attr for a cloud region
func Region(r string) slog.Attr {
	return slog.String(KeyRegion, r)
}

// Format returns a slog.Attr for an export format
func Format(f string) slog.Attr {
	return slog.String(KeyFormat, f)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Count returns a slog.Attr for a generic count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}
