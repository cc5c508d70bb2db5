package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for scan operations.
// These follow OpenTelemetry semantic conventions where applicable.
// Component-specific keys use their own prefix (scan., ldap., smb., store.).
const (
	// ========================================================================
	// Scan run attributes
	// ========================================================================
	AttrScanID         = "scan.id"
	AttrSessionID      = "scan.session_id"
	AttrScanDomain     = "scan.domain"
	AttrHostsTotal     = "scan.hosts_total"
	AttrHostsProcessed = "scan.hosts_processed"

	// ========================================================================
	// Directory enumeration attributes
	// ========================================================================
	AttrLDAPServer = "ldap.server"
	AttrLDAPBaseDN = "ldap.base_dn"
	AttrLDAPOU     = "ldap.ou"
	AttrComputers  = "ldap.computers"

	// ========================================================================
	// SMB attributes
	// ========================================================================
	AttrSMBHost     = "smb.host"
	AttrSMBShare    = "smb.share"
	AttrSMBPort     = "smb.port"
	AttrAuth        = "smb.auth" // ntlm or kerberos
	AttrAccessLevel = "smb.access_level"
	AttrShareCount  = "smb.shares"
	AttrFileCount   = "smb.files"
	AttrDirCount    = "smb.dirs"
	AttrHiddenCount = "smb.hidden_files"

	// ========================================================================
	// Sensitive file attributes
	// ========================================================================
	AttrSensitiveCount    = "sensitive.files"
	AttrSensitiveCategory = "sensitive.category"

	// ========================================================================
	// Store attributes
	// ========================================================================
	AttrBatchRecords = "store.batch_records"
	AttrRowsWritten  = "store.rows_written"
	AttrRowsSkipped  = "store.rows_skipped"

	// ========================================================================
	// Export / storage attributes
	// ========================================================================
	AttrExportFormat = "export.format"
	AttrExportRows   = "export.rows"
	AttrBucket       = "storage.bucket"
	AttrKey          = "storage.key"
	AttrRegion       = "storage.region"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	// Root span for a whole scan run
	SpanScanRun = "scan.run"

	// Per-host span covering connect, share listing and the share walks
	SpanScanHost = "scan.host"

	// Directory enumeration
	SpanLDAPBind      = "ldap.bind"
	SpanLDAPEnumerate = "ldap.enumerate"

	// SMB operations within a host scan
	SpanSMBConnect    = "smb.connect"
	SpanSMBListShares = "smb.list_shares"
	SpanSMBScanShare  = "smb.scan_share"

	// Persistence
	SpanStoreBatch = "store.batch"

	// Export operations (format appended by StartExportSpan)
	SpanExportUpload = "export.upload"
)

// ScanID returns an attribute for the scan run ID
func ScanID(id string) attribute.KeyValue {
	return attribute.String(AttrScanID, id)
}

// SessionID returns an attribute for the persisted session ID
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// ScanDomain returns an attribute for the scanned AD domain
func ScanDomain(domain string) attribute.KeyValue {
	return attribute.String(AttrScanDomain, domain)
}

// HostsTotal returns an attribute for the number of hosts in a run
func HostsTotal(n int) attribute.KeyValue {
	return attribute.Int(AttrHostsTotal, n)
}

// HostsProcessed returns an attribute for the number of hosts processed so far
func HostsProcessed(n int) attribute.KeyValue {
	return attribute.Int(AttrHostsProcessed, n)
}

// LDAPServer returns an attribute for the directory server address
func LDAPServer(addr string) attribute.KeyValue {
	return attribute.String(AttrLDAPServer, addr)
}

// LDAPBaseDN returns an attribute for the search base DN
func LDAPBaseDN(dn string) attribute.KeyValue {
	return attribute.String(AttrLDAPBaseDN, dn)
}

// LDAPOU returns an attribute for the organizational unit filter
func LDAPOU(ou string) attribute.KeyValue {
	return attribute.String(AttrLDAPOU, ou)
}

// Computers returns an attribute for the number of enumerated computers
func Computers(n int) attribute.KeyValue {
	return attribute.Int(AttrComputers, n)
}

// SMBHost returns an attribute for the target hostname
func SMBHost(host string) attribute.KeyValue {
	return attribute.String(AttrSMBHost, host)
}

// SMBShare returns an attribute for the share name
func SMBShare(share string) attribute.KeyValue {
	return attribute.String(AttrSMBShare, share)
}

// SMBPort returns an attribute for the SMB port
func SMBPort(port int) attribute.KeyValue {
	return attribute.Int(AttrSMBPort, port)
}

// AuthMethod returns an attribute for the authentication method
func AuthMethod(method string) attribute.KeyValue {
	return attribute.String(AttrAuth, method)
}

// AccessLevel returns an attribute for the determined share access level
func AccessLevel(level string) attribute.KeyValue {
	return attribute.String(AttrAccessLevel, level)
}

// ShareCount returns an attribute for the number of shares on a host
func ShareCount(n int) attribute.KeyValue {
	return attribute.Int(AttrShareCount, n)
}

// FileCount returns an attribute for the number of files seen on a share
func FileCount(n int) attribute.KeyValue {
	return attribute.Int(AttrFileCount, n)
}

// DirCount returns an attribute for the number of directories seen on a share
func DirCount(n int) attribute.KeyValue {
	return attribute.Int(AttrDirCount, n)
}

// HiddenCount returns an attribute for the number of hidden files on a share
func HiddenCount(n int) attribute.KeyValue {
	return attribute.Int(AttrHiddenCount, n)
}

// SensitiveCount returns an attribute for the number of sensitive matches
func SensitiveCount(n int) attribute.KeyValue {
	return attribute.Int(AttrSensitiveCount, n)
}

// SensitiveCategory returns an attribute for a sensitive match category
func SensitiveCategory(category string) attribute.KeyValue {
	return attribute.String(AttrSensitiveCategory, category)
}

// BatchRecords returns an attribute for the number of records in a batch
func BatchRecords(n int) attribute.KeyValue {
	return attribute.Int(AttrBatchRecords, n)
}

// RowsWritten returns an attribute for the number of rows persisted
func RowsWritten(n int) attribute.KeyValue {
	return attribute.Int(AttrRowsWritten, n)
}

// RowsSkipped returns an attribute for the number of rows skipped
func RowsSkipped(n int) attribute.KeyValue {
	return attribute.Int(AttrRowsSkipped, n)
}

// ExportFormat returns an attribute for the export format
func ExportFormat(format string) attribute.KeyValue {
	return attribute.String(AttrExportFormat, format)
}

// ExportRows returns an attribute for the number of exported rows
func ExportRows(n int) attribute.KeyValue {
	return attribute.Int(AttrExportRows, n)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for S3 object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for cloud region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// StartHostSpan starts a span for a host scan.
// This is a convenience function that sets common attributes.
func StartHostSpan(ctx context.Context, hostname string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		SMBHost(hostname),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanScanHost, trace.WithAttributes(allAttrs...))
}

// StartShareSpan starts a span for a single share walk.
func StartShareSpan(ctx context.Context, hostname, share string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		SMBHost(hostname),
		SMBShare(share),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanSMBScanShare, trace.WithAttributes(allAttrs...))
}

// StartEnumerateSpan starts a span for directory computer enumeration.
func StartEnumerateSpan(ctx context.Context, domain, ou string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ScanDomain(domain),
	}
	if ou != "" {
		allAttrs = append(allAttrs, LDAPOU(ou))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanLDAPEnumerate, trace.WithAttributes(allAttrs...))
}

// StartBatchSpan starts a span for a result batch write.
func StartBatchSpan(ctx context.Context, records int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		BatchRecords(records),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanStoreBatch, trace.WithAttributes(allAttrs...))
}

// StartExportSpan starts a span for an export operation.
// The format becomes part of the span name, e.g. "export.csv".
func StartExportSpan(ctx context.Context, format string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ExportFormat(format),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "export."+format, trace.WithAttributes(allAttrs...))
}
