// Package scanner probes SMB hosts for accessible shares and sensitive
// filenames.
//
// A Scanner connects to a host over TCP 445 with an anonymous session
// first and the configured domain account as fallback, enumerates the
// host's shares, and scans each non-excluded share under its own
// deadline: an access probe, a bounded root inventory, and a
// depth-limited walk that classifies filenames against the detection
// pattern registry. The host as a whole runs under a separate deadline;
// shares finished before it expires are kept.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/patterns"
)

// DefaultExcludedShares are administrative shares skipped by default.
var DefaultExcludedShares = []string{"ADMIN$", "IPC$", "print$"}

// AuthMode records which authentication produced a host session.
type AuthMode string

const (
	AuthAnonymous AuthMode = "anonymous"
	AuthDomain    AuthMode = "domain"
)

var (
	// ErrEmptyHostname rejects hosts the directory reported without a
	// usable name.
	ErrEmptyHostname = errors.New("empty hostname")

	// ErrHostDeadline reports a host whose scan hit the per-host deadline.
	// Shares completed before the deadline are still in the result.
	ErrHostDeadline = errors.New("host scan deadline exceeded")
)

// Config contains host scanning configuration.
type Config struct {
	// Port is the SMB port. Default: 445.
	Port int

	// Credentials authenticate the fallback session after the anonymous
	// attempt. The zero value scans anonymously only.
	Credentials ntlm.Credentials

	// ConnTimeout bounds the TCP connect to a host.
	ConnTimeout time.Duration

	// ShareTimeout bounds the scan of a single share.
	ShareTimeout time.Duration

	// HostTimeout bounds the scan of a whole host, all shares included.
	HostTimeout time.Duration

	// MaxDepth is how many directory levels below the share root the
	// sensitive-file walk descends. The root itself is depth zero.
	MaxDepth int

	// MaxRootEntries is how many root inventory rows are retained per
	// share. Counts always cover the full root.
	MaxRootEntries int

	// ExcludedShares are share names never scanned, compared
	// case-insensitively. Nil selects DefaultExcludedShares; an empty
	// non-nil slice excludes nothing.
	ExcludedShares []string
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 445
	}
	if c.ConnTimeout == 0 {
		c.ConnTimeout = 5 * time.Second
	}
	if c.ShareTimeout == 0 {
		c.ShareTimeout = 30 * time.Second
	}
	if c.HostTimeout == 0 {
		c.HostTimeout = 5 * time.Minute
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = 5
	}
	if c.MaxRootEntries == 0 {
		c.MaxRootEntries = 20
	}
	if c.ExcludedShares == nil {
		c.ExcludedShares = DefaultExcludedShares
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid SMB port: %d", c.Port)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("invalid scan depth: %d", c.MaxDepth)
	}
	return nil
}

// HostResult is the outcome of scanning one host. Err reports host-level
// failures; Shares holds the records completed before any failure.
type HostResult struct {
	Hostname string
	Address  string
	Auth     AuthMode
	Shares   []models.Share
	Err      error
}

// Scanner scans hosts for shares. Safe for concurrent use; all state is
// read-only after New.
type Scanner struct {
	config   *Config
	patterns *patterns.Registry

	// dial and lookup are swapped out by tests.
	dial   dialFunc
	lookup lookupFunc
}

// New creates a host scanner. A nil registry disables the sensitive-file
// walk; shares are still probed and inventoried.
func New(config *Config, registry *patterns.Registry) (*Scanner, error) {
	if config == nil {
		return nil, fmt.Errorf("scanner configuration is required")
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scanner configuration: %w", err)
	}

	return &Scanner{
		config:   config,
		patterns: registry,
		dial:     dialSMB,
		lookup: func(ctx context.Context, host string) ([]string, error) {
			return net.DefaultResolver.LookupHost(ctx, host)
		},
	}, nil
}

// resolve maps a hostname to a dialable address. Directory exports
// sometimes carry empty names or a stringified empty list; both are
// rejected up front. Literal IPs pass through without a lookup.
func (s *Scanner) resolve(ctx context.Context, hostname string) (string, error) {
	if hostname == "" || hostname == "[]" {
		return "", ErrEmptyHostname
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return hostname, nil
	}

	addrs, err := s.lookup(ctx, hostname)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", hostname, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolve %s: no addresses", hostname)
	}
	return addrs[0], nil
}

// excluded reports whether the share name is on the exclusion list.
func (s *Scanner) excluded(name string) bool {
	for _, ex := range s.config.ExcludedShares {
		if strings.EqualFold(name, ex) {
			return true
		}
	}
	return false
}
