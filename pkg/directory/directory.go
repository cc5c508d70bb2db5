// Package directory enumerates the computers of an Active Directory
// domain over LDAP.
//
// A Source binds once (NTLM by default, simple or Kerberos when
// configured), verifies the bind with a domain-object lookup, then streams
// computer DNS names via paged search. The search honors a hard result cap
// and the caller's context deadline; both cut the enumeration short and
// return the partial list rather than an error, so a huge or slow
// directory degrades a scan instead of killing it.
package directory

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
)

// errNotConnected reports use of a Source before Connect.
var errNotConnected = errors.New("directory source is not connected")

// AuthMethod selects how the directory bind authenticates.
type AuthMethod string

const (
	// AuthNTLM performs an NTLM challenge-response bind (default).
	AuthNTLM AuthMethod = "ntlm"

	// AuthSimple performs a simple bind with DOMAIN\user and password.
	AuthSimple AuthMethod = "simple"

	// AuthKerberos performs a SASL GSSAPI bind via Kerberos.
	AuthKerberos AuthMethod = "kerberos"
)

// IsValid returns true if this is a supported auth method.
func (m AuthMethod) IsValid() bool {
	switch m {
	case AuthNTLM, AuthSimple, AuthKerberos:
		return true
	default:
		return false
	}
}

// LDAP attributes and filters used by the computer enumeration.
const (
	computerFilter  = "(objectClass=computer)"
	domainFilter    = "(objectClass=domain)"
	attrDNSHostName = "dNSHostName"
	attrName        = "name"
)

// Config contains directory connection configuration.
type Config struct {
	// Server is the directory server hostname or address.
	Server string

	// Port is the LDAP port. Default: 389, or 636 with TLS.
	Port int

	// Domain is the DNS domain to enumerate, e.g. corp.example.com.
	Domain string

	// BaseDN roots the search. Derived from Domain when empty.
	BaseDN string

	// UseTLS connects over LDAPS instead of plain LDAP.
	UseTLS bool

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// Auth selects the bind method. Default: ntlm.
	Auth AuthMethod

	// Krb5Conf is the krb5.conf path for Kerberos binds.
	Krb5Conf string

	// Credentials authenticate the bind.
	Credentials ntlm.Credentials

	// BindRetries is the number of bind attempts before failing the run.
	BindRetries int

	// BindBackoff is the base wait between bind attempts; attempt n
	// waits n times this value.
	BindBackoff time.Duration

	// DialTimeout bounds the TCP connect.
	DialTimeout time.Duration

	// RequestTimeout bounds each LDAP request on the wire.
	RequestTimeout time.Duration

	// PageSize is the paged-search page size.
	PageSize uint32
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		if c.UseTLS {
			c.Port = 636
		} else {
			c.Port = 389
		}
	}
	if c.BaseDN == "" {
		c.BaseDN = BaseDNFromDomain(c.Domain)
	}
	if c.Auth == "" {
		c.Auth = AuthNTLM
	}
	if c.BindRetries == 0 {
		c.BindRetries = 3
	}
	if c.BindBackoff == 0 {
		c.BindBackoff = 2 * time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.PageSize == 0 {
		c.PageSize = 5000
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("directory server is required")
	}
	if c.Domain == "" && c.BaseDN == "" {
		return fmt.Errorf("directory domain or base DN is required")
	}
	if !c.Auth.IsValid() {
		return fmt.Errorf("unsupported auth method: %s", c.Auth)
	}
	if c.Auth == AuthKerberos {
		if c.Credentials.HasHash() {
			return fmt.Errorf("kerberos bind requires a password, not an NT hash")
		}
		if c.Krb5Conf == "" {
			return fmt.Errorf("kerberos bind requires a krb5.conf path")
		}
	}
	return nil
}

// BaseDNFromDomain derives the search root from a DNS domain name.
// corp.example.com becomes DC=corp,DC=example,DC=com.
func BaseDNFromDomain(domain string) string {
	if domain == "" {
		return ""
	}
	labels := strings.Split(domain, ".")
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		if label == "" {
			continue
		}
		parts = append(parts, "DC="+label)
	}
	return strings.Join(parts, ",")
}

// ldapConn is the subset of *ldap.Conn the directory source uses.
type ldapConn interface {
	SetTimeout(timeout time.Duration)
	Bind(username, password string) error
	NTLMBind(domain, username, password string) error
	NTLMBindWithHash(domain, username, hash string) error
	GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzid string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// Source enumerates domain computers over one bound LDAP connection.
type Source struct {
	config *Config
	conn   ldapConn

	// dial is swapped out by tests.
	dial func(cfg *Config) (ldapConn, error)
}

// New creates a directory source. Call Connect before Computers.
func New(config *Config) (*Source, error) {
	if config == nil {
		return nil, fmt.Errorf("directory configuration is required")
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid directory configuration: %w", err)
	}

	return &Source{
		config: config,
		dial:   dialLDAP,
	}, nil
}

// dialLDAP opens the TCP (or TLS) connection to the directory server.
func dialLDAP(cfg *Config) (ldapConn, error) {
	scheme := "ldap"
	if cfg.UseTLS {
		scheme = "ldaps"
	}
	addr := scheme + "://" + net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port))

	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: cfg.DialTimeout}),
	}
	if cfg.UseTLS {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			ServerName:         cfg.Server,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}))
	}

	conn, err := ldap.DialURL(addr, opts...)
	if err != nil {
		return nil, err
	}

	conn.SetTimeout(cfg.RequestTimeout)
	return conn, nil
}

// Close releases the LDAP connection.
func (s *Source) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
