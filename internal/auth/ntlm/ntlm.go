// Package ntlm provides client-side NTLM credential material for the
// SMB and LDAP dialers.
//
// NTLM (NT LAN Manager) is a challenge-response authentication protocol
// defined in [MS-NLMP]. The protocol handshakes themselves are handled by
// the SMB and LDAP client libraries; this package owns what feeds them:
//   - account reference normalization (DOMAIN\user, user@domain.tld)
//   - NT hash computation (NTOWF) for pass-the-hash authentication
//   - parsing of LM:NT hash pairs as produced by common dumping tools
package ntlm

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/md4" //nolint:staticcheck // NTOWF is defined over MD4
)

// =============================================================================
// Credentials
// =============================================================================

// Credentials holds one account used for directory binds and SMB sessions.
// Either Password or Hash is set for authenticated scans; both empty means
// the account is only usable for anonymous sessions.
type Credentials struct {
	// Domain is the NetBIOS domain name, upper-cased.
	Domain string

	// Username is the bare account name without domain qualifier.
	Username string

	// Password is the cleartext password, empty for pass-the-hash.
	Password string

	// Hash is the 16-byte NT hash, nil when authenticating by password.
	Hash []byte
}

// Parse builds Credentials from the username, password and hash strings a
// scan was configured with. The username may be DOMAIN\user, user@domain.tld
// or a bare name; defaultDomain fills in the domain for bare names. A
// non-empty hashes string selects pass-the-hash and must contain an NT hash.
func Parse(username, password, hashes, defaultDomain string) (Credentials, error) {
	domain, user := SplitUserDomain(username, defaultDomain)

	creds := Credentials{
		Domain:   domain,
		Username: user,
		Password: password,
	}

	if hashes != "" {
		hash, err := ParseHashes(hashes)
		if err != nil {
			return Credentials{}, err
		}
		creds.Hash = hash
		creds.Password = ""
	}

	return creds, nil
}

// Anonymous reports whether the credentials carry no secret at all.
func (c Credentials) Anonymous() bool {
	return c.Username == "" && c.Password == "" && len(c.Hash) == 0
}

// HasHash reports whether pass-the-hash authentication is selected.
func (c Credentials) HasHash() bool {
	return len(c.Hash) > 0
}

// HashHex returns the NT hash as lower-case hex, empty when unset.
func (c Credentials) HashHex() string {
	if len(c.Hash) == 0 {
		return ""
	}
	return hex.EncodeToString(c.Hash)
}

// Logon renders the DOMAIN\user form used in logs and bind requests.
func (c Credentials) Logon() string {
	if c.Domain == "" {
		return c.Username
	}
	return c.Domain + `\` + c.Username
}

// String implements fmt.Stringer without leaking secrets.
func (c Credentials) String() string {
	switch {
	case c.Anonymous():
		return "anonymous"
	case c.HasHash():
		return c.Logon() + " (hash)"
	default:
		return c.Logon()
	}
}

// =============================================================================
// Account Reference Normalization
// =============================================================================

// SplitUserDomain normalizes an account reference to (DOMAIN, user).
//
// Accepted forms:
//
//	DOMAIN\user          split on the backslash
//	user@domain.tld      domain is the first DNS label, upper-cased
//	user                 domain taken from defaultDomain
//
// defaultDomain may itself be a DNS name; only its first label is used.
func SplitUserDomain(username, defaultDomain string) (string, string) {
	if i := strings.IndexByte(username, '\\'); i >= 0 {
		return strings.ToUpper(username[:i]), username[i+1:]
	}

	if i := strings.IndexByte(username, '@'); i >= 0 {
		return NetBIOSName(username[i+1:]), username[:i]
	}

	return NetBIOSName(defaultDomain), username
}

// NetBIOSName reduces a DNS domain to its upper-cased first label.
// corp.example.com becomes CORP.
func NetBIOSName(domain string) string {
	if domain == "" {
		return ""
	}
	if i := strings.IndexByte(domain, '.'); i >= 0 {
		domain = domain[:i]
	}
	return strings.ToUpper(domain)
}

// =============================================================================
// NT Hash (NTOWF)
// =============================================================================

// NTHash computes the NT one-way function of a password: MD4 over the
// UTF-16LE encoding. [MS-NLMP] Section 3.3.1
func NTHash(password string) []byte {
	h := md4.New()
	h.Write(encodeUTF16LE(password))
	return h.Sum(nil)
}

// encodeUTF16LE converts a string to UTF-16LE bytes, with surrogate pairs
// for code points beyond the BMP.
func encodeUTF16LE(s string) []byte {
	buf := make([]byte, 0, len(s)*2)
	for _, r := range s {
		if r <= 0xFFFF {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(r))
			continue
		}
		r -= 0x10000
		buf = binary.LittleEndian.AppendUint16(buf, uint16(0xD800+(r>>10)))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(0xDC00+(r&0x3FF)))
	}
	return buf
}

// =============================================================================
// Hash Pair Parsing
// =============================================================================

// ntHashSize is the NT hash length in bytes.
const ntHashSize = 16

// ParseHashes extracts the NT hash from an LM:NT pair. Dumping tools emit
// LMHASH:NTHASH; the LM half is obsolete and ignored here, and may be
// omitted entirely (":NTHASH" or just "NTHASH").
func ParseHashes(hashes string) ([]byte, error) {
	nt := hashes
	if i := strings.IndexByte(hashes, ':'); i >= 0 {
		nt = hashes[i+1:]
	}

	if len(nt) != ntHashSize*2 {
		return nil, fmt.Errorf("NT hash must be %d hex characters, got %d", ntHashSize*2, len(nt))
	}

	hash, err := hex.DecodeString(nt)
	if err != nil {
		return nil, fmt.Errorf("invalid NT hash: %w", err)
	}

	return hash, nil
}
