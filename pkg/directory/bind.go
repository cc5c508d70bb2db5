package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krbclient "github.com/jcmturner/gokrb5/v8/client"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/internal/telemetry"
)

// BindError reports a directory bind that failed on every attempt.
// A run cannot proceed without a bound directory connection, so callers
// treat it as fatal.
type BindError struct {
	Server   string
	Attempts int
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("directory bind to %s failed after %d attempts: %v", e.Server, e.Attempts, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// linearBackOff waits attempt*interval between retries: 2s, 4s, 6s for
// the default interval. backoff/v4 ships constant and exponential
// policies only.
type linearBackOff struct {
	interval time.Duration
	attempt  int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.interval
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Connect dials the directory server, binds, and verifies the bind with
// a domain-object lookup. Each attempt starts from a fresh connection;
// after BindRetries failures the whole run is off.
func (s *Source) Connect(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLDAPBind)
	defer span.End()
	telemetry.SetAttributes(ctx,
		telemetry.LDAPServer(s.config.Server),
		telemetry.AuthMethod(string(s.config.Auth)))

	var (
		attempts int
		lastErr  error
	)

	operation := func() error {
		attempts++
		conn, err := s.dial(s.config)
		if err != nil {
			lastErr = fmt.Errorf("dial %s: %w", s.config.Server, err)
			logger.WarnCtx(ctx, "Directory connection failed",
				logger.Attempt(attempts), logger.MaxRetries(s.config.BindRetries), logger.Err(err))
			return lastErr
		}

		if err := s.bind(conn); err != nil {
			conn.Close()
			lastErr = fmt.Errorf("bind as %s: %w", s.config.Credentials.String(), err)
			logger.WarnCtx(ctx, "Directory bind failed",
				logger.Attempt(attempts), logger.MaxRetries(s.config.BindRetries), logger.Err(err))
			return lastErr
		}

		if err := s.verify(conn); err != nil {
			conn.Close()
			lastErr = fmt.Errorf("verify bind: %w", err)
			logger.WarnCtx(ctx, "Directory bind verification failed",
				logger.Attempt(attempts), logger.MaxRetries(s.config.BindRetries), logger.Err(err))
			return lastErr
		}

		s.conn = conn
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		&linearBackOff{interval: s.config.BindBackoff},
		uint64(s.config.BindRetries-1),
	), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && lastErr == nil {
			lastErr = ctxErr
		}
		bindErr := &BindError{Server: s.config.Server, Attempts: attempts, Err: lastErr}
		telemetry.RecordError(ctx, bindErr)
		return bindErr
	}

	logger.DebugCtx(ctx, "Directory bound",
		logger.Address(s.config.Server), logger.Domain(s.config.Domain), "base_dn", s.config.BaseDN)
	return nil
}

// bind authenticates the connection with the configured method.
func (s *Source) bind(conn ldapConn) error {
	creds := s.config.Credentials

	switch s.config.Auth {
	case AuthSimple:
		return conn.Bind(creds.Logon(), creds.Password)

	case AuthKerberos:
		realm := strings.ToUpper(s.config.Domain)
		client, err := gssapi.NewClientWithPassword(
			creds.Username, realm, creds.Password, s.config.Krb5Conf,
			krbclient.DisablePAFXFAST(true),
		)
		if err != nil {
			return fmt.Errorf("kerberos client: %w", err)
		}
		return conn.GSSAPIBind(client, "ldap/"+s.config.Server, "")

	default:
		if creds.HasHash() {
			return conn.NTLMBindWithHash(creds.Domain, creds.Username, creds.HashHex())
		}
		return conn.NTLMBind(creds.Domain, creds.Username, creds.Password)
	}
}

// verify reads the domain object at the search root. A bind can succeed
// against a server that then refuses searches (wrong base DN, stale
// referral target); that has to surface before the run starts.
func (s *Source) verify(conn ldapConn) error {
	req := ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeBaseObject, ldap.NeverDerefAliases, 1, 0, false,
		domainFilter,
		[]string{"dc"},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return err
	}
	if len(res.Entries) == 0 {
		return fmt.Errorf("no domain object at %s", s.config.BaseDN)
	}
	return nil
}
