package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/internal/telemetry"
)

// ScanHost scans every non-excluded share on one host. A result is
// always returned; Err carries host-level failures and Shares holds the
// records finished before any failure or deadline.
func (s *Scanner) ScanHost(ctx context.Context, hostname string) HostResult {
	result := HostResult{Hostname: hostname}

	if lc := logger.FromContext(ctx); lc != nil {
		ctx = logger.WithContext(ctx, lc.WithHost(hostname))
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.HostTimeout)
	defer cancel()

	addr, err := s.resolve(ctx, hostname)
	if err != nil {
		result.Err = err
		return result
	}
	result.Address = addr

	sess, mode, err := s.connect(ctx, net.JoinHostPort(addr, strconv.Itoa(s.config.Port)))
	if err != nil {
		result.Err = err
		return result
	}
	defer sess.Logoff()
	result.Auth = mode

	lsCtx, lsSpan := telemetry.StartSpan(ctx, telemetry.SpanSMBListShares)
	names, err := sess.ListShares()
	if err != nil {
		telemetry.RecordError(lsCtx, err)
		lsSpan.End()
		result.Err = fmt.Errorf("list shares: %w", err)
		return result
	}
	telemetry.SetAttributes(lsCtx, telemetry.ShareCount(len(names)))
	lsSpan.End()
	logger.DebugCtx(ctx, "Enumerated shares",
		logger.Address(addr), logger.Shares(len(names)), "auth", string(mode))

	for _, name := range names {
		if s.excluded(name) {
			continue
		}
		if ctx.Err() != nil {
			result.Err = s.cutShort(ctx)
			break
		}
		result.Shares = append(result.Shares, s.scanShare(ctx, sess, hostname, name))
	}
	if result.Err == nil && ctx.Err() != nil {
		// The deadline landed inside the last share; its record is kept
		// and the host is reported as cut short.
		result.Err = s.cutShort(ctx)
	}
	return result
}

// cutShort distinguishes the per-host deadline from a cancelled run.
func (s *Scanner) cutShort(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return ErrHostDeadline
}

// connect tries an anonymous session first, then the configured account.
// TCP-level failures are not retried; there is no second session to try
// against a host that never answered.
func (s *Scanner) connect(ctx context.Context, addr string) (session, AuthMode, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSMBConnect)
	defer span.End()

	sess, err := s.dial(ctx, addr, ntlm.Credentials{}, s.config.ConnTimeout)
	if err == nil {
		telemetry.SetAttributes(ctx, telemetry.AuthMethod(string(AuthAnonymous)))
		return sess, AuthAnonymous, nil
	}

	var ce *connectError
	if errors.As(err, &ce) {
		telemetry.RecordError(ctx, ce.err)
		return nil, "", fmt.Errorf("connect %s: %w", addr, ce.err)
	}
	if s.config.Credentials.Anonymous() {
		telemetry.RecordError(ctx, err)
		return nil, "", fmt.Errorf("authentication failed: %w", err)
	}

	sess, err = s.dial(ctx, addr, s.config.Credentials, s.config.ConnTimeout)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, "", fmt.Errorf("authentication failed: %w", err)
	}
	telemetry.SetAttributes(ctx, telemetry.AuthMethod(string(AuthDomain)))
	return sess, AuthDomain, nil
}
