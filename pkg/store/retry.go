package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bastionsec/sharescan/internal/logger"
)

// StoreError wraps a database error after the retry budget is exhausted.
type StoreError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// linearBackOff waits attempt*interval between retries: 2s, 4s for the
// default interval and budget. backoff/v4 ships constant and exponential
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

// withRetry runs fn under the configured statement deadline, retrying
// transient failures with a linear backoff. Domain errors (not found,
// duplicates, sealed sessions) are permanent and returned unwrapped so
// callers can match them with errors.Is.
func (s *GORMStore) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := 0

	operation := func() error {
		attempts++

		opCtx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
		defer cancel()

		err := fn(opCtx)
		if err == nil {
			return nil
		}

		// Mark non-retriable errors as such
		if isPermanentError(err) {
			return backoff.Permanent(err)
		}

		logger.Warn("store operation failed, retrying",
			"op", op,
			logger.Attempt(attempts),
			logger.MaxRetries(s.config.MaxRetries),
			logger.Err(err),
		)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			&linearBackOff{interval: s.config.RetryBackoff},
			uint64(s.config.MaxRetries-1),
		),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if isPermanentError(err) {
			return err
		}
		return &StoreError{Op: op, Attempts: attempts, Err: err}
	}
	return nil
}
