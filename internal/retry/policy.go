// Package retry provides a bounded retry policy for backend calls that fail
// transiently. Callers mark recoverable errors with TemporaryError; everything
// else stops the loop immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/fit-judge/internal/utils"
)

const (
	defaultMaxAttempts  = 3
	defaultBaseDelay    = time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultJitterFactor = 0.25
)

// TemporaryError marks an error as worth retrying. RetryAfter optionally
// carries a backend-suggested delay that overrides the computed backoff.
type TemporaryError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *TemporaryError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("temporary: %v (retry after %s)", e.Err, e.RetryAfter)
	}
	return fmt.Sprintf("temporary: %v", e.Err)
}

func (e *TemporaryError) Unwrap() error { return e.Err }

// MarkTemporary wraps err as retryable. A nil err stays nil.
func MarkTemporary(err error) error {
	if err == nil {
		return nil
	}
	return &TemporaryError{Err: err}
}

// IsTemporary reports whether err is marked retryable anywhere in its chain.
func IsTemporary(err error) bool {
	var tmp *TemporaryError
	return errors.As(err, &tmp)
}

// Policy bounds a retry loop: attempt count, exponential backoff between
// attempts and a jitter factor to spread simultaneous clients.
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultPolicy returns the policy used when configuration provides none.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  defaultMaxAttempts,
		BaseDelay:    defaultBaseDelay,
		MaxDelay:     defaultMaxDelay,
		JitterFactor: defaultJitterFactor,
	}
}

// Do runs fn up to MaxAttempts times, waiting between attempts. Only errors
// marked with TemporaryError are retried. A backend-suggested delay larger
// than MaxDelay aborts the loop instead of stalling the whole evaluation.
func (p Policy) Do(ctx context.Context, logger *zap.Logger, operation string, fn func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := p.backoff(attempt - 2)

			var tmp *TemporaryError
			if errors.As(lastErr, &tmp) && tmp.RetryAfter > 0 {
				if maxDelay := p.maxDelay(); tmp.RetryAfter > maxDelay {
					return fmt.Errorf("%s: suggested retry delay %s exceeds limit %s: %w",
						operation, tmp.RetryAfter, maxDelay, lastErr)
				}
				delay = tmp.RetryAfter
			}

			logger.Warn("retrying after temporary failure",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if err := utils.WaitFor(ctx, delay); err != nil {
				return fmt.Errorf("%s interrupted while waiting to retry: %w", operation, err)
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTemporary(err) {
			return err
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}

func (p Policy) backoff(n int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	if n < 0 {
		n = 0
	}

	delay := float64(base) * math.Pow(2, float64(n))
	if max := float64(p.maxDelay()); delay > max {
		delay = max
	}

	if p.JitterFactor > 0 {
		delay *= 1 + (rand.Float64()*2-1)*p.JitterFactor
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return defaultMaxDelay
	}
	return p.MaxDelay
}
