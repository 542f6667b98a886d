// Package retry runs an operation a bounded number of times with exponential
// backoff, never sleeping past the context's deadline.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds the retries of one external call.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy matches the pipeline defaults.
var DefaultPolicy = Policy{
	MaxRetries:     2,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// ErrBudgetExhausted is returned when the next backoff would outlive the
// context's deadline. It wraps the last operation error.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// Permanent marks an error that must not be retried.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Backoff returns the delay before retry number attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.InitialBackoff <= 0 {
		return 0
	}
	delay := p.InitialBackoff << (attempt - 1)
	if p.MaxBackoff > 0 && (delay > p.MaxBackoff || delay <= 0) {
		delay = p.MaxBackoff
	}
	return delay
}

// OnRetry is called before each retry with the attempt about to run and
// the error that caused it.
type OnRetry func(attempt int, err error)

// Do calls op until it succeeds, returns a *Permanent error, exhausts
// MaxRetries, or the context ends. The returned error is the last error
// from op (unwrapped from Permanent), or the context error if op never ran.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, onRetry OnRetry) error {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.Backoff(attempt)
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= delay {
				return errors.Join(ErrBudgetExhausted, lastErr)
			}
			if onRetry != nil {
				onRetry(attempt, lastErr)
			}
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(ctx.Err(), lastErr)
			}
		}

		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return errors.Join(err, lastErr)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err
	}

	return lastErr
}
