package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/amosWeiskopf/geoscan/internal/config"
)

// RetryPolicy retries a transient operation with capped exponential backoff
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep waits between attempts; nil means a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each backoff
	OnRetry func(attempt int, err error)
}

// NewRetryPolicy builds a policy from the retry configuration
func NewRetryPolicy(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
	}
}

// Backoff returns the delay after the given failed attempt (1-based):
// BaseDelay doubled per attempt, capped at MaxDelay
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails permanently, or MaxAttempts is reached.
// The last error is returned; a Permanent wrapper is removed.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts || !IsTransient(err) || ctx.Err() != nil {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if serr := p.sleep(ctx, p.Backoff(attempt)); serr != nil {
			break
		}
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient reports whether err may succeed on another attempt.
// Everything is transient except Permanent errors and cancellation.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
