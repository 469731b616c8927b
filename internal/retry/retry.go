// Package retry runs fallible calls under a bounded attempt budget with backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoAttempts is returned when a policy allows zero attempts.
var ErrNoAttempts = errors.New("retry: policy allows no attempts")

// Policy describes how many times to try, how long to wait between tries,
// and which errors are worth another try.
type Policy struct {
	MaxAttempts int
	// Backoff returns the wait after the given 0-indexed failed attempt.
	Backoff func(attempt int) time.Duration
	// Sleep waits for d or until ctx is done. Defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
	// Retryable reports whether err may succeed on another attempt. Nil retries everything.
	Retryable func(err error) bool
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Exponential returns base * 2^attempt: 1s, 2s, 4s, ... for base = 1s.
func Exponential(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return base << attempt
	}
}

// SleepContext blocks for d, returning early with ctx.Err() if ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
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

// Do calls fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. It returns the value, the number of attempts made, and
// the last error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		return zero, 0, ErrNoAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx, attempt)
		if err == nil {
			return val, attempt + 1, nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, attempt + 1, err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, attempt + 1, fmt.Errorf("retry interrupted after attempt %d: %w", attempt+1, serr)
		}
	}
	return zero, p.MaxAttempts, lastErr
}
