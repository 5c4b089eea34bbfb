// Package retry runs remote calls with bounded exponential backoff.
package retry

import (
	"context"
	"time"
)

// Policy controls how often and how long Do waits between attempts.
type Policy struct {
	// Retries is the number of attempts after the first one.
	Retries int
	Base    time.Duration
	Max     time.Duration
	// Retryable decides whether an error is worth another attempt. Nil
	// retries everything except context errors.
	Retryable func(error) bool
}

// Default is 2 retries starting at 200ms, capped at 5s.
func Default() Policy {
	return Policy{Retries: 2, Base: 200 * time.Millisecond, Max: 5 * time.Second}
}

// Delay returns the wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base, limit := p.Base, p.Max
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	if limit <= 0 {
		limit = 5 * time.Second
	}
	if attempt > 30 {
		return limit
	}
	d := base << attempt
	if d > limit || d <= 0 {
		d = limit
	}
	return d
}

// Do calls fn until it succeeds, the error is not retryable, the retries are
// spent, or ctx is done. It returns the number of attempts made and the last
// error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return attempt + 1, nil
		}
		if ctx.Err() != nil || attempt >= p.Retries || !p.retryable(err) {
			return attempt + 1, err
		}
		t := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt + 1, err
		case <-t.C:
		}
	}
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}
