// Package retry wraps fallible calls in a bounded retry policy.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// BackoffFunc returns the delay before the given retry (1-based).
type BackoffFunc func(attempt int) time.Duration

// Linear waits base*attempt before each retry.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration { return base * time.Duration(attempt) }
}

// Policy bounds how often and how patiently a call is retried.
type Policy struct {
	Attempts int // total calls including the first; values < 1 mean 1
	Backoff  BackoffFunc
}

// Default is three attempts with a 200ms linear backoff.
func Default() Policy {
	return Policy{Attempts: 3, Backoff: Linear(200 * time.Millisecond)}
}

func (p Policy) backoff() goretry.Backoff {
	attempt := 0
	next := p.Backoff
	if next == nil {
		next = Linear(0)
	}
	b := goretry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return next(attempt), false
	})
	retries := p.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	return goretry.WithMaxRetries(uint64(retries), b)
}

// Do calls fn until it succeeds, the attempts are exhausted or ctx is done.
// The error of the last attempt is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return goretry.RetryableError(err)
		}
		return nil
	})
}
