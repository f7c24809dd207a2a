package fetcher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is an explicit retry configuration passed into call
// sites. It replaces wrapper-style retry decoration: the caller decides
// per operation whether and how to retry.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Retryable decides whether an error is transient. Defaults to
	// IsRetryable when nil.
	Retryable func(error) bool
}

// DefaultRetryPolicy matches the upstream's observed tolerance:
// three attempts, starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     15 * time.Second,
	}
}

// Do runs op with exponential backoff until it succeeds, exhausts the
// attempt budget, fails non-transiently, or the context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx))
}
