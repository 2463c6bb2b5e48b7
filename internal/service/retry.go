package service

import (
	"context"
	"time"
)

// retryPolicy is a bounded, fixed-delay retry. Only errors accepted by retryable are
// retried; everything else is returned immediately.
type retryPolicy struct {
	attempts  int
	delay     time.Duration
	retryable func(error) bool
	sleep     func(ctx context.Context, d time.Duration) error
	onRetry   func(attempt int, err error)
}

func withRetry[T any](ctx context.Context, policy retryPolicy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	attempts := policy.attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := policy.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := fn(ctx, attempt)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if policy.retryable == nil || !policy.retryable(err) || attempt == attempts {
			break
		}
		if policy.onRetry != nil {
			policy.onRetry(attempt, err)
		}
		if err := sleep(ctx, policy.delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
