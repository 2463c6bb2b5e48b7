package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errRetryable = errors.New("retryable")

func TestWithRetryStopsOnSuccess(t *testing.T) {
	var slept []time.Duration
	var retried []int
	policy := retryPolicy{
		attempts:  3,
		delay:     time.Second,
		retryable: func(err error) bool { return errors.Is(err, errRetryable) },
		sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
		onRetry: func(attempt int, err error) { retried = append(retried, attempt) },
	}

	value, err := withRetry(context.Background(), policy, func(ctx context.Context, attempt int) (int, error) {
		if attempt < 3 {
			return 0, errRetryable
		}
		return attempt, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, value)
	require.Equal(t, []time.Duration{time.Second, time.Second}, slept)
	require.Equal(t, []int{1, 2}, retried)
}

func TestWithRetryReturnsNonRetryableImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	_, err := withRetry(context.Background(), retryPolicy{
		attempts:  3,
		retryable: func(err error) bool { return errors.Is(err, errRetryable) },
	}, func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "", fatal
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestWithRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withRetry(ctx, retryPolicy{
		attempts:  3,
		delay:     time.Minute,
		retryable: func(error) bool { return true },
	}, func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "", errRetryable
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
