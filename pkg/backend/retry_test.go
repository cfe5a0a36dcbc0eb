package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_DelayNonDecreasing(t *testing.T) {
	policy := DefaultRetryPolicy()

	previous := time.Duration(0)
	for retry := 0; retry < 10; retry++ {
		delay := policy.delay(retry)
		assert.GreaterOrEqual(t, delay, previous, "delay decreased at retry %d", retry)
		assert.LessOrEqual(t, delay, policy.MaxDelay)
		previous = delay
	}
}

func TestRetryPolicy_DoRetriesRetryableErrors(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return FromStatusCode(503, "service unavailable", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_DoStopsOnConfigurationError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return NewConfigurationError("no credential configured")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsRetryable(err))
}

func TestRetryPolicy_DoExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return FromStatusCode(502, "bad gateway", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_DoHonorsCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func(ctx context.Context) error {
			calls++
			return FromStatusCode(503, "service unavailable", nil)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not abort on cancellation")
	}
}

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		category  ErrorCategory
		retryable bool
	}{
		{"rate limited", 429, CategoryRateLimit, true},
		{"server error", 500, CategoryService, true},
		{"bad gateway", 502, CategoryService, true},
		{"unauthorized", 401, CategoryConfiguration, false},
		{"bad request", 400, CategoryConfiguration, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatusCode(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.retryable, err.IsRetryable())
		})
	}
}
