package backend

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy bounds how a failed backend call is retried. Only errors whose
// category is retryable (rate limit, network, service) are retried;
// configuration and malformed-request failures surface immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Do runs fn up to MaxAttempts times, sleeping an exponentially growing,
// jittered delay between attempts. Context cancellation aborts the wait.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := jitter(p.delay(attempt - 1))

			if backendErr, ok := AsError(lastErr); ok && backendErr.RetryAfter > delay {
				delay = backendErr.RetryAfter
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", p.MaxAttempts, lastErr)
}

// delay returns the pre-jitter backoff for the given retry index. It doubles
// per attempt and is non-decreasing up to MaxDelay.
func (p RetryPolicy) delay(retry int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// jitter spreads a delay across +-50% of its value.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(d)+1))
}
