package backend

import (
	"context"
	"time"
)

// Call is the shared bookkeeping around a provider request: reserve a
// rate-limit slot, run the request under the retry policy, then commit the
// observed token usage and stamp the elapsed time. Every adapter routes its
// Generate through this so the limiter and retry semantics live in one place.
func Call(ctx context.Context, limiter *Limiter, policy RetryPolicy, fn func(ctx context.Context) (*Completion, error)) (*Completion, error) {
	if err := limiter.Reserve(); err != nil {
		return nil, err
	}

	var completion *Completion
	start := time.Now()

	err := policy.Do(ctx, func(ctx context.Context) error {
		result, err := fn(ctx)
		if err != nil {
			return err
		}

		completion = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	completion.Elapsed = time.Since(start)
	limiter.Commit(completion.InputTokens, completion.OutputTokens)

	return completion, nil
}
