package bridge

import (
	"context"
	"time"

	"marketanalysis/internal/errs"
)

// RetryPolicy is the exponential-backoff schedule for BridgeTransient
// errors: start at 1s, double each attempt, up to MaxAttempts. Non-
// transient errors propagate immediately without retry.
type RetryPolicy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxAttempts  int
}

// DefaultRetryPolicy matches spec.md §5's retry policy.
var DefaultRetryPolicy = RetryPolicy{InitialDelay: time.Second, Multiplier: 2, MaxAttempts: 3}

// WithRetry wraps a bridge call, retrying on *errs.Error{Kind: BridgeTransient}
// per policy, and escalating to BridgeUnavailable once attempts are
// exhausted.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, call func(ctx context.Context) (T, error)) (T, error) {
	delay := policy.InitialDelay
	var zero T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errs.KindOf(err) != errs.BridgeTransient {
			return zero, err
		}
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, errs.Wrap(errs.Cancelled, "retry aborted", ctx.Err())
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}
	return zero, errs.Wrap(errs.BridgeUnavailable, "bridge retries exhausted", lastErr)
}
