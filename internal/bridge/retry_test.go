package bridge

import (
	"context"
	"testing"

	"marketanalysis/internal/errs"
)

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), RetryPolicy{InitialDelay: 0, Multiplier: 1, MaxAttempts: 3}, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errs.New(errs.BridgeTransient, "timeout")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 || calls != 3 {
		t.Fatalf("expected success on 3rd attempt, got value=%d calls=%d", got, calls)
	}
}

func TestWithRetryEscalatesAfterExhaustion(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), RetryPolicy{InitialDelay: 0, Multiplier: 1, MaxAttempts: 3}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errs.New(errs.BridgeTransient, "still down")
	})
	if calls != 3 {
		t.Fatalf("expected exactly MaxAttempts calls, got %d", calls)
	}
	if errs.KindOf(err) != errs.BridgeUnavailable {
		t.Fatalf("expected escalation to BridgeUnavailable, got %v", errs.KindOf(err))
	}
}

func TestWithRetryNonTransientPropagatesImmediately(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), DefaultRetryPolicy, func(ctx context.Context) (int, error) {
		calls++
		return 0, errs.New(errs.NoAccount, "no account")
	})
	if calls != 1 {
		t.Fatalf("expected no retries for non-transient error, got %d calls", calls)
	}
	if errs.KindOf(err) != errs.NoAccount {
		t.Fatalf("expected NoAccount to propagate unchanged, got %v", errs.KindOf(err))
	}
}
