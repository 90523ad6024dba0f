package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/marketbrief/internal/faults"
)

// fastPolicy returns a policy with no real sleeping so tests run instantly.
func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:      maxRetries,
		InitialDelay:    time.Microsecond,
		MaxDelay:        time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", faults.New(faults.Transient, "flaky")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected result ok, got %s", result)
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 invocations, got %d", calls)
	}
}

func TestDo_NonRetryableKindFailsFast(t *testing.T) {
	calls := 0
	p := fastPolicy(3)
	p.RetryableKinds = []faults.Kind{faults.Transient}

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, faults.New(faults.NonRetryable, "bad credentials")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 invocation, got %d", calls)
	}
	if faults.KindOf(err) != faults.NonRetryable {
		t.Errorf("expected original error kind preserved, got %v", faults.KindOf(err))
	}
}

func TestDo_PredicateFailsFast(t *testing.T) {
	calls := 0
	p := fastPolicy(5)
	p.Predicate = func(err error) bool { return false }

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 invocation, got %d", calls)
	}
}

func TestDo_ExhaustionTagsAttemptCount(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, faults.New(faults.Transient, "always down")
	})
	if calls != 3 {
		t.Errorf("expected 3 invocations (1 + 2 retries), got %d", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("expected attempt count 3, got %d", exhausted.Attempts)
	}
	if faults.KindOf(err) != faults.Transient {
		t.Errorf("expected last failure unwrappable, got kind %v", faults.KindOf(err))
	}
}

func TestDo_OnRetryHookPanicDoesNotAbort(t *testing.T) {
	calls := 0
	hookCalls := 0
	p := fastPolicy(3)
	p.OnRetry = func(err error, attempt int) {
		hookCalls++
		panic("hook gone wrong")
	}

	result, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", faults.New(faults.Transient, "flaky")
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("expected success despite panicking hook, got %v", err)
	}
	if result != "done" {
		t.Errorf("expected done, got %s", result)
	}
	if hookCalls != 1 {
		t.Errorf("expected hook called once, got %d", hookCalls)
	}
}

func TestDo_ContextCancelStopsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Policy{
		MaxRetries:      3,
		InitialDelay:    10 * time.Second,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 2.0,
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		return 0, faults.New(faults.Transient, "down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancel did not interrupt backoff sleep")
	}
}

func TestPolicy_DelayGrowsAndCaps(t *testing.T) {
	p := Policy{
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        450 * time.Millisecond,
		ExponentialBase: 2.0,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 450 * time.Millisecond}, // capped
		{8, 450 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d): expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}
