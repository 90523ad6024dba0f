// Package retry provides an exponential-backoff retry combinator with
// pluggable retry predicates. It replaces ad-hoc retry loops around AI and
// storage calls with a single explicit executor.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bobmcallan/marketbrief/internal/faults"
)

// Policy controls how an operation is retried. The zero value is not usable;
// start from DefaultPolicy.
type Policy struct {
	// MaxRetries is the number of re-attempts after the first try.
	MaxRetries int
	// InitialDelay is the delay before the first retry. Callers needing
	// jitter compose it into InitialDelay.
	InitialDelay time.Duration
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration
	// ExponentialBase is the backoff multiplier (delay for attempt n is
	// InitialDelay * ExponentialBase^n, capped at MaxDelay).
	ExponentialBase float64
	// RetryableKinds, when non-empty, restricts retries to failures
	// classified with one of these kinds.
	RetryableKinds []faults.Kind
	// Predicate, when set, must return true for a failure to be retried.
	Predicate func(error) bool
	// OnRetry is invoked before each sleep with the failure and the
	// 0-indexed attempt number. A panicking hook does not abort the loop.
	OnRetry func(err error, attempt int)
}

// DefaultPolicy returns a small, safe retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
	}
}

// ExhaustedError wraps the final failure after all attempts are spent.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Delay returns the backoff delay before the (0-indexed) attempt-th retry.
func (p Policy) Delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	base := p.ExponentialBase
	if base <= 0 {
		base = 2.0
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(base, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// shouldRetry evaluates the allow-list and predicate against a failure.
// Both checks must pass when configured.
func (p Policy) shouldRetry(err error) bool {
	if len(p.RetryableKinds) > 0 {
		kind := faults.KindOf(err)
		matched := false
		for _, k := range p.RetryableKinds {
			if kind == k {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if p.Predicate != nil && !p.Predicate(err) {
		return false
	}
	return true
}

// notify invokes the OnRetry hook, swallowing panics so a misbehaving hook
// cannot abort the retry loop.
func (p Policy) notify(err error, attempt int) {
	if p.OnRetry == nil {
		return
	}
	defer func() { _ = recover() }()
	p.OnRetry(err, attempt)
}

// Do executes op up to MaxRetries+1 times, sleeping between attempts with
// exponential backoff. Non-retryable failures are returned immediately. When
// all attempts fail, the last failure is returned wrapped in ExhaustedError
// carrying the total attempt count. The sleep respects ctx cancellation.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !p.shouldRetry(err) {
			return zero, err
		}
		if attempt == maxRetries {
			break
		}

		p.notify(err, attempt)

		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: maxRetries + 1, Err: lastErr}
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
