package claimstore

import (
	"context"
	"errors"
	"time"
)

// ErrUpstreamTransient marks an error as retryable by WithRetry and, at the
// handler layer, as a trigger for breaker.RecordFailure.
var ErrUpstreamTransient = errors.New("upstream transient error")

// Deadlines matches spec.md 5's cancellation/timeout model: a total budget
// across attempts and a per-attempt budget, with one retry on transient
// errors.
type Deadlines struct {
	Total     time.Duration
	PerAttempt time.Duration
	Retries   int
}

// DefaultDeadlines is the spec-mandated default: 10s total, 3s per attempt,
// one retry.
func DefaultDeadlines() Deadlines {
	return Deadlines{Total: 10 * time.Second, PerAttempt: 3 * time.Second, Retries: 1}
}

// WithRetry runs fn under d's total deadline, retrying up to d.Retries times
// (each under its own per-attempt deadline) when fn returns an error
// wrapping ErrUpstreamTransient. The caller's ctx cancellation always wins.
func WithRetry(ctx context.Context, d Deadlines, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.Total)
	defer cancel()

	var lastErr error
	attempts := d.Retries + 1
	for i := 0; i < attempts; i++ {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, d.PerAttempt)
		err := fn(attemptCtx)
		attemptCancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, ErrUpstreamTransient) {
			return err
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
