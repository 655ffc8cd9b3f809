package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrRateLimit indicates that the API rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// BackoffStrategy selects how the delay grows between attempts.
type BackoffStrategy int

// Backoff strategies.
const (
	BackoffExponential BackoffStrategy = iota
	BackoffFixed
	BackoffLinear
)

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Strategy     BackoffStrategy
	// Name labels log lines for this operation.
	Name string
}

// FixedRetry returns options that retry a fixed number of times with a constant delay.
func FixedRetry(attempts int, delay time.Duration) RetryOptions {
	return RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		MaxDelay:     delay,
		Strategy:     BackoffFixed,
	}
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay < 0 {
		o.InitialDelay = 0
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	return o
}

// delayAfter returns the wait that follows the given (1-based) failed attempt.
func (o RetryOptions) delayAfter(attempt int) time.Duration {
	var d time.Duration
	switch o.Strategy {
	case BackoffFixed:
		d = o.InitialDelay
	case BackoffLinear:
		d = o.InitialDelay * time.Duration(attempt)
	default:
		d = o.InitialDelay
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * o.Multiplier)
			if d > o.MaxDelay {
				break
			}
		}
	}
	if d > o.MaxDelay {
		d = o.MaxDelay
	}
	return d
}

// Outcome is the typed result of a retried operation.
type Outcome[T any] struct {
	Value    T
	Err      error
	Attempts int
}

// OK reports whether the operation eventually succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Retry runs op until it succeeds, returns a non-retryable error, or the attempts
// are exhausted. Exhaustion is reported as an error wrapping ErrMaxRetries and the
// last failure.
func Retry[T any](ctx context.Context, opts RetryOptions, op func(context.Context) (T, error)) Outcome[T] {
	opts = opts.withDefaults()

	var zero T
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return Outcome[T]{Value: value, Attempts: attempt}
		}

		if !IsRetryable(err) {
			return Outcome[T]{Value: zero, Err: err, Attempts: attempt}
		}

		if attempt == opts.MaxAttempts {
			return Outcome[T]{
				Value:    zero,
				Err:      fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err),
				Attempts: attempt,
			}
		}

		delay := opts.delayAfter(attempt)
		if errors.Is(err, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		slog.Warn("Operation failed, retrying",
			"operation", opts.Name,
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		if err := Sleep(ctx, delay); err != nil {
			return Outcome[T]{Value: zero, Err: err, Attempts: attempt}
		}
	}

	return Outcome[T]{Value: zero, Err: ErrMaxRetries, Attempts: opts.MaxAttempts}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
