package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errLimiterClosed = errors.New("rate limiter closed")

// rateLimiter is a token bucket refilled lazily from the time elapsed since the
// last acquisition.
type rateLimiter struct {
	last     time.Time
	interval time.Duration
	tokens   float64
	capacity float64
	mu       sync.Mutex
	closed   bool
}

// newRateLimiter allows requestsPerMinute on average with at most burst
// requests back to back. A burst of 1 spaces requests evenly.
func newRateLimiter(requestsPerMinute, burst int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if burst <= 0 || burst > requestsPerMinute {
		burst = requestsPerMinute
	}
	return &rateLimiter{
		last:     time.Now(),
		interval: time.Minute / time.Duration(requestsPerMinute),
		tokens:   float64(burst),
		capacity: float64(burst),
	}
}

// reserve takes a token if one is available. Otherwise it reports how long
// until the next one accrues.
func (rl *rateLimiter) reserve() (time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.closed {
		return 0, errLimiterClosed
	}

	now := time.Now()
	rl.tokens += float64(now.Sub(rl.last)) / float64(rl.interval)
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.last = now

	if rl.tokens >= 1 {
		rl.tokens--
		return 0, nil
	}
	return time.Duration((1 - rl.tokens) * float64(rl.interval)), nil
}

// wait blocks until a token is available or ctx is done.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		delay, err := rl.reserve()
		if err != nil {
			return err
		}
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// tryAcquire takes a token without blocking.
func (rl *rateLimiter) tryAcquire() bool {
	delay, err := rl.reserve()
	return err == nil && delay == 0
}

// Close makes later waits fail. It is safe to call more than once.
func (rl *rateLimiter) Close() {
	rl.mu.Lock()
	rl.closed = true
	rl.mu.Unlock()
}
