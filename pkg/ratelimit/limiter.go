package ratelimit

import (
	"context"
	"sync"
	"time"
)

// retryInterval is how long Wait dozes when the limiter cannot predict the
// next admission time
const retryInterval = 100 * time.Millisecond

// Limiter admits requests under a rate policy
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request is admitted or ctx is cancelled
	Wait(ctx context.Context) error
	// Reset discards all limiter state
	Reset()
}

// TokenBucket admits up to capacity requests per refill period. The whole
// bucket refills at once when the period elapses.
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a token bucket limiter allowing at most capacity
// requests per refill period
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.take()
	return ok
}

// Wait blocks until a token is taken or ctx is cancelled. The admission check
// and the wait estimate come from the same lock acquisition, so a token
// granted between them cannot be missed.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		ok, wait := tb.take()
		if ok {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Reset refills the bucket to capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// take attempts to consume a token; on failure it returns the time until the
// next refill
func (tb *TokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	wait := tb.refillPeriod - now.Sub(tb.lastRefill)
	if wait <= 0 {
		wait = retryInterval
	}
	return false, wait
}

// SlidingWindow admits up to maxRequests within any windowSize interval,
// tracking individual request times rather than refilling in bulk
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a sliding window limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow records the request if the window has room
func (sw *SlidingWindow) Allow() bool {
	ok, _ := sw.record()
	return ok
}

// Wait blocks until the window has room or ctx is cancelled. The wait time is
// the oldest in-window request's remaining lifetime, computed under the same
// lock as the admission check.
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		ok, wait := sw.record()
		if ok {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Reset discards all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// record attempts to admit a request; on failure it returns how long until
// the oldest in-window request expires
func (sw *SlidingWindow) record() (bool, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.dropExpired(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true, 0
	}

	wait := sw.windowSize - now.Sub(sw.requests[0])
	if wait <= 0 {
		wait = retryInterval
	}
	return false, wait
}

// dropExpired removes requests older than the window
func (sw *SlidingWindow) dropExpired(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// sleep pauses for d or until ctx is cancelled
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
