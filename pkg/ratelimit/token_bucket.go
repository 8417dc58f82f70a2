package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket allows bursts up to capacity while holding the average rate
// at refillRate tokens per second.
//
// TokenBucket is safe for concurrent use.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket.
//
//	// 1 request/sec average, burst up to 20
//	bucket := NewTokenBucket(20, 1)
func NewTokenBucket(capacity int64, refillRate float64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity int64, refillRate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Take consumes n tokens if they are available.
func (tb *TokenBucket) Take(n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Remaining returns the whole tokens currently available.
func (tb *TokenBucket) Remaining() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return int64(tb.tokens)
}

// TimeUntilAvailable returns how long until n tokens will be available, or
// 0 if they are available now.
func (tb *TokenBucket) TimeUntilAvailable(n int64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	missing := float64(n) - tb.tokens
	if missing <= 0 {
		return 0
	}
	if tb.refillRate <= 0 {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(missing / tb.refillRate * float64(time.Second))
}

// Reset refills the bucket.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

// refillLocked adds tokens for the time elapsed since the last refill.
// Fractional tokens are kept so slow rates still refill.
func (tb *TokenBucket) refillLocked() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed.Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}
