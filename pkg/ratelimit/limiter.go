package ratelimit

import (
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"kinship-hq/sentinel/pkg/config"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed bool

	// Limit is the bucket capacity.
	Limit int64

	// Remaining is the tokens left after this call.
	Remaining int64

	// RetryAfter is set when the request was rejected.
	RetryAfter time.Duration
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	enabled  bool
	capacity int64
	rate     float64
	buckets  *gocache.Cache
	now      func() time.Time
}

// New creates a limiter. A disabled config allows everything.
func New(cfg config.RateLimitConfig) *Limiter {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = config.DefaultRateLimitIdleTTL
	}
	return &Limiter{
		enabled:  cfg.Enabled,
		capacity: int64(cfg.Burst),
		rate:     float64(cfg.RequestsPerMinute) / 60.0,
		buckets:  gocache.New(ttl, ttl),
		now:      time.Now,
	}
}

// Enabled reports whether requests are limited.
func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow takes one token from the bucket of key.
func (l *Limiter) Allow(key string) Result {
	if !l.Enabled() {
		return Result{Allowed: true, Limit: -1, Remaining: -1}
	}

	b := l.bucket(key)
	if b.Take(1) {
		return Result{Allowed: true, Limit: l.capacity, Remaining: b.Remaining()}
	}
	return Result{
		Limit:      l.capacity,
		Remaining:  0,
		RetryAfter: b.TimeUntilAvailable(1),
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	return l.buckets.ItemCount()
}

// bucket returns the bucket for key and pushes back its expiry.
func (l *Limiter) bucket(key string) *TokenBucket {
	if v, ok := l.buckets.Get(key); ok {
		b := v.(*TokenBucket)
		l.buckets.SetDefault(key, b)
		return b
	}
	b := newTokenBucket(l.capacity, l.rate, l.now)
	if err := l.buckets.Add(key, b, gocache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := l.buckets.Get(key); ok {
			return v.(*TokenBucket)
		}
	}
	return b
}

// RetryAfterSeconds rounds d up to whole seconds for the Retry-After header.
func RetryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
