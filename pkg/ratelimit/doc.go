// Package ratelimit throttles classification requests per author.
//
// Each author gets a token bucket holding Burst tokens that refills at
// RequestsPerMinute. Buckets of authors that stay quiet for IdleTTL are
// evicted, so memory is bounded by the number of recently active authors.
//
//	limiter := ratelimit.New(cfg.Server.RateLimit)
//	if res := limiter.Allow(authorID); !res.Allowed {
//	    // reply 429 with Retry-After: res.RetryAfter
//	}
package ratelimit
