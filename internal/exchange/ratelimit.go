// ratelimit.go implements token-bucket rate limiting for the live venue's
// REST API.
//
// The venue enforces per-category limits measured in requests per 2-second
// windows. Buckets refill continuously rather than in 2s bursts to avoid
// hitting hard limits.
//
// Two buckets are maintained:
//   - Order:   60 burst / 30 per sec (order placement and lookups)
//   - Account: 10 burst /  5 per sec (balance reads)
package exchange

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a rate limiter with continuous refill. Callers block in
// Wait until a token is available or the context is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64 // fractional tokens allowed
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
}

// NewTokenBucket creates a full bucket with the given burst capacity and
// refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		last:     time.Now(),
	}
}

// refill credits tokens for the time elapsed since the last call.
// Caller must hold mu.
func (tb *TokenBucket) refill(now time.Time) {
	tb.tokens += now.Sub(tb.last).Seconds() * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.last = now
}

// take consumes one token if available, otherwise reports how long until
// the next token accrues.
func (tb *TokenBucket) take() (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	return time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second)), false
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait, ok := tb.take()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter groups token buckets by venue API endpoint category. Each
// REST call waits on its category's bucket before issuing the request.
type RateLimiter struct {
	Order   *TokenBucket // POST /trade/order, GET /trade/order
	Account *TokenBucket // GET /account/balance
}

// NewRateLimiter creates buckets tuned to the venue's published limits:
// capacity is the 2-second burst allowance, rate is half of it for smooth
// refill.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Order:   NewTokenBucket(60, 30),
		Account: NewTokenBucket(10, 5),
	}
}
