package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter implements RateLimiter using golang.org/x/time/rate.
// Burst equals the per-minute limit, so a full minute's budget can be spent
// at once and then refills gradually.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
	rpm     int
	mu      sync.RWMutex
}

// NewTokenBucketLimiter creates a limiter allowing rpm requests per minute.
// Zero or negative rpm means unlimited.
func NewTokenBucketLimiter(rpm int) *TokenBucketLimiter {
	l := &TokenBucketLimiter{}
	l.SetLimit(rpm)
	return l
}

func newRateLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
}

// Allow checks if a request is allowed under the current limit.
func (l *TokenBucketLimiter) Allow(_ context.Context) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// Wait blocks until a request is allowed or the context is canceled.
// Returns ErrContextCancelled if ctx is done while waiting, and
// ErrRateLimitExceeded without waiting when the next token would only
// arrive after ctx's deadline.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}
		return fmt.Errorf("%w: %w", ErrRateLimitExceeded, err)
	}
	return nil
}

// SetLimit replaces the limit with a fresh, full bucket. Setting the
// current limit again is a no-op and keeps the spent budget.
func (l *TokenBucketLimiter) SetLimit(rpm int) {
	if rpm < 0 {
		rpm = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limiter != nil && l.rpm == rpm {
		return
	}
	l.limiter = newRateLimiter(rpm)
	l.rpm = rpm
}

// Limit returns the per-minute limit, 0 when unlimited.
func (l *TokenBucketLimiter) Limit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rpm
}

// GetUsage returns the current usage statistics. x/time/rate does not
// expose spent tokens, so usage is derived from the tokens left.
func (l *TokenBucketLimiter) GetUsage() Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.rpm == 0 {
		return Usage{}
	}
	remaining := clampUsage(int(l.limiter.Tokens()), l.rpm)
	return Usage{
		RequestsUsed:      l.rpm - remaining,
		RequestsLimit:     l.rpm,
		RequestsRemaining: remaining,
	}
}

func clampUsage(remaining, limit int) int {
	if remaining < 0 {
		return 0
	}
	if remaining > limit {
		return limit
	}
	return remaining
}

// Compile-time check that TokenBucketLimiter implements RateLimiter.
var _ RateLimiter = (*TokenBucketLimiter)(nil)
