// Package ratelimit throttles operator requests that fan out to the shared
// cache tier. Pattern invalidation and clear scan the shared store, so a
// runaway script calling them in a loop is capped here.
//
// Basic usage:
//
//	limiter := ratelimit.NewTokenBucketLimiter(30) // 30 requests per minute
//
//	if !limiter.Allow(ctx) {
//		return ratelimit.ErrRateLimitExceeded
//	}
package ratelimit

import (
	"context"
	"errors"
)

// Common errors returned by rate limiters.
var (
	// ErrRateLimitExceeded is returned when a rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

	// ErrContextCancelled is returned when the context is canceled during a blocking operation.
	ErrContextCancelled = errors.New("ratelimit: context canceled")
)

// Usage reports the current budget of a limiter. A zero RequestsLimit
// means unlimited.
type Usage struct {
	RequestsUsed      int `json:"requests_used"`
	RequestsLimit     int `json:"requests_limit"`
	RequestsRemaining int `json:"requests_remaining"`
}

// RateLimiter limits requests per minute. Implementations are safe for
// concurrent use.
type RateLimiter interface {
	// Allow reports whether a request may proceed now. It never blocks.
	Allow(ctx context.Context) bool

	// Wait blocks until a request is allowed or ctx is canceled.
	Wait(ctx context.Context) error

	// SetLimit replaces the per-minute limit. Zero or negative disables limiting.
	SetLimit(rpm int)

	// Limit returns the configured per-minute limit, 0 when unlimited.
	Limit() int

	// GetUsage returns the current usage statistics.
	GetUsage() Usage
}
