package server

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/bizcache/internal/config"
	"github.com/omarluq/bizcache/internal/metrics"
	"github.com/omarluq/bizcache/internal/ratelimit"
)

// HeaderAdminKey authenticates operator routes that mutate the cache.
const HeaderAdminKey = "X-Admin-Key"

// AdminAuthMiddleware requires X-Admin-Key to match server.admin_api_key.
// The key is read from cfg on every request, so a hot reload takes effect
// immediately. An empty key disables the check.
//
// Keys are compared as SHA-256 digests with subtle.ConstantTimeCompare so
// neither content nor length leaks through timing.
func AdminAuthMiddleware(cfg config.RuntimeConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			srv := cfg.Get().Server
			expected, ok := srv.GetAdminKeyOption().Get()
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(HeaderAdminKey)
			if provided == "" {
				failAuth(w, r, "missing "+HeaderAdminKey+" header")
				return
			}

			want := sha256.Sum256([]byte(expected))
			got := sha256.Sum256([]byte(provided))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				failAuth(w, r, "invalid "+HeaderAdminKey)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// adminRateLimitWait is how long an admin request may queue for a token
// before it is rejected.
const adminRateLimitWait = time.Second

// AdminRateLimitMiddleware caps admin requests per minute at
// server.admin_rate_limit. A request over the limit queues briefly when a
// token is due within adminRateLimitWait and is rejected with 429
// otherwise. The limit follows config reloads; 0 disables it.
func AdminRateLimitMiddleware(cfg config.RuntimeConfig, limiter ratelimit.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter.SetLimit(cfg.Get().Server.AdminRateLimit)

			ctx, cancel := context.WithTimeout(r.Context(), adminRateLimitWait)
			err := limiter.Wait(ctx)
			cancel()
			if errors.Is(err, ratelimit.ErrContextCancelled) && r.Context().Err() != nil {
				return
			}
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().
					Int("limit_per_minute", limiter.Limit()).
					Msg("admin request rate limited")
				w.Header().Set("Retry-After", "60")
				WriteError(w, http.StatusTooManyRequests, errTypeRateLimit, ratelimit.ErrRateLimitExceeded.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func failAuth(w http.ResponseWriter, r *http.Request, reason string) {
	zerolog.Ctx(r.Context()).Warn().Msg("admin authentication failed: " + reason)
	WriteError(w, http.StatusUnauthorized, errTypeAuth, reason)
}

// RequestIDMiddleware propagates or assigns X-Request-ID and attaches a
// request-scoped logger to the context.
func RequestIDMiddleware(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := base.WithContext(r.Context())
			ctx = AddRequestID(ctx, r.Header.Get(HeaderRequestID))
			w.Header().Set(HeaderRequestID, GetRequestID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs each completed request with its status and
// duration and records it in m. m may be nil.
func LoggingMiddleware(m *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			elapsed := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			if m != nil {
				m.Observe(route, wrapped.status, elapsed)
			}
			logCompletion(r, route, wrapped, elapsed)
		})
	}
}

func logCompletion(r *http.Request, route string, w *statusWriter, elapsed time.Duration) {
	logger := zerolog.Ctx(r.Context()).With().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("route", route).
		Int("status", w.status).
		Str("duration", formatDuration(elapsed)).
		Logger()

	if xc := w.Header().Get(HeaderCache); xc != "" {
		logger = logger.With().Str("cache", xc).Logger()
	}

	msg := statusSymbol(w.status) + " " + http.StatusText(w.status) + " (" + formatDuration(elapsed) + ")"
	switch {
	case w.status >= 500:
		logger.Error().Msg(msg)
	case w.status >= 400:
		logger.Warn().Msg(msg)
	default:
		logger.Info().Msg(msg)
	}
}

func statusSymbol(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "✗"
	case statusCode >= 400:
		return "⚠"
	default:
		return "✓"
	}
}

// formatDuration uses µs below a millisecond and ms below a second.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Microsecond)
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return d.Truncate(time.Second).String()
	}
}

// statusWriter captures the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
