package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/omarluq/bizcache/internal/cache"
	"github.com/omarluq/bizcache/internal/config"
	"github.com/omarluq/bizcache/internal/metrics"
	"github.com/omarluq/bizcache/internal/ratelimit"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config      config.RuntimeConfig
	Facade      *cache.Facade
	Invalidator *cache.Invalidator
	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
	// Metrics records per-route request counts and latency. May be nil.
	Metrics *metrics.HTTP
	Logger  zerolog.Logger
}

// SetupRoutes creates the HTTP handler with all routes configured.
// Routes:
//   - GET /health - liveness plus backend state (no auth)
//   - GET /cache/stats - cache statistics snapshot (no auth)
//   - GET /metrics - Prometheus metrics (no auth)
//   - POST /cache/clear - remove every bizcache entry (admin)
//   - POST /cache/invalidate?pattern=... - pattern invalidation (admin)
//   - DELETE /cache/namespaces/{namespace} - namespace invalidation (admin)
//   - /api/... - caching gateway to server.upstream_url, when configured
//
// Admin routes share one per-minute budget (server.admin_rate_limit).
// Every route runs behind request ID and logging middleware.
func SetupRoutes(d Deps) (http.Handler, error) {
	cfg := d.Config.Get()
	invalidator := d.Invalidator
	if invalidator == nil {
		invalidator = cache.NewInvalidator(d.Facade)
	}

	h := &cacheHandlers{facade: d.Facade, invalidator: invalidator}
	auth := AdminAuthMiddleware(d.Config)
	limit := AdminRateLimitMiddleware(d.Config, ratelimit.NewTokenBucketLimiter(cfg.Server.AdminRateLimit))
	admin := func(h http.Handler) http.Handler { return auth(limit(h)) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /cache/stats", h.stats)
	mux.Handle("POST /cache/clear", admin(http.HandlerFunc(h.clear)))
	mux.Handle("POST /cache/invalidate", admin(http.HandlerFunc(h.invalidate)))
	mux.Handle("DELETE /cache/namespaces/{namespace}", admin(http.HandlerFunc(h.invalidateNamespace)))

	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	if upstream := cfg.Server.UpstreamURL; upstream != "" {
		rc := cfg.Server.ResponseCache
		gw, err := NewGateway(upstream, invalidator, rc.GetNamespace())
		if err != nil {
			return nil, fmt.Errorf("failed to create gateway: %w", err)
		}
		var api http.Handler = gw
		if rc.Enabled {
			api = ResponseCache(d.Facade, rc.GetNamespace())(api)
		}
		mux.Handle("/api/", http.StripPrefix("/api", api))
	}

	var handler http.Handler = mux
	handler = LoggingMiddleware(d.Metrics)(handler)
	handler = RequestIDMiddleware(d.Logger)(handler)
	return handler, nil
}
