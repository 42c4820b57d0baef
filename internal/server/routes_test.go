package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/bizcache/internal/cache"
	"github.com/omarluq/bizcache/internal/config"
	"github.com/omarluq/bizcache/internal/metrics"
)

const testAdminKey = "admin-secret"

func newTestRoutes(t *testing.T, mutate func(*config.Config)) (http.Handler, *cache.Facade) {
	t.Helper()

	runtime := newTestRuntime(testAdminKey)
	if mutate != nil {
		cfg := *runtime.Get()
		mutate(&cfg)
		runtime.Store(&cfg)
	}

	f := newTestFacade(t)
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(f, time.Second))

	h, err := SetupRoutes(Deps{
		Config:   runtime,
		Facade:   f,
		Gatherer: reg,
		Metrics:  metrics.NewHTTP(reg),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return h, f
}

func seed(t *testing.T, f *cache.Facade, keys ...string) {
	t.Helper()
	for _, k := range keys {
		f.Set(context.Background(), k, []byte("v"), time.Minute)
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRoutes_Health(t *testing.T) {
	t.Parallel()

	h, _ := newTestRoutes(t, nil)
	rec := doRequest(t, h, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[healthResponse](t, rec.Body.Bytes())
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "SHARED_ACTIVE", resp.BackendState)
	assert.Equal(t, cache.TierShared, resp.BackendInUse)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestRoutes_Stats(t *testing.T) {
	t.Parallel()

	h, f := newTestRoutes(t, nil)
	seed(t, f, "plants:a")
	f.Get(context.Background(), "plants:a")
	f.Get(context.Background(), "plants:b")

	rec := doRequest(t, h, http.MethodGet, "/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decode[cache.Snapshot](t, rec.Body.Bytes())
	assert.Equal(t, uint64(1), snap.HitCount)
	assert.Equal(t, uint64(1), snap.MissCount)
	assert.Equal(t, cache.ModeMemory, snap.SharedMode)
	assert.True(t, snap.SharedBackendReachable)
}

func TestRoutes_ClearRequiresAdminKey(t *testing.T) {
	t.Parallel()

	h, f := newTestRoutes(t, nil)
	seed(t, f, "plants:a", "sensors:b")

	rec := doRequest(t, h, http.MethodPost, "/cache/clear", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, ok := f.Get(context.Background(), "plants:a")
	assert.True(t, ok, "unauthorized clear must not remove entries")

	rec = doRequest(t, h, http.MethodPost, "/cache/clear", map[string]string{HeaderAdminKey: testAdminKey})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[removedResponse](t, rec.Body.Bytes()).Removed)

	_, ok = f.Get(context.Background(), "plants:a")
	assert.False(t, ok)
}

func TestRoutes_Invalidate(t *testing.T) {
	t.Parallel()

	h, f := newTestRoutes(t, nil)
	seed(t, f, "plants:a", "plants:b", "plantings:c", "sensors:d")
	admin := map[string]string{HeaderAdminKey: testAdminKey}

	rec := doRequest(t, h, http.MethodPost, "/cache/invalidate?pattern=plants", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[removedResponse](t, rec.Body.Bytes())
	assert.Equal(t, 2, resp.Removed)
	assert.Equal(t, "plants", resp.Pattern)

	_, ok := f.Get(context.Background(), "plantings:c")
	assert.True(t, ok, "namespace invalidation must not match longer names")

	rec = doRequest(t, h, http.MethodPost, "/cache/invalidate?pattern=plant*&pattern=sensors", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[removedResponse](t, rec.Body.Bytes()).Removed)
}

func TestRoutes_InvalidateRejectsBadInput(t *testing.T) {
	t.Parallel()

	h, _ := newTestRoutes(t, nil)
	admin := map[string]string{HeaderAdminKey: testAdminKey}

	rec := doRequest(t, h, http.MethodPost, "/cache/invalidate", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/cache/invalidate?pattern=", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/cache/invalidate?pattern=plants", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_DeleteNamespace(t *testing.T) {
	t.Parallel()

	h, f := newTestRoutes(t, nil)
	seed(t, f, "dashboard_stats:[[],{}]", "plants:a")

	rec := doRequest(t, h, http.MethodDelete, "/cache/namespaces/dashboard_stats",
		map[string]string{HeaderAdminKey: testAdminKey})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[removedResponse](t, rec.Body.Bytes())
	assert.Equal(t, 1, resp.Removed)
	assert.Equal(t, "dashboard_stats", resp.Pattern)

	_, ok := f.Get(context.Background(), "plants:a")
	assert.True(t, ok)
}

func TestRoutes_Metrics(t *testing.T) {
	t.Parallel()

	h, _ := newTestRoutes(t, nil)
	doRequest(t, h, http.MethodGet, "/health", nil)

	rec := doRequest(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "bizcache_cache_hits_total")
	assert.Contains(t, body, `bizcache_backend_state{mode="memory",state="SHARED_ACTIVE"} 1`)
	assert.Contains(t, body, `bizcache_http_requests_total{code="200",route="GET /health"} 1`)
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h, _ := newTestRoutes(t, nil)
	rec := doRequest(t, h, http.MethodGet, "/cache/clear", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoutes_GatewayWithResponseCache(t *testing.T) {
	t.Parallel()

	upstream := newUpstreamServer(t, http.StatusOK)
	h, f := newTestRoutes(t, func(c *config.Config) {
		c.Server.UpstreamURL = upstream.URL
		c.Server.ResponseCache.Enabled = true
	})

	first := doRequest(t, h, http.MethodGet, "/api/plants?page=1", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "GET /plants", first.Body.String())
	assert.Equal(t, cacheMiss, first.Header().Get(HeaderCache))

	second := doRequest(t, h, http.MethodGet, "/api/plants?page=1", nil)
	assert.Equal(t, cacheHit, second.Header().Get(HeaderCache))

	_, ok := f.Get(context.Background(), `responses:[["/plants"],{"page":"1"}]`)
	assert.True(t, ok)

	write := doRequest(t, h, http.MethodPost, "/api/plants", nil)
	require.Equal(t, http.StatusOK, write.Code)

	third := doRequest(t, h, http.MethodGet, "/api/plants?page=1", nil)
	assert.Equal(t, cacheMiss, third.Header().Get(HeaderCache), "write through the gateway should invalidate")
}

func TestRoutes_NoGatewayWithoutUpstream(t *testing.T) {
	t.Parallel()

	h, _ := newTestRoutes(t, nil)
	rec := doRequest(t, h, http.MethodGet, "/api/plants", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutesShareRateLimit(t *testing.T) {
	t.Parallel()
	h, _ := newTestRoutes(t, func(cfg *config.Config) {
		cfg.Server.AdminRateLimit = 1
	})
	admin := map[string]string{HeaderAdminKey: testAdminKey}

	// Unauthenticated requests do not spend the budget.
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, h, http.MethodPost, "/cache/clear", nil).Code)

	assert.Equal(t, http.StatusOK, doRequest(t, h, http.MethodPost, "/cache/clear", admin).Code)
	assert.Equal(t, http.StatusTooManyRequests,
		doRequest(t, h, http.MethodDelete, "/cache/namespaces/plants", admin).Code)

	// Read-only routes are never limited.
	assert.Equal(t, http.StatusOK, doRequest(t, h, http.MethodGet, "/cache/stats", nil).Code)
}
