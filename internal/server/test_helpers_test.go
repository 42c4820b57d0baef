package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omarluq/bizcache/internal/cache"
	"github.com/omarluq/bizcache/internal/config"
	"github.com/omarluq/bizcache/internal/health"
)

// newTestFacade returns a memory-backed Facade closed at test end.
func newTestFacade(t *testing.T) *cache.Facade {
	t.Helper()

	cfg := cache.DefaultConfig()
	cfg.Mode = cache.ModeMemory
	store, err := cache.NewStore(context.Background(), &cfg)
	require.NoError(t, err)

	f, err := cache.NewFacade(store, &cfg, health.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// newTestRuntime returns a runtime config with the given admin key.
func newTestRuntime(adminKey string) *config.Runtime {
	cfg := config.Default()
	cfg.Cache.Mode = cache.ModeMemory
	cfg.Server.AdminAPIKey = adminKey
	return config.NewRuntime(cfg)
}

// countingUpstream serves "<method> <path>?<query>" and counts requests.
type countingUpstream struct {
	status int
	calls  int
}

func (u *countingUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.calls++
	w.Header().Set("Content-Type", "text/plain")
	status := u.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(r.Method + " " + r.URL.RequestURI()))
}

func doRequest(t *testing.T, h http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
