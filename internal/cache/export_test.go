package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/bizcache/internal/health"
)

var errBackendDown = errors.New("connection refused")

// faultyStore is an in-memory Store that can be switched into failing or
// hanging modes to drive the Facade's fallback paths.
type faultyStore struct {
	data    map[string]faultyItem
	mu      sync.Mutex
	calls   atomic.Int64
	failing atomic.Bool
	hanging atomic.Bool
}

type faultyItem struct {
	expiresAt time.Time
	value     []byte
}

var (
	_ Store          = (*faultyStore)(nil)
	_ PatternDeleter = (*faultyStore)(nil)
)

func newFaultyStore() *faultyStore {
	return &faultyStore{data: make(map[string]faultyItem)}
}

func (s *faultyStore) fail() { s.failing.Store(true) }
func (s *faultyStore) heal() { s.failing.Store(false); s.hanging.Store(false) }
func (s *faultyStore) hang() { s.hanging.Store(true) }

func (s *faultyStore) enter(ctx context.Context) error {
	s.calls.Add(1)
	if s.hanging.Load() {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.failing.Load() {
		return errBackendDown
	}
	return nil
}

func (s *faultyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[key]
	if !ok || !time.Now().Before(it.expiresAt) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), it.value...), nil
}

func (s *faultyStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = faultyItem{value: append([]byte(nil), value...), expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *faultyStore) Delete(ctx context.Context, key string) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *faultyStore) DeleteMatching(ctx context.Context, p Pattern) ([]string, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for k, it := range s.data {
		if !p.Match(k) {
			continue
		}
		delete(s.data, k)
		if time.Now().Before(it.expiresAt) {
			removed = append(removed, k)
		}
	}
	return removed, nil
}

func (s *faultyStore) Close() error { return nil }

// has reports whether key is stored, bypassing failure injection.
func (s *faultyStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.OpTimeoutMS = 50
	cfg.Local.MaxEntries = 100
	return cfg
}

// testHealthConfig disables the background prober and uses a short
// cooldown so tests drive probes explicitly.
func testHealthConfig() health.Config {
	disabled := false
	return health.Config{
		HealthCheck: health.CheckConfig{
			Enabled:       &disabled,
			TimeoutMS:     100,
			ProbeEveryOps: 1000,
		},
		CircuitBreaker: health.CircuitBreakerConfig{
			FailureThreshold: 1,
			OpenDurationMS:   30,
			HalfOpenProbes:   1,
		},
	}
}

func newTestFacade(t *testing.T, store Store) *Facade {
	t.Helper()
	return newTestFacadeWith(t, store, testConfig(), testHealthConfig())
}

func newTestFacadeWith(t *testing.T, store Store, cfg Config, hcfg health.Config) *Facade {
	t.Helper()
	f, err := NewFacade(store, &cfg, hcfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// newTestRedisStore returns a store on a miniredis server scoped to prefix.
func newTestRedisStore(t *testing.T, prefix string) (*redisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return newRedisStoreFromClient(client, prefix), mr
}

func newTestRedisFacade(t *testing.T) (*Facade, *miniredis.Miniredis) {
	t.Helper()
	store, mr := newTestRedisStore(t, DefaultKeyPrefix)
	return newTestFacade(t, store), mr
}

// degrade fails one shared operation so the Facade leaves SHARED_ACTIVE.
func degrade(t *testing.T, f *Facade, s *faultyStore) {
	t.Helper()
	s.fail()
	f.Set(context.Background(), "degrade:probe", []byte("x"), time.Minute)
	require.NotEqual(t, health.StateClosed, f.State())
}

func waitForState(t *testing.T, f *Facade, want health.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.State() == want
	}, 2*time.Second, 5*time.Millisecond)
}
