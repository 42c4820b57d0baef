package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/bizcache/internal/health"
)

func TestFacadeRoundTrip(t *testing.T) {
	t.Parallel()

	f, mr := newTestRedisFacade(t)
	ctx := context.Background()

	f.Set(ctx, "plants:list", []byte("payload"), time.Minute)
	assert.True(t, mr.Exists("bizcache:plants:list"))

	got, ok := f.Get(ctx, "plants:list")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)
	assert.Equal(t, 0, f.local.Len(), "healthy writes go to the shared tier only")

	f.Delete(ctx, "plants:list")
	_, ok = f.Get(ctx, "plants:list")
	assert.False(t, ok)
	assert.Equal(t, health.StateClosed, f.State())
}

func TestFacadeExpiry(t *testing.T) {
	t.Parallel()

	f, mr := newTestRedisFacade(t)
	ctx := context.Background()

	f.Set(ctx, "k", []byte("v"), time.Second)
	mr.FastForward(1500 * time.Millisecond)

	_, ok := f.Get(ctx, "k")
	assert.False(t, ok)
}

func TestFacadeDefaultTTL(t *testing.T) {
	t.Parallel()

	f, mr := newTestRedisFacade(t)
	f.Set(context.Background(), "k", []byte("v"), 0)
	assert.Equal(t, DefaultTTLSeconds*time.Second, mr.TTL("bizcache:k"))

	f.SetTTLPolicy(TTLConfig{DefaultSeconds: 42})
	f.Set(context.Background(), "k2", []byte("v"), 0)
	assert.Equal(t, 42*time.Second, mr.TTL("bizcache:k2"))
}

func TestFacadeIgnoresEmptyKey(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	f := newTestFacade(t, store)
	ctx := context.Background()

	f.Set(ctx, "", []byte("v"), time.Minute)
	_, ok := f.Get(ctx, "")
	assert.False(t, ok)
	assert.Zero(t, store.calls.Load())
}

func TestFacadeFallbackIsTransparent(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	store.fail()
	f := newTestFacade(t, store)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		f.Set(ctx, "plants:list", []byte("payload"), time.Minute)
	})
	assert.NotEqual(t, health.StateClosed, f.State())

	got, ok := f.Get(ctx, "plants:list")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)
	assert.Equal(t, 1, f.local.Len())
}

func TestFacadeDegradedSkipsSharedStore(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	f := newTestFacade(t, store)
	degrade(t, f, store)

	before := store.calls.Load()
	ctx := context.Background()
	for range 20 {
		f.Set(ctx, "k", []byte("v"), time.Minute)
		f.Get(ctx, "k")
		f.Delete(ctx, "k")
	}
	_, err := f.Invalidate(ctx, "k")
	require.NoError(t, err)
	f.Clear(ctx)

	assert.Equal(t, before, store.calls.Load())
}

func TestFacadeRecoveryPurgesLocalTier(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	f := newTestFacade(t, store)
	ctx := context.Background()
	degrade(t, f, store)

	f.Set(ctx, "clients:list", []byte("written while degraded"), time.Minute)
	_, ok := f.Get(ctx, "clients:list")
	require.True(t, ok)

	store.heal()
	waitForState(t, f, health.StateHalfOpen)
	require.NoError(t, f.ProbeNow(ctx))

	assert.Equal(t, health.StateClosed, f.State())
	assert.Equal(t, 0, f.local.Len())
	_, ok = f.Get(ctx, "clients:list")
	assert.False(t, ok, "values written while degraded must not resurface")
}

func TestFacadePingLeavesStateAlone(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	f := newTestFacade(t, store)
	ctx := context.Background()

	require.NoError(t, f.Ping(ctx))
	require.ErrorIs(t, f.ProbeNow(ctx), health.ErrNotProbing, "probing needs a tripped breaker")

	store.fail()
	require.Error(t, f.Ping(ctx))
	assert.Equal(t, health.StateClosed, f.State(), "a ping is not a recorded failure")
	assert.Zero(t, f.Snapshot(ctx).BackendErrors)

	require.NoError(t, f.Close())
	assert.ErrorIs(t, f.Ping(ctx), ErrClosed)
}

func TestFacadeFailedProbeStaysDegraded(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	f := newTestFacade(t, store)
	ctx := context.Background()
	degrade(t, f, store)

	waitForState(t, f, health.StateHalfOpen)
	err := f.ProbeNow(ctx)
	require.ErrorIs(t, err, health.ErrHealthCheckFailed)
	assert.NotEqual(t, health.StateClosed, f.State())

	f.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := f.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestFacadeOperationTriggersProbe(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	hcfg := testHealthConfig()
	hcfg.HealthCheck.ProbeEveryOps = 3
	f := newTestFacadeWith(t, store, testConfig(), hcfg)
	ctx := context.Background()
	degrade(t, f, store)

	store.heal()
	waitForState(t, f, health.StateHalfOpen)

	require.Eventually(t, func() bool {
		f.Get(ctx, "any")
		return f.State() == health.StateClosed
	}, 2*time.Second, 5*time.Millisecond)
}

func TestFacadeBackgroundProberRecovers(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	hcfg := testHealthConfig()
	enabled := true
	hcfg.HealthCheck.Enabled = &enabled
	hcfg.HealthCheck.IntervalMS = 10
	f := newTestFacadeWith(t, store, testConfig(), hcfg)
	f.Start()
	degrade(t, f, store)

	store.heal()
	waitForState(t, f, health.StateClosed)
}

func TestFacadeOperationTimeout(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	f := newTestFacade(t, store)
	store.hang()

	start := time.Now()
	_, ok := f.Get(context.Background(), "k")
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Less(t, elapsed, time.Second)
	assert.NotEqual(t, health.StateClosed, f.State())
}

func TestFacadeCanceledContextUsesLocalTier(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	f := newTestFacade(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := f.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Zero(t, store.calls.Load())
	assert.Equal(t, health.StateClosed, f.State(), "caller cancellation is not a backend failure")
}

func TestFacadeInvalidateScoping(t *testing.T) {
	t.Parallel()

	f, mr := newTestRedisFacade(t)
	ctx := context.Background()

	plants, err := f.Key("plants:list", nil, map[string]any{"page": 1})
	require.NoError(t, err)
	products, err := f.Key("products:list", nil, map[string]any{"page": 1})
	require.NoError(t, err)

	f.Set(ctx, plants, []byte("p"), time.Minute)
	f.Set(ctx, products, []byte("q"), time.Minute)
	f.Set(ctx, "plants_archive", []byte("r"), time.Minute)

	n, err := f.Invalidate(ctx, "plants")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := f.Get(ctx, plants)
	assert.False(t, ok)
	_, ok = f.Get(ctx, products)
	assert.True(t, ok)
	assert.True(t, mr.Exists("bizcache:plants_archive"))

	n, err = f.Invalidate(ctx, "plants")
	require.NoError(t, err)
	assert.Zero(t, n, "invalidation is idempotent")

	_, err = f.Invalidate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}

func TestFacadeInvalidateWhileDegraded(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	f := newTestFacade(t, store)
	ctx := context.Background()
	degrade(t, f, store)

	f.Set(ctx, "plants:a", []byte("1"), time.Minute)
	f.Set(ctx, "products:a", []byte("2"), time.Minute)

	n, err := f.Invalidate(ctx, "plants")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := f.Get(ctx, "plants:a")
	assert.False(t, ok)
	_, ok = f.Get(ctx, "products:a")
	assert.True(t, ok)
}

func TestFacadeClearStaysInPrefix(t *testing.T) {
	t.Parallel()

	f, mr := newTestRedisFacade(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("sessions:abc", "keep"))

	f.Set(ctx, "a", []byte("1"), time.Minute)
	f.Set(ctx, "b:c", []byte("2"), time.Minute)

	assert.Equal(t, 2, f.Clear(ctx))
	assert.True(t, mr.Exists("sessions:abc"))
	_, ok := f.Get(ctx, "a")
	assert.False(t, ok)
}

func TestFacadeMemoryModeUsesKeyIndex(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Mode = ModeMemory
	cfg.Memory = MemoryConfig{NumCounters: 1000, MaxCost: 1 << 20}
	store, err := NewStore(context.Background(), &cfg)
	require.NoError(t, err)

	f := newTestFacadeWith(t, store, cfg, testHealthConfig())
	require.NotNil(t, f.index)
	ctx := context.Background()

	f.Set(ctx, "plants:a", []byte("1"), time.Minute)
	f.Set(ctx, "plants:b", []byte("2"), time.Minute)
	f.Set(ctx, "products:a", []byte("3"), time.Minute)

	n, err := f.Invalidate(ctx, "plants")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := f.Get(ctx, "plants:a")
	assert.False(t, ok)
	_, ok = f.Get(ctx, "products:a")
	assert.True(t, ok)

	assert.Equal(t, 1, f.Clear(ctx))
	_, ok = f.Get(ctx, "products:a")
	assert.False(t, ok)
}

func TestFacadeIndexOverflowEvictsFromStore(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	cfg := testConfig()
	cfg.Memory.IndexSize = 2
	f := newTestFacadeWith(t, struct{ Store }{store}, cfg, testHealthConfig())
	ctx := context.Background()

	f.Set(ctx, "a", []byte("1"), time.Minute)
	f.Set(ctx, "b", []byte("2"), time.Minute)
	f.Set(ctx, "c", []byte("3"), time.Minute)

	assert.False(t, store.has("a"), "keys dropped from the index are evicted")
	assert.True(t, store.has("b"))
	assert.True(t, store.has("c"))

	n, err := f.Invalidate(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, store.has("b"))
}

func TestFacadeDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Mode = ModeDisabled
	store, err := NewStore(context.Background(), &cfg)
	require.NoError(t, err)
	f := newTestFacadeWith(t, store, cfg, testHealthConfig())
	ctx := context.Background()

	f.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := f.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, f.local.Len())
	assert.Equal(t, 0, f.Clear(ctx))
	assert.Equal(t, ModeDisabled, f.Mode())
}

func TestFacadeClose(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	cfg := testConfig()
	f, err := NewFacade(store, &cfg, testHealthConfig())
	require.NoError(t, err)
	ctx := context.Background()

	f.Set(ctx, "k", []byte("v"), time.Minute)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	calls := store.calls.Load()
	_, ok := f.Get(ctx, "k")
	assert.False(t, ok)
	f.Set(ctx, "k", []byte("v"), time.Minute)
	assert.Equal(t, calls, store.calls.Load())
}
