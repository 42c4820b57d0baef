package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

// memoryStore implements Store on an in-process Ristretto cache. It owns
// its keyspace outright, so Clear drops everything. Ristretto cannot
// enumerate keys; the Facade tracks them in a keyIndex for invalidation.
type memoryStore struct {
	cache  *ristretto.Cache[string, []byte]
	log    zerolog.Logger
	closed atomic.Bool
	mu     sync.RWMutex
}

// Ensure memoryStore implements the required interfaces.
var (
	_ Store         = (*memoryStore)(nil)
	_ Clearer       = (*memoryStore)(nil)
	_ StatsProvider = (*memoryStore)(nil)
	_ Named         = (*memoryStore)(nil)
)

func newMemoryStore(cfg MemoryConfig) (*memoryStore, error) {
	log := partLogger("memory")

	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: bufferItems,
		Metrics:     true,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create ristretto cache")
		return nil, err
	}

	log.Info().
		Int64("num_counters", cfg.NumCounters).
		Int64("max_cost", cfg.MaxCost).
		Int64("buffer_items", bufferItems).
		Msg("memory store created")

	return &memoryStore{cache: c, log: log}, nil
}

func (m *memoryStore) Mode() Mode {
	return ModeMemory
}

// Get returns a copy of the stored value.
func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return nil, ErrClosed
	}

	value, found := m.cache.Get(key)
	if !found {
		m.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, ErrNotFound
	}

	m.log.Debug().Str("key", key).Bool("hit", true).Int("size", len(value)).Msg("cache get")

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// SetWithTTL stores a copy of value and waits for the write buffer to
// drain so the value is visible to the next Get.
func (m *memoryStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return ErrClosed
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	if !m.cache.SetWithTTL(key, valueCopy, int64(len(value)), ttl) {
		m.log.Debug().Str("key", key).Msg("cache set dropped by admission policy")
		return nil
	}
	m.cache.Wait()

	m.log.Debug().Str("key", key).Int("size", len(value)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

// Delete removes a key.
func (m *memoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return ErrClosed
	}

	m.cache.Del(key)
	m.log.Debug().Str("key", key).Msg("cache delete")
	return nil
}

// Clear drops every entry.
func (m *memoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return ErrClosed
	}

	m.cache.Clear()
	m.log.Debug().Msg("cache clear")
	return nil
}

// Stats reports Ristretto's own counters.
func (m *memoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return Stats{}, ErrClosed
	}

	metrics := m.cache.Metrics
	return Stats{
		Hits:      metrics.Hits(),
		Misses:    metrics.Misses(),
		KeyCount:  metrics.KeysAdded() - metrics.KeysEvicted(),
		BytesUsed: metrics.CostAdded() - metrics.CostEvicted(),
		Evictions: metrics.KeysEvicted(),
	}, nil
}

// Close waits for pending writes and releases the cache. Close is idempotent.
func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.cache.Wait()
	m.cache.Close()

	m.log.Info().Msg("memory store closed")
	return nil
}
