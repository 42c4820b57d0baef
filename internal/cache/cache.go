// Package cache provides the bizcache two-tier performance cache.
//
// Reads and writes go through a Facade that prefers a shared store
// (Redis, Olric, or an in-process Ristretto cache) and transparently falls
// back to a bounded per-process LocalStore while the shared store is
// unreachable. Backend failures never reach the caller: at worst every call
// becomes a miss and the wrapped computation runs.
//
// Basic usage:
//
//	store, err := cache.NewStore(ctx, &cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	f, err := cache.NewFacade(store, &cfg, hcfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	f.Start()
//	defer f.Close()
//
//	key, err := f.Key("plants", []any{42}, map[string]any{"page": 1})
//	if err != nil {
//		return err // caller misuse, not a backend problem
//	}
//
//	f.Set(ctx, key, payload, 10*time.Minute)
//	data, ok := f.Get(ctx, key)
//
// Cache-aside wrapping of business reads is provided by Wrap and Memoize;
// mutation paths evict through an Invalidator.
package cache

import (
	"context"
	"errors"
	"time"
)

// Store is a shared tier backend. Keys passed to a Store are logical keys;
// stores apply their own key prefix so that Clear never touches keys owned
// by other users of the same server.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a value.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores a value that expires after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources. Close is idempotent.
	Close() error
}

// Stats carries counters a shared store reports about itself.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeyCount  uint64 `json:"key_count"`
	BytesUsed uint64 `json:"bytes_used"`
	Evictions uint64 `json:"evictions"`
}

// StatsProvider is an optional interface for stores that expose counters.
// The Facade surfaces them as-is in the snapshot.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}

// Pinger is an optional interface for stores that support health checks.
// Stores without it are probed with a Get of a reserved key.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PatternDeleter is an optional interface for stores that can scan their
// keyspace natively. It returns the logical keys it removed.
type PatternDeleter interface {
	DeleteMatching(ctx context.Context, p Pattern) ([]string, error)
}

// Clearer is an optional interface for stores that own a dedicated keyspace
// and can drop it wholesale.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Named is implemented by every built-in store and reports its mode.
type Named interface {
	Mode() Mode
}

// pingKey is read by stores that have no native ping.
const pingKey = "__bizcache_ping__"

// ping checks store reachability, using Pinger when available.
func ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.Get(ctx, pingKey)
	if err == nil || errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
