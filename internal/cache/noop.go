package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// noopStore stores nothing. It backs ModeDisabled: every read misses and
// every write succeeds without effect.
type noopStore struct {
	log    zerolog.Logger
	closed atomic.Bool
}

// Compile-time interface checks.
var (
	_ Store          = (*noopStore)(nil)
	_ PatternDeleter = (*noopStore)(nil)
	_ Named          = (*noopStore)(nil)
)

func newNoopStore() *noopStore {
	log := partLogger("noop")
	log.Debug().Str("note", "caching is disabled").Msg("noop store created")
	return &noopStore{log: log}
}

func (n *noopStore) Mode() Mode {
	return ModeDisabled
}

// Get always returns ErrNotFound.
func (n *noopStore) Get(_ context.Context, key string) ([]byte, error) {
	if n.closed.Load() {
		return nil, ErrClosed
	}
	n.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
	return nil, ErrNotFound
}

// SetWithTTL does nothing.
func (n *noopStore) SetWithTTL(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	if n.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Delete does nothing.
func (n *noopStore) Delete(_ context.Context, _ string) error {
	if n.closed.Load() {
		return ErrClosed
	}
	return nil
}

// DeleteMatching never finds anything to remove.
func (n *noopStore) DeleteMatching(_ context.Context, _ Pattern) ([]string, error) {
	if n.closed.Load() {
		return nil, ErrClosed
	}
	return nil, nil
}

// Close marks the store as closed. It is idempotent.
func (n *noopStore) Close() error {
	if n.closed.CompareAndSwap(false, true) {
		n.log.Info().Msg("noop store closed")
	}
	return nil
}
