package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate func(*Config)
		want   Mode
	}{
		{mutate: func(*Config) {}, want: ModeRedis},
		{mutate: func(c *Config) { c.Mode = ModeMemory }, want: ModeMemory},
		{mutate: func(c *Config) { c.Mode = ModeDisabled }, want: ModeDisabled},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)

			store, err := NewStore(context.Background(), &cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			assert.Equal(t, tt.want, ModeOf(store))
		})
	}
}

func TestNewStoreRedisIsLazy(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Redis.Addr = "127.0.0.1:1"

	store, err := NewStore(context.Background(), &cfg)
	require.NoError(t, err, "an unreachable server is reported by operations, not construction")
	t.Cleanup(func() { _ = store.Close() })

	f := newTestFacadeWith(t, store, cfg, testHealthConfig())
	f.Set(context.Background(), "k", []byte("v"), 0)
	got, ok := f.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestNewStoreInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mode = "memcached"
	_, err := NewStore(context.Background(), &cfg)
	assert.ErrorContains(t, err, "unknown mode")

	cfg = DefaultConfig()
	cfg.Mode = ModeMemory
	cfg.Memory.MaxCost = 0
	_, err = NewStore(context.Background(), &cfg)
	assert.Error(t, err)
}

func TestModeOfCustomStore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Mode("custom"), ModeOf(newFaultyStore()))
}
