package cache

import (
	"context"
	"fmt"
	"time"
)

// NewStore creates the shared tier store selected by cfg.Mode.
// It returns an error if the configuration is invalid or the backend
// cannot be constructed. A Redis server that is merely unreachable is not
// an error here; the Facade degrades on the first failed operation.
//
// Example:
//
//	cfg := cache.DefaultConfig()
//	cfg.Redis.Addr = "redis:6379"
//	store, err := cache.NewStore(ctx, &cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
func NewStore(ctx context.Context, cfg *Config) (Store, error) {
	log := partLogger("factory")
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		log.Debug().Err(err).Str("mode", string(cfg.Mode)).Msg("cache factory: validation failed")
		return nil, err
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Str("key_prefix", cfg.GetKeyPrefix()).
		Msg("cache factory: initializing backend")

	var (
		store Store
		err   error
	)

	switch cfg.Mode {
	case ModeRedis:
		store, err = newRedisStore(&cfg.Redis, cfg.GetKeyPrefix())
	case ModeOlric:
		store, err = newOlricStore(ctx, &cfg.Olric, cfg.GetKeyPrefix())
	case ModeMemory:
		store, err = newMemoryStore(cfg.Memory)
	case ModeDisabled:
		store = newNoopStore()
	default:
		return nil, fmt.Errorf("cache: unknown mode %q", cfg.Mode)
	}

	if err != nil {
		log.Error().Err(err).Str("mode", string(cfg.Mode)).Msg("cache factory: backend initialization failed")
		return nil, err
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Dur("init_time", time.Since(start)).
		Msg("cache factory: backend initialized")

	return store, nil
}

// ModeOf reports the mode of a store, or "custom" for stores outside
// this package.
func ModeOf(s Store) Mode {
	if n, ok := s.(Named); ok {
		return n.Mode()
	}
	return "custom"
}
