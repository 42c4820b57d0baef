package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/bizcache/internal/cache"
	"github.com/omarluq/bizcache/internal/config"
)

// CacheService owns the Facade and its invalidation hooks.
type CacheService struct {
	Facade      *cache.Facade
	Invalidator *cache.Invalidator
}

// NewCache connects the shared store, builds the Facade over it and starts
// the background prober. TTL policy follows config reloads.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	cfg := cfgSvc.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := cache.NewStore(ctx, &cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache store: %w", err)
	}

	facade, err := cache.NewFacade(store, &cfg.Cache, cfg.Health)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create cache facade: %w", err), store.Close())
	}
	facade.Start()

	cfgSvc.OnReload(func(newCfg *config.Config) error {
		facade.SetTTLPolicy(newCfg.Cache.TTL)
		loggerSvc.Logger.Info().
			Int("default_seconds", newCfg.Cache.TTL.DefaultSeconds).
			Int("dashboard_seconds", newCfg.Cache.TTL.DashboardSeconds).
			Int("entity_list_seconds", newCfg.Cache.TTL.EntityListSeconds).
			Int("api_response_seconds", newCfg.Cache.TTL.APIResponseSeconds).
			Msg("ttl policy reloaded")
		return nil
	})

	return &CacheService{
		Facade:      facade,
		Invalidator: cache.NewInvalidator(facade),
	}, nil
}

// Shutdown implements do.Shutdowner for graceful cache cleanup.
func (c *CacheService) Shutdown() error {
	if c.Facade != nil {
		return c.Facade.Close()
	}
	return nil
}
