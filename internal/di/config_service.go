package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/bizcache/internal/config"
)

// ConfigService wraps the loaded configuration with hot-reload support.
// Reads go through an atomic runtime holder, so in-flight requests keep
// the config they started with while new requests see the reloaded one.
type ConfigService struct {
	runtime *config.Runtime
	watcher *config.Watcher
	path    string
}

// Get returns the current configuration (lock-free read).
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// Runtime exposes the holder for components taking config.RuntimeConfig.
func (c *ConfigService) Runtime() *config.Runtime {
	return c.runtime
}

// Path returns the config file path, empty when running on defaults.
func (c *ConfigService) Path() string {
	return c.path
}

// OnReload registers cb to run after each validated reload. It is a no-op
// when hot-reload is unavailable.
func (c *ConfigService) OnReload(cb config.ReloadCallback) {
	if c.watcher != nil {
		c.watcher.OnReload(cb)
	}
}

// StartWatching begins watching the config file for changes.
// This should be called after the DI container is fully initialized.
// The context controls the watcher lifecycle - cancel to stop watching.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads and validates the configuration and creates a watcher.
// The watcher is created but not started; call StartWatching after
// container init.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.LoadOrDefault("")
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	debug := do.MustInvokeNamed[bool](i, DebugKey)
	if debug {
		cfg.Logging.EnableDebug()
	}

	svc := &ConfigService{
		runtime: config.NewRuntime(cfg),
		path:    path,
	}
	if path == "" {
		return svc, nil
	}

	// Hot-reload is optional: a watcher failure only disables it.
	watcher, err := config.NewWatcher(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
		return svc, nil
	}
	svc.watcher = watcher
	watcher.OnReload(func(newCfg *config.Config) error {
		if debug {
			newCfg.Logging.EnableDebug()
		}
		svc.runtime.Store(newCfg)
		log.Info().Str("path", path).Msg("config hot-reloaded successfully")
		return nil
	})

	return svc, nil
}
