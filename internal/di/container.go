// Package di provides dependency injection using samber/do v2.
// It creates and configures the DI container with all service providers.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
)

// ConfigPathKey is the named key for the config path string.
// An empty path runs on defaults plus BIZCACHE_* overrides.
const ConfigPathKey = "config.path"

// DebugKey is the named key for the --debug override.
const DebugKey = "logging.debug"

// Option adjusts container construction.
type Option func(*options)

type options struct {
	debug bool
}

// WithDebug forces debug logging regardless of the configured level.
func WithDebug(enabled bool) Option {
	return func(o *options) {
		o.debug = enabled
	}
}

// Container wraps the do.Injector with bizcache services.
type Container struct {
	injector *do.RootScope
}

// NewContainer creates the DI container and eagerly resolves the
// configuration so that a bad file fails here rather than on first use.
func NewContainer(configPath string, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	injector := do.New()

	do.ProvideNamedValue(injector, ConfigPathKey, configPath)
	do.ProvideNamedValue(injector, DebugKey, o.debug)
	RegisterSingletons(injector)

	c := &Container{injector: injector}
	if _, err := do.Invoke[*ConfigService](injector); err != nil {
		return nil, err
	}
	return c, nil
}

// Injector returns the underlying do.Injector for service resolution.
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Invoke resolves a service from the container.
// Returns an error if the service is not registered or fails to initialize.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.injector)
}

// MustInvoke resolves a service from the container or panics.
// Use this only during application startup where errors are fatal.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.injector)
}

// InvokeNamed resolves a named service from the container.
func InvokeNamed[T any](c *Container, name string) (T, error) {
	return do.InvokeNamed[T](c.injector, name)
}

// Shutdown shuts down all services in reverse order of initialization.
// Services implementing do.Shutdowner have their Shutdown method called.
func (c *Container) Shutdown() error {
	report := c.injector.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown failed: %s", report.Error())
	}
	return nil
}

// ShutdownWithContext shuts down with context for timeout control.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	done := make(chan *do.ShutdownReport, 1)
	go func() {
		done <- c.injector.ShutdownWithContext(ctx)
	}()

	select {
	case report := <-done:
		if report != nil && !report.Succeed {
			return fmt.Errorf("shutdown failed: %s", report.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// HealthCheck resolves the services the HTTP surface depends on and pings
// the shared tier once. It never changes backend state.
func (c *Container) HealthCheck(ctx context.Context) error {
	if _, err := do.Invoke[*ConfigService](c.injector); err != nil {
		return fmt.Errorf("config service unhealthy: %w", err)
	}
	cacheSvc, err := do.Invoke[*CacheService](c.injector)
	if err != nil {
		return fmt.Errorf("cache service unhealthy: %w", err)
	}
	if err := cacheSvc.Facade.Ping(ctx); err != nil {
		return fmt.Errorf("shared backend unreachable: %w", err)
	}
	return nil
}
