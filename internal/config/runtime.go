package config

import "sync/atomic"

// Runtime holds the active configuration for hot-reload. Reads are lock-free;
// a reload swaps the whole *Config so readers never observe a partial update.
//
// Only the TTL policy is applied to a running process on reload. Backend
// connection settings are read once at startup.
//
//	runtime := config.NewRuntime(initialConfig)
//	watcher.OnReload(func(cfg *config.Config) error {
//		runtime.Store(cfg)
//		facade.SetTTLPolicy(cfg.Cache.TTL)
//		return nil
//	})
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a Runtime holding initial.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store atomically replaces the configuration. Holders of the previous
// pointer keep a consistent, if stale, view.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

// RuntimeConfig interface implementation.
var _ RuntimeConfig = (*Runtime)(nil)
