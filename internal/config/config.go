// Package config provides configuration loading and parsing for bizcache.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/bizcache/internal/cache"
	"github.com/omarluq/bizcache/internal/health"
)

// RuntimeConfig defines the interface for accessing runtime configuration that supports hot-reload.
// Components that need to observe config changes should use this interface instead of
// holding a direct *Config pointer, which would become stale after hot-reload.
//
// Usage pattern:
//
//	func (h *Handler) ttl() cache.TTLConfig {
//		return h.runtime.Get().Cache.TTL
//	}
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Default server values.
const (
	DefaultListen    = "127.0.0.1:8790"
	DefaultTimeoutMS = 10_000
)

// Config represents the complete bizcache configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Health  health.Config `yaml:"health" toml:"health"`
	Cache   cache.Config  `yaml:"cache" toml:"cache"`
}

// Default returns a configuration that works against a local Redis with
// every optional setting at its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:    DefaultListen,
			TimeoutMS: DefaultTimeoutMS,
		},
		Logging: LoggingConfig{
			Level:  LevelInfo,
			Format: "json",
			Output: "stdout",
		},
		Cache: cache.DefaultConfig(),
		Health: health.Config{
			CircuitBreaker: health.CircuitBreakerConfig{
				FailureThreshold: health.DefaultFailureThreshold,
				OpenDurationMS:   health.DefaultOpenDurationMS,
				HalfOpenProbes:   health.DefaultHalfOpenProbes,
			},
			HealthCheck: health.CheckConfig{
				IntervalMS:    health.DefaultHealthCheckMS,
				TimeoutMS:     health.DefaultProbeTimeoutMS,
				ProbeEveryOps: health.DefaultProbeEveryOps,
			},
		},
	}
}

// ServerConfig defines the operator HTTP surface.
type ServerConfig struct {
	ResponseCache ResponseCacheConfig `yaml:"response_cache" toml:"response_cache"`
	Listen        string              `yaml:"listen" toml:"listen"`
	// UpstreamURL, when set, mounts a caching reverse proxy for the
	// upstream API under /api/.
	UpstreamURL string `yaml:"upstream_url" toml:"upstream_url"`
	// AdminAPIKey protects the clear and invalidate routes via X-Admin-Key.
	// Empty disables admin authentication.
	AdminAPIKey string `yaml:"admin_api_key" toml:"admin_api_key"`
	// AdminRateLimit caps admin requests per minute. 0 means unlimited.
	AdminRateLimit int  `yaml:"admin_rate_limit" toml:"admin_rate_limit"`
	TimeoutMS      int  `yaml:"timeout_ms" toml:"timeout_ms"`
	EnableHTTP2    bool `yaml:"enable_http2" toml:"enable_http2"` // Enable HTTP/2 cleartext (h2c) support
}

// ResponseCacheConfig controls caching of successful GET responses served
// through the upstream gateway.
type ResponseCacheConfig struct {
	Namespace string `yaml:"namespace" toml:"namespace"`
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
}

// GetNamespace returns the response cache namespace, "responses" by default.
func (r *ResponseCacheConfig) GetNamespace() string {
	if r.Namespace == "" {
		return "responses"
	}
	return r.Namespace
}

// GetTimeoutOption returns the request timeout as an Option.
// Returns None if TimeoutMS is zero (no timeout).
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// GetAdminKeyOption returns the admin API key as an Option.
// Returns None when admin authentication is disabled.
func (s *ServerConfig) GetAdminKeyOption() mo.Option[string] {
	if s.AdminAPIKey == "" {
		return mo.None[string]()
	}
	return mo.Some(s.AdminAPIKey)
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // enable colored console output
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// EnableDebug switches logging to debug level.
// Used by the --debug CLI flag shortcut.
func (l *LoggingConfig) EnableDebug() {
	l.Level = LevelDebug
}
