package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects the shared tier backend.
type Mode string

const (
	// ModeRedis uses a Redis server as the shared tier (default).
	// Best for multi-process deployments that already run Redis.
	ModeRedis Mode = "redis"

	// ModeOlric uses the Olric distributed map, embedded or as a cluster client.
	ModeOlric Mode = "olric"

	// ModeMemory uses an in-process Ristretto cache as the shared tier.
	// Suitable for single-process deployments and development.
	ModeMemory Mode = "memory"

	// ModeDisabled stores nothing. Every read misses and decorators always compute.
	ModeDisabled Mode = "disabled"
)

// Default configuration values.
const (
	DefaultKeyPrefix          = "bizcache"
	DefaultOpTimeoutMS        = 150
	DefaultMaxKeyLength       = 200
	DefaultLocalMaxEntries    = 10_000
	DefaultIndexSize          = 100_000
	DefaultTTLSeconds         = 300
	DefaultDashboardTTLSec    = 120
	DefaultEntityListTTLSec   = 900
	DefaultAPIResponseTTLSec  = 300
	DefaultRedisAddr          = "localhost:6379"
	DefaultRedisPoolSize      = 10
	DefaultOlricDMapName      = "bizcache"
	defaultOlricStartupWaitMS = 10_000
)

// Config defines cache configuration.
// Use Validate() to check for configuration errors before creating a store.
type Config struct {
	Mode         Mode         `yaml:"mode" toml:"mode"`
	KeyPrefix    string       `yaml:"key_prefix" toml:"key_prefix"`
	Redis        RedisConfig  `yaml:"redis" toml:"redis"`
	Olric        OlricConfig  `yaml:"olric" toml:"olric"`
	Memory       MemoryConfig `yaml:"memory" toml:"memory"`
	Local        LocalConfig  `yaml:"local" toml:"local"`
	TTL          TTLConfig    `yaml:"ttl" toml:"ttl"`
	OpTimeoutMS  int          `yaml:"op_timeout_ms" toml:"op_timeout_ms"`
	MaxKeyLength int          `yaml:"max_key_length" toml:"max_key_length"`
}

// RedisConfig configures the Redis shared store.
// URL takes precedence over Addr/Password/DB when set.
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	URL      string `yaml:"url" toml:"url"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	PoolSize int    `yaml:"pool_size" toml:"pool_size"`
}

// OlricConfig configures the Olric distributed cache.
type OlricConfig struct {
	DMapName    string   `yaml:"dmap_name" toml:"dmap_name"`
	BindAddr    string   `yaml:"bind_addr" toml:"bind_addr"`
	Environment string   `yaml:"environment" toml:"environment"`
	Addresses   []string `yaml:"addresses" toml:"addresses"`
	Peers       []string `yaml:"peers" toml:"peers"`
	Embedded    bool     `yaml:"embedded" toml:"embedded"`
}

// MemoryConfig configures the in-process Ristretto shared store.
type MemoryConfig struct {
	// NumCounters is the number of 4-bit access counters.
	// Recommended: 10x expected max items.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost is the maximum total size in bytes of cached values.
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	// BufferItems is the number of keys per Get buffer. Default 64.
	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`

	// IndexSize bounds the namespace key index kept for pattern invalidation.
	IndexSize int `yaml:"index_size" toml:"index_size"`
}

// LocalConfig configures the per-process fallback tier.
type LocalConfig struct {
	MaxEntries int `yaml:"max_entries" toml:"max_entries"`
}

// TTLConfig holds default TTLs per decorator variant, in seconds.
type TTLConfig struct {
	DefaultSeconds     int `yaml:"default_seconds" toml:"default_seconds"`
	DashboardSeconds   int `yaml:"dashboard_seconds" toml:"dashboard_seconds"`
	EntityListSeconds  int `yaml:"entity_list_seconds" toml:"entity_list_seconds"`
	APIResponseSeconds int `yaml:"api_response_seconds" toml:"api_response_seconds"`
}

func secondsOr(v, def int) time.Duration {
	if v <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(v) * time.Second
}

// Default returns the TTL used when a caller passes a non-positive TTL.
func (t *TTLConfig) Default() time.Duration {
	return secondsOr(t.DefaultSeconds, DefaultTTLSeconds)
}

// Dashboard returns the TTL for dashboard aggregates.
func (t *TTLConfig) Dashboard() time.Duration {
	return secondsOr(t.DashboardSeconds, DefaultDashboardTTLSec)
}

// EntityList returns the TTL for entity listings.
func (t *TTLConfig) EntityList() time.Duration {
	return secondsOr(t.EntityListSeconds, DefaultEntityListTTLSec)
}

// APIResponse returns the TTL for cached HTTP responses.
func (t *TTLConfig) APIResponse() time.Duration {
	return secondsOr(t.APIResponseSeconds, DefaultAPIResponseTTLSec)
}

// GetKeyPrefix returns the shared keyspace prefix or the default.
func (c *Config) GetKeyPrefix() string {
	if c.KeyPrefix == "" {
		return DefaultKeyPrefix
	}
	return c.KeyPrefix
}

// GetOpTimeout returns the per-operation shared tier timeout.
func (c *Config) GetOpTimeout() time.Duration {
	if c.OpTimeoutMS <= 0 {
		return DefaultOpTimeoutMS * time.Millisecond
	}
	return time.Duration(c.OpTimeoutMS) * time.Millisecond
}

// GetMaxKeyLength returns the length above which argument segments are hashed.
func (c *Config) GetMaxKeyLength() int {
	if c.MaxKeyLength <= 0 {
		return DefaultMaxKeyLength
	}
	return c.MaxKeyLength
}

// GetLocalMaxEntries returns the fallback tier capacity.
func (c *Config) GetLocalMaxEntries() int {
	if c.Local.MaxEntries <= 0 {
		return DefaultLocalMaxEntries
	}
	return c.Local.MaxEntries
}

// GetIndexSize returns the key index capacity for stores without native scan.
func (c *Config) GetIndexSize() int {
	if c.Memory.IndexSize <= 0 {
		return DefaultIndexSize
	}
	return c.Memory.IndexSize
}

// Validate checks the configuration for errors.
// Returns nil if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeRedis:
		if c.Redis.Addr == "" && c.Redis.URL == "" {
			return errors.New("cache: redis.addr or redis.url is required")
		}
		if c.Redis.DB < 0 {
			return errors.New("cache: redis.db must not be negative")
		}
	case ModeOlric:
		if !c.Olric.Embedded && len(c.Olric.Addresses) == 0 {
			return errors.New("cache: olric.addresses required when not embedded")
		}
		if c.Olric.Embedded && c.Olric.BindAddr == "" {
			return errors.New("cache: olric.bind_addr required when embedded")
		}
	case ModeMemory:
		if c.Memory.MaxCost <= 0 {
			return errors.New("cache: memory.max_cost must be positive")
		}
		if c.Memory.NumCounters <= 0 {
			return errors.New("cache: memory.num_counters must be positive")
		}
	case ModeDisabled:
		// No validation needed for disabled mode
	case "":
		return errors.New("cache: mode is required")
	default:
		return fmt.Errorf("cache: unknown mode %q", c.Mode)
	}
	if strings.ContainsAny(c.KeyPrefix, "*?[]") {
		return fmt.Errorf("cache: key_prefix %q must not contain glob characters", c.KeyPrefix)
	}
	if c.Local.MaxEntries < 0 {
		return errors.New("cache: local.max_entries must not be negative")
	}
	return nil
}

// DefaultConfig returns a Redis-backed configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeRedis,
		KeyPrefix:    DefaultKeyPrefix,
		OpTimeoutMS:  DefaultOpTimeoutMS,
		MaxKeyLength: DefaultMaxKeyLength,
		Redis:        RedisConfig{Addr: DefaultRedisAddr, PoolSize: DefaultRedisPoolSize},
		Olric:        OlricConfig{DMapName: DefaultOlricDMapName},
		Memory:       DefaultMemoryConfig(),
		Local:        LocalConfig{MaxEntries: DefaultLocalMaxEntries},
		TTL: TTLConfig{
			DefaultSeconds:     DefaultTTLSeconds,
			DashboardSeconds:   DefaultDashboardTTLSec,
			EntityListSeconds:  DefaultEntityListTTLSec,
			APIResponseSeconds: DefaultAPIResponseTTLSec,
		},
	}
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults.
// NumCounters: 1,000,000 (for ~100K items).
// MaxCost: 100 MB.
// BufferItems: 64.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		NumCounters: 1_000_000,
		MaxCost:     100 << 20, // 100 MB.
		BufferItems: 64,
		IndexSize:   DefaultIndexSize,
	}
}
