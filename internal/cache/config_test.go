package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr string
	}{
		{name: "default redis", mutate: func(*Config) {}},
		{name: "redis url only", mutate: func(c *Config) { c.Redis.Addr = ""; c.Redis.URL = "redis://localhost:6379/0" }},
		{name: "redis no address", mutate: func(c *Config) { c.Redis.Addr = "" }, wantErr: "redis.addr or redis.url"},
		{name: "redis negative db", mutate: func(c *Config) { c.Redis.DB = -1 }, wantErr: "redis.db"},
		{name: "olric client needs addresses", mutate: func(c *Config) { c.Mode = ModeOlric }, wantErr: "olric.addresses"},
		{name: "olric embedded needs bind", mutate: func(c *Config) {
			c.Mode = ModeOlric
			c.Olric.Embedded = true
		}, wantErr: "olric.bind_addr"},
		{name: "olric embedded", mutate: func(c *Config) {
			c.Mode = ModeOlric
			c.Olric.Embedded = true
			c.Olric.BindAddr = "127.0.0.1:3320"
		}},
		{name: "memory", mutate: func(c *Config) { c.Mode = ModeMemory }},
		{name: "memory zero cost", mutate: func(c *Config) {
			c.Mode = ModeMemory
			c.Memory.MaxCost = 0
		}, wantErr: "memory.max_cost"},
		{name: "memory zero counters", mutate: func(c *Config) {
			c.Mode = ModeMemory
			c.Memory.NumCounters = 0
		}, wantErr: "memory.num_counters"},
		{name: "disabled", mutate: func(c *Config) { c.Mode = ModeDisabled }},
		{name: "missing mode", mutate: func(c *Config) { c.Mode = "" }, wantErr: "mode is required"},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "memcached" }, wantErr: "unknown mode"},
		{name: "glob prefix", mutate: func(c *Config) { c.KeyPrefix = "app*" }, wantErr: "glob"},
		{name: "negative local size", mutate: func(c *Config) { c.Local.MaxEntries = -1 }, wantErr: "local.max_entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigGetters(t *testing.T) {
	t.Parallel()

	var zero Config
	assert.Equal(t, DefaultKeyPrefix, zero.GetKeyPrefix())
	assert.Equal(t, DefaultOpTimeoutMS*time.Millisecond, zero.GetOpTimeout())
	assert.Equal(t, DefaultMaxKeyLength, zero.GetMaxKeyLength())
	assert.Equal(t, DefaultLocalMaxEntries, zero.GetLocalMaxEntries())
	assert.Equal(t, DefaultIndexSize, zero.GetIndexSize())

	cfg := Config{KeyPrefix: "crm", OpTimeoutMS: 75, MaxKeyLength: 64, Local: LocalConfig{MaxEntries: 5}}
	assert.Equal(t, "crm", cfg.GetKeyPrefix())
	assert.Equal(t, 75*time.Millisecond, cfg.GetOpTimeout())
	assert.Equal(t, 64, cfg.GetMaxKeyLength())
	assert.Equal(t, 5, cfg.GetLocalMaxEntries())
}

func TestTTLConfigDefaults(t *testing.T) {
	t.Parallel()

	var ttl TTLConfig
	assert.Equal(t, DefaultTTLSeconds*time.Second, ttl.Default())
	assert.Equal(t, DefaultDashboardTTLSec*time.Second, ttl.Dashboard())
	assert.Equal(t, DefaultEntityListTTLSec*time.Second, ttl.EntityList())
	assert.Equal(t, DefaultAPIResponseTTLSec*time.Second, ttl.APIResponse())

	ttl = TTLConfig{DashboardSeconds: 30}
	assert.Equal(t, 30*time.Second, ttl.Dashboard())
}

func TestConfigYAML(t *testing.T) {
	t.Parallel()

	data := []byte(`
mode: memory
key_prefix: crm
op_timeout_ms: 100
local:
  max_entries: 500
ttl:
  dashboard_seconds: 60
memory:
  num_counters: 1000
  max_cost: 1048576
`)
	var cfg Config
	assert.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, ModeMemory, cfg.Mode)
	assert.Equal(t, "crm", cfg.KeyPrefix)
	assert.Equal(t, 500, cfg.Local.MaxEntries)
	assert.Equal(t, 60*time.Second, cfg.TTL.Dashboard())
	assert.NoError(t, cfg.Validate())
}
