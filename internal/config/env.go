package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/omarluq/bizcache/internal/cache"
)

// Environment variables that override file configuration.
const (
	EnvMode            = "BIZCACHE_MODE"
	EnvRedisAddr       = "BIZCACHE_REDIS_ADDR"
	EnvRedisURL        = "BIZCACHE_REDIS_URL"
	EnvOlricAddrs      = "BIZCACHE_OLRIC_ADDRS"
	EnvLocalMaxEntries = "BIZCACHE_LOCAL_MAX_ENTRIES"
	EnvTTLDefault      = "BIZCACHE_TTL_DEFAULT"
	EnvTTLDashboard    = "BIZCACHE_TTL_DASHBOARD"
	EnvTTLEntityList   = "BIZCACHE_TTL_ENTITY_LIST"
	EnvTTLAPIResponse  = "BIZCACHE_TTL_API_RESPONSE"
	EnvProbeCooldown   = "BIZCACHE_PROBE_COOLDOWN"
	EnvOpTimeout       = "BIZCACHE_OP_TIMEOUT"
	EnvListen          = "BIZCACHE_LISTEN"
	EnvUpstreamURL     = "BIZCACHE_UPSTREAM_URL"
	EnvAdminAPIKey     = "BIZCACHE_ADMIN_API_KEY"
	EnvLogLevel        = "BIZCACHE_LOG_LEVEL"
)

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with any BIZCACHE_* variables lookup reports.
// Durations accept Go syntax extended with days and weeks ("1d", "2w");
// a bare number is read as seconds. All malformed values are reported
// together in a *ValidationError.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	errs := &ValidationError{}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvMode); ok {
		cfg.Cache.Mode = cache.Mode(strings.ToLower(v))
	}
	if v, ok := get(EnvRedisAddr); ok {
		cfg.Cache.Redis.Addr = v
	}
	if v, ok := get(EnvRedisURL); ok {
		cfg.Cache.Redis.URL = v
	}
	if v, ok := get(EnvOlricAddrs); ok {
		cfg.Cache.Olric.Addresses = lo.Compact(lo.Map(strings.Split(v, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}
	if v, ok := get(EnvLocalMaxEntries); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs.Addf("%s must be a non-negative integer (got %q)", EnvLocalMaxEntries, v)
		} else {
			cfg.Cache.Local.MaxEntries = n
		}
	}

	ttls := []lo.Tuple2[string, *int]{
		lo.T2(EnvTTLDefault, &cfg.Cache.TTL.DefaultSeconds),
		lo.T2(EnvTTLDashboard, &cfg.Cache.TTL.DashboardSeconds),
		lo.T2(EnvTTLEntityList, &cfg.Cache.TTL.EntityListSeconds),
		lo.T2(EnvTTLAPIResponse, &cfg.Cache.TTL.APIResponseSeconds),
	}
	for _, ttl := range ttls {
		if v, ok := get(ttl.A); ok {
			setDuration(errs, ttl.A, v, time.Second, ttl.B)
		}
	}
	if v, ok := get(EnvProbeCooldown); ok {
		setDuration(errs, EnvProbeCooldown, v, time.Millisecond, &cfg.Health.CircuitBreaker.OpenDurationMS)
	}
	if v, ok := get(EnvOpTimeout); ok {
		setDuration(errs, EnvOpTimeout, v, time.Millisecond, &cfg.Cache.OpTimeoutMS)
	}

	if v, ok := get(EnvListen); ok {
		cfg.Server.Listen = v
	}
	if v, ok := get(EnvUpstreamURL); ok {
		cfg.Server.UpstreamURL = v
	}
	if v, ok := get(EnvAdminAPIKey); ok {
		cfg.Server.AdminAPIKey = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}

	return errs.ToError()
}

// setDuration parses v and stores it in dst as a count of unit.
func setDuration(errs *ValidationError, key, v string, unit time.Duration, dst *int) {
	d, err := ParseDuration(v)
	if err != nil || d <= 0 {
		errs.Addf("%s is not a positive duration (got %q, use e.g. 90s, 5m or 1d)", key, v)
		return
	}
	*dst = int(d / unit)
}

// ParseDuration parses "90s", "2m", "1d" and bare seconds ("300").
func ParseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return str2duration.ParseDuration(s)
}
