package config

import (
	"net"
	"net/url"
	"strings"
)

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":      true, // Empty defaults to info
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty defaults to json
	"json":    true,
	"console": true,
	"text":    true, // Alias for console
	"pretty":  true,
}

// Validate checks the configuration for errors.
// It validates all required fields, valid values, and cross-field constraints.
// Returns a ValidationError containing all errors found, or nil if valid.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateServer(c, errs)
	validateLogging(c, errs)
	validateCache(c, errs)
	validateHealth(c, errs)

	return errs.ToError()
}

// validateServer validates the server configuration section.
func validateServer(c *Config, errs *ValidationError) {
	if c.Server.Listen == "" {
		errs.Add("server.listen is required")
	} else {
		validateListenAddress(c.Server.Listen, errs)
	}

	if c.Server.TimeoutMS < 0 {
		errs.Add("server.timeout_ms must be >= 0")
	}
	if c.Server.AdminRateLimit < 0 {
		errs.Add("server.admin_rate_limit must be >= 0")
	}

	if ns := c.Server.ResponseCache.Namespace; strings.Contains(ns, "*") {
		errs.Addf("server.response_cache.namespace must not contain '*' (got %q)", ns)
	}

	if raw := c.Server.UpstreamURL; raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Addf("server.upstream_url must be an absolute http(s) URL (got %q)", raw)
		}
	}
}

// validateListenAddress validates a listen address in host:port format.
func validateListenAddress(addr string, errs *ValidationError) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", addr)
		return
	}

	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " \t\n") {
		errs.Add("server.listen host contains invalid characters")
	}

	if port == "" {
		errs.Add("server.listen port is required")
	}
}

// validateLogging validates the logging configuration section.
func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)",
			c.Logging.Level)
	}

	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)",
			c.Logging.Format)
	}
}

// validateCache delegates to cache.Config and checks the knobs it leaves alone.
func validateCache(c *Config, errs *ValidationError) {
	if err := c.Cache.Validate(); err != nil {
		errs.Add(strings.TrimPrefix(err.Error(), "cache: "))
	}

	if c.Cache.OpTimeoutMS < 0 {
		errs.Add("cache.op_timeout_ms must be >= 0")
	}
	if c.Cache.MaxKeyLength < 0 {
		errs.Add("cache.max_key_length must be >= 0")
	}

	ttl := c.Cache.TTL
	for name, v := range map[string]int{
		"default_seconds":      ttl.DefaultSeconds,
		"dashboard_seconds":    ttl.DashboardSeconds,
		"entity_list_seconds":  ttl.EntityListSeconds,
		"api_response_seconds": ttl.APIResponseSeconds,
	} {
		if v < 0 {
			errs.Addf("cache.ttl.%s must be >= 0 (got %d)", name, v)
		}
	}
}

// validateHealth validates breaker and prober settings.
func validateHealth(c *Config, errs *ValidationError) {
	cb := c.Health.CircuitBreaker
	if cb.FailureThreshold < 0 {
		errs.Add("health.circuit_breaker.failure_threshold must be >= 0")
	}
	if cb.OpenDurationMS < 0 {
		errs.Add("health.circuit_breaker.open_duration_ms must be >= 0")
	}
	if cb.HalfOpenProbes < 0 {
		errs.Add("health.circuit_breaker.half_open_probes must be >= 0")
	}

	hc := c.Health.HealthCheck
	if hc.IntervalMS < 0 {
		errs.Add("health.health_check.interval_ms must be >= 0")
	}
	if hc.TimeoutMS < 0 {
		errs.Add("health.health_check.timeout_ms must be >= 0")
	}
	if hc.ProbeEveryOps < 0 {
		errs.Add("health.health_check.probe_every_ops must be >= 0")
	}
}
