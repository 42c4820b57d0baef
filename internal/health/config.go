// Package health tracks reachability of the shared cache tier.
//
// The package implements:
//   - The backend selection state machine as a circuit breaker
//     (CLOSED = SHARED_ACTIVE, OPEN = DEGRADED, HALF-OPEN = PROBING)
//   - A prober that re-checks the shared tier while the breaker is half-open
//
// The breaker stops foreground requests from waiting on an unreachable
// backend; the prober lets it heal without any request paying for the check.
package health

import "time"

// Default configuration values.
const (
	DefaultFailureThreshold = 1     // consecutive failures before DEGRADED
	DefaultOpenDurationMS   = 30000 // cooldown before PROBING
	DefaultHalfOpenProbes   = 1     // successful probes needed to close
	DefaultHealthCheckMS    = 5000  // prober tick
	DefaultProbeTimeoutMS   = 1000  // per-probe deadline
	DefaultProbeEveryOps    = 50    // local-only operations between op-triggered probes
	DefaultHealthEnabled    = true  // interval prober enabled by default
)

// CircuitBreakerConfig defines circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive shared tier failures
	// before the breaker opens. Default: 1
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`

	// OpenDurationMS is the cooldown in milliseconds before an open breaker
	// turns half-open. Default: 30000 (30 seconds)
	OpenDurationMS int `yaml:"open_duration_ms" toml:"open_duration_ms"`

	// HalfOpenProbes is the number of consecutive successful probes needed
	// to close the breaker. Any failed probe reopens it. Default: 1
	HalfOpenProbes int `yaml:"half_open_probes" toml:"half_open_probes"`
}

// GetFailureThreshold returns the configured failure threshold or default 1.
func (c *CircuitBreakerConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// GetOpenDuration returns the open duration as time.Duration.
// Returns default 30s if not set or negative.
func (c *CircuitBreakerConfig) GetOpenDuration() time.Duration {
	if c.OpenDurationMS <= 0 {
		return time.Duration(DefaultOpenDurationMS) * time.Millisecond
	}
	return time.Duration(c.OpenDurationMS) * time.Millisecond
}

// GetHalfOpenProbes returns the configured half-open probes or default 1.
func (c *CircuitBreakerConfig) GetHalfOpenProbes() int {
	if c.HalfOpenProbes <= 0 {
		return DefaultHalfOpenProbes
	}
	return c.HalfOpenProbes
}

// CheckConfig defines prober behavior.
type CheckConfig struct {
	Enabled       *bool `yaml:"enabled" toml:"enabled"`
	IntervalMS    int   `yaml:"interval_ms" toml:"interval_ms"`
	TimeoutMS     int   `yaml:"timeout_ms" toml:"timeout_ms"`
	ProbeEveryOps int   `yaml:"probe_every_ops" toml:"probe_every_ops"`
}

// GetInterval returns the prober tick as time.Duration.
// Returns default 5s if not set or negative.
func (c *CheckConfig) GetInterval() time.Duration {
	if c.IntervalMS <= 0 {
		return time.Duration(DefaultHealthCheckMS) * time.Millisecond
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// GetTimeout returns the deadline applied to each probe.
func (c *CheckConfig) GetTimeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return time.Duration(DefaultProbeTimeoutMS) * time.Millisecond
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetProbeEveryOps returns how many local-only operations trigger a probe.
func (c *CheckConfig) GetProbeEveryOps() int {
	if c.ProbeEveryOps <= 0 {
		return DefaultProbeEveryOps
	}
	return c.ProbeEveryOps
}

// IsEnabled returns whether the interval prober runs.
// Returns true by default if not explicitly set.
func (c *CheckConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return DefaultHealthEnabled
	}
	return *c.Enabled
}

// Config combines circuit breaker and prober configuration.
type Config struct {
	HealthCheck    CheckConfig          `yaml:"health_check" toml:"health_check"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`
}
