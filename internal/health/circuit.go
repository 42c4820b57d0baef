package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State represents the circuit breaker state.
type State = gobreaker.State

// Circuit breaker state constants.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// Backend selection states reported to operators.
const (
	BackendSharedActive = "SHARED_ACTIVE"
	BackendDegraded     = "DEGRADED"
	BackendProbing      = "PROBING"
)

// BackendState maps a breaker state to its backend selection name.
func BackendState(s State) string {
	switch s {
	case StateOpen:
		return BackendDegraded
	case StateHalfOpen:
		return BackendProbing
	default:
		return BackendSharedActive
	}
}

// StateChangeFunc observes breaker transitions. It runs while the breaker
// holds its lock and must not call back into the breaker.
type StateChangeFunc func(from, to State)

// CircuitBreaker wraps sony/gobreaker TwoStepCircuitBreaker for the shared
// cache tier and counts consecutive and total failures.
type CircuitBreaker struct {
	cb          *gobreaker.TwoStepCircuitBreaker[struct{}]
	name        string
	listeners   []StateChangeFunc
	consecutive atomic.Uint64
	failures    atomic.Uint64
	mu          sync.RWMutex
}

// NewCircuitBreaker creates a new CircuitBreaker with the given configuration.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	halfOpenProbes := cfg.GetHalfOpenProbes()
	failureThreshold := cfg.GetFailureThreshold()

	c := &CircuitBreaker{name: name}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(halfOpenProbes), //nolint:gosec // getter returns a positive value
		Timeout:     cfg.GetOpenDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold) //nolint:gosec // getter returns a positive value
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				event := logger.Info()
				if to == gobreaker.StateOpen {
					event = logger.Warn()
				}
				event.
					Str("backend", name).
					Str("from", BackendState(from)).
					Str("to", BackendState(to)).
					Msg("backend state change")
			}
			c.notify(from, to)
		},
		IsSuccessful: isSuccessful,
	}

	c.cb = gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)
	return c
}

func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// OnStateChange registers fn to observe every transition.
func (c *CircuitBreaker) OnStateChange(fn StateChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *CircuitBreaker) notify(from, to State) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, fn := range c.listeners {
		fn(from, to)
	}
}

// Allow checks if a request may reach the backend. The returned done func
// must be called exactly once with the outcome.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	d, err := c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return func(opErr error) {
		if isSuccessful(opErr) {
			c.consecutive.Store(0)
		} else {
			c.consecutive.Add(1)
			c.failures.Add(1)
		}
		d(opErr)
	}, nil
}

// State returns the current circuit breaker state. Reading the state is
// what moves an expired OPEN breaker to HALF-OPEN.
func (c *CircuitBreaker) State() State {
	return c.cb.State()
}

// Name returns the circuit breaker's name.
func (c *CircuitBreaker) Name() string {
	return c.name
}

// ConsecutiveFailures returns failures since the last success.
func (c *CircuitBreaker) ConsecutiveFailures() uint64 {
	return c.consecutive.Load()
}

// TotalFailures returns every failure recorded in the process lifetime.
func (c *CircuitBreaker) TotalFailures() uint64 {
	return c.failures.Load()
}

// ReportSuccess records a success if the breaker admits a request.
// Returns false while the breaker is open.
func (c *CircuitBreaker) ReportSuccess() bool {
	done, err := c.Allow()
	if err != nil {
		return false
	}
	done(nil)
	return true
}

// ReportFailure records a failure if the breaker admits a request.
// Returns false while the breaker is open.
func (c *CircuitBreaker) ReportFailure(err error) bool {
	done, allowErr := c.Allow()
	if allowErr != nil {
		return false
	}
	done(err)
	return true
}
