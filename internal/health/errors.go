package health

import "errors"

// Sentinel errors for shared tier health tracking.
var (
	// ErrCircuitOpen is returned when the breaker rejects a request, either
	// because it is open or because a half-open probe is already in flight.
	ErrCircuitOpen = errors.New("health: circuit breaker is open")

	// ErrHealthCheckFailed is returned when a probe reaches the backend and fails.
	ErrHealthCheckFailed = errors.New("health: health check failed")

	// ErrNotProbing is returned by ProbeNow when the breaker is not half-open.
	ErrNotProbing = errors.New("health: breaker is not probing")
)
