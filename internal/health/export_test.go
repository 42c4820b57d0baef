package health

import "github.com/rs/zerolog"

// NewTestBreaker creates a breaker with explicit settings for tests.
func NewTestBreaker(failureThreshold, openDurationMS, halfOpenProbes int) *CircuitBreaker {
	logger := zerolog.Nop()
	return NewCircuitBreaker("test-backend", CircuitBreakerConfig{
		FailureThreshold: failureThreshold,
		OpenDurationMS:   openDurationMS,
		HalfOpenProbes:   halfOpenProbes,
	}, &logger)
}

// CryptoRandDurationExported exports cryptoRandDuration for testing.
var CryptoRandDurationExported = cryptoRandDuration

// Tick exports the ticker body for testing.
func (p *Prober) Tick() {
	p.tick()
}
