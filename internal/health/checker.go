package health

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// CheckFunc probes the shared backend. It returns nil when healthy.
type CheckFunc func(ctx context.Context) error

// Prober re-checks the shared backend while the breaker is half-open.
// A successful probe closes the breaker; a failed one reopens it. Probes
// run on a background ticker and can also be triggered without blocking
// the caller.
type Prober struct {
	ctx      context.Context
	breaker  *CircuitBreaker
	check    CheckFunc
	logger   *zerolog.Logger
	cancel   context.CancelFunc
	config   CheckConfig
	wg       sync.WaitGroup
	inflight atomic.Bool
	started  atomic.Bool
}

// NewProber creates a Prober for breaker using check.
func NewProber(breaker *CircuitBreaker, check CheckFunc, cfg CheckConfig, logger *zerolog.Logger) *Prober {
	ctx, cancel := context.WithCancel(context.Background())
	return &Prober{
		breaker: breaker,
		check:   check,
		config:  cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins periodic probing. It is a no-op when disabled or already started.
func (p *Prober) Start() {
	if !p.config.IsEnabled() {
		if p.logger != nil {
			p.logger.Info().Msg("health prober disabled")
		}
		return
	}
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	interval := p.config.GetInterval()
	jitter := cryptoRandDuration(interval / 10)
	ticker := time.NewTicker(interval + jitter)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()

		if p.logger != nil {
			p.logger.Info().
				Dur("interval", interval).
				Dur("jitter", jitter).
				Msg("health prober started")
		}

		for {
			select {
			case <-p.ctx.Done():
				if p.logger != nil {
					p.logger.Info().Msg("health prober stopped")
				}
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()
}

// Stop cancels probing and waits for in-flight probes to finish.
func (p *Prober) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Trigger starts a probe in the background unless one is already running.
func (p *Prober) Trigger() {
	if p.ctx.Err() != nil || !p.inflight.CompareAndSwap(false, true) {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inflight.Store(false)
		p.tick()
	}()
}

func (p *Prober) tick() {
	err := p.ProbeNow(p.ctx)
	if err == nil || p.logger == nil {
		return
	}
	p.logger.Debug().Err(err).Str("backend", p.breaker.Name()).Msg("health probe did not close breaker")
}

// ProbeNow runs one probe if the breaker is half-open.
// Returns ErrNotProbing in any other state and ErrCircuitOpen when another
// probe already holds the half-open slot.
func (p *Prober) ProbeNow(ctx context.Context) error {
	if p.breaker.State() != StateHalfOpen {
		return ErrNotProbing
	}

	done, err := p.breaker.Allow()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.GetTimeout())
	defer cancel()

	checkErr := p.check(ctx)
	done(checkErr)

	if checkErr != nil {
		return fmt.Errorf("%w: %w", ErrHealthCheckFailed, checkErr)
	}
	if p.logger != nil {
		p.logger.Info().Str("backend", p.breaker.Name()).Msg("health probe succeeded")
	}
	return nil
}

// cryptoRandDuration returns a cryptographically random duration between 0 and maxDur.
func cryptoRandDuration(maxDur time.Duration) time.Duration {
	if maxDur <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	n := binary.LittleEndian.Uint64(b[:])
	//nolint:gosec // G115: maxDur is always positive (checked above), safe conversion
	return time.Duration(n % uint64(maxDur))
}
