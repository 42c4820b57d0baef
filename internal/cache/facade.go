package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/omarluq/bizcache/internal/health"
)

// bulkTimeoutFactor scales the operation timeout for scans and clears.
const bulkTimeoutFactor = 20

// Facade is the single entry point to the cache. It prefers the shared
// store, falls back to the local tier while the shared store is degraded,
// and never returns a backend error to its caller.
//
// The shared store's reachability is a circuit breaker: CLOSED is
// SHARED_ACTIVE, OPEN is DEGRADED and HALF-OPEN is PROBING. While not
// SHARED_ACTIVE no foreground call touches the shared store; the prober
// (and every Nth local-only call) re-checks it instead. On recovery the
// local tier is purged so values written while degraded cannot resurface.
type Facade struct {
	store      Store
	patterns   PatternDeleter
	clearer    Clearer
	local      *LocalStore
	index      *keyIndex
	breaker    *health.CircuitBreaker
	prober     *health.Prober
	ttl        atomic.Pointer[TTLConfig]
	flight     singleflight.Group
	log        zerolog.Logger
	keys       KeyGenerator
	mode       Mode
	opTimeout  time.Duration
	probeEvery uint64
	hits       atomic.Uint64
	misses     atomic.Uint64
	localOps   atomic.Uint64
	closed     atomic.Bool
	disabled   bool
}

// NewFacade builds a Facade over store. The Facade owns store and closes
// it in Close. Call Start to run the background prober.
func NewFacade(store Store, cfg *Config, hcfg health.Config) (*Facade, error) {
	local, err := NewLocalStore(cfg.GetLocalMaxEntries())
	if err != nil {
		return nil, err
	}

	mode := ModeOf(store)
	log := partLogger("facade").With().Str("mode", string(mode)).Logger()

	f := &Facade{
		store:      store,
		local:      local,
		log:        log,
		keys:       KeyGenerator{MaxLength: cfg.GetMaxKeyLength()},
		mode:       mode,
		opTimeout:  cfg.GetOpTimeout(),
		probeEvery: uint64(hcfg.HealthCheck.GetProbeEveryOps()), //nolint:gosec // getter returns a positive value
		disabled:   mode == ModeDisabled,
	}
	ttl := cfg.TTL
	f.ttl.Store(&ttl)

	if pd, ok := store.(PatternDeleter); ok {
		f.patterns = pd
	} else {
		f.index, err = newKeyIndex(cfg.GetIndexSize(), f.dropUnindexed)
		if err != nil {
			return nil, err
		}
	}
	if c, ok := store.(Clearer); ok {
		f.clearer = c
	}

	f.breaker = health.NewCircuitBreaker("shared-"+string(mode), hcfg.CircuitBreaker, &f.log)
	f.breaker.OnStateChange(func(_, to health.State) {
		if to == health.StateClosed {
			purged := f.local.Clear()
			f.log.Info().Int("purged", purged).Msg("shared backend recovered, local tier purged")
		}
	})
	f.prober = health.NewProber(f.breaker, func(ctx context.Context) error {
		return ping(ctx, f.store)
	}, hcfg.HealthCheck, &f.log)

	log.Info().
		Dur("op_timeout", f.opTimeout).
		Int("local_max_entries", cfg.GetLocalMaxEntries()).
		Bool("native_scan", f.patterns != nil).
		Msg("cache facade created")

	return f, nil
}

// Start runs the background prober.
func (f *Facade) Start() {
	if !f.disabled {
		f.prober.Start()
	}
}

// Close stops the prober and closes the shared store. Close is idempotent.
func (f *Facade) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	f.prober.Stop()
	f.local.Clear()
	if f.index != nil {
		f.index.clear()
	}
	return f.store.Close()
}

// Key generates a key with the Facade's configured length limit.
func (f *Facade) Key(namespace string, args []any, kwargs map[string]any) (string, error) {
	return f.keys.Generate(namespace, args, kwargs)
}

// TTL returns the current TTL policy.
func (f *Facade) TTL() TTLConfig {
	return *f.ttl.Load()
}

// SetTTLPolicy swaps the TTL policy used by later writes and decorators.
func (f *Facade) SetTTLPolicy(t TTLConfig) {
	f.ttl.Store(&t)
	f.log.Info().
		Dur("default", t.Default()).
		Dur("dashboard", t.Dashboard()).
		Dur("entity_list", t.EntityList()).
		Dur("api_response", t.APIResponse()).
		Msg("cache ttl policy updated")
}

// Mode returns the shared store mode.
func (f *Facade) Mode() Mode {
	return f.mode
}

// State returns the backend selection state.
func (f *Facade) State() health.State {
	return f.breaker.State()
}

// Breaker exposes the backend state machine.
func (f *Facade) Breaker() *health.CircuitBreaker {
	return f.breaker
}

// Ping checks that the shared tier answers within the operation timeout.
// It does not record the outcome or change backend state. A disabled
// Facade has no shared tier and always reports healthy.
func (f *Facade) Ping(ctx context.Context) error {
	if f.disabled {
		return nil
	}
	if f.closed.Load() {
		return ErrClosed
	}
	c, cancel := context.WithTimeout(ctx, f.opTimeout)
	defer cancel()
	return ping(c, f.store)
}

// ProbeNow runs one health probe if the Facade is PROBING.
func (f *Facade) ProbeNow(ctx context.Context) error {
	return f.prober.ProbeNow(ctx)
}

// Get returns the cached value for key. Shared tier errors are recorded
// and the local tier is consulted instead; both a genuine miss and an
// unreachable backend report ok == false.
func (f *Facade) Get(ctx context.Context, key string) (value []byte, ok bool) {
	if !f.usable(key) {
		f.misses.Add(1)
		return nil, false
	}

	f.shared(ctx, "get", f.opTimeout, func(c context.Context) error {
		data, err := f.store.Get(c, key)
		if err == nil {
			value, ok = data, true
		}
		return err
	})
	if !ok {
		value, ok = f.local.Get(key)
	}

	if ok {
		f.hits.Add(1)
	} else {
		f.misses.Add(1)
	}
	return value, ok
}

// Set stores value for ttl; a non-positive ttl uses the default TTL.
// While SHARED_ACTIVE the value goes to the shared tier only; otherwise,
// or when the shared write fails, it goes to the local tier. Failures are
// logged and swallowed.
func (f *Facade) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !f.usable(key) {
		return
	}
	if ttl <= 0 {
		policy := f.TTL()
		ttl = policy.Default()
	}

	expiresAt := time.Now().Add(ttl)
	stored := f.shared(ctx, "set", f.opTimeout, func(c context.Context) error {
		return f.store.SetWithTTL(c, key, value, ttl)
	})
	if stored {
		if f.index != nil {
			f.index.add(key, expiresAt)
		}
		f.local.Delete(key)
		return
	}
	f.local.Set(key, value, ttl)
}

// Delete removes key from both tiers.
func (f *Facade) Delete(ctx context.Context, key string) {
	if !f.usable(key) {
		return
	}
	f.local.Delete(key)
	if f.shared(ctx, "delete", f.opTimeout, func(c context.Context) error {
		return f.store.Delete(c, key)
	}) && f.index != nil {
		f.index.remove(key)
	}
}

// Clear drops every entry this cache owns in both tiers and returns how
// many distinct live entries were removed. The shared tier is cleared only
// within its own key prefix.
func (f *Facade) Clear(ctx context.Context) int {
	removed := make(map[string]struct{})
	for _, k := range f.local.DeleteMatching(MatchAll) {
		removed[k] = struct{}{}
	}

	if !f.disabled && !f.closed.Load() {
		var keys []string
		f.shared(ctx, "clear", f.opTimeout*bulkTimeoutFactor, func(c context.Context) error {
			switch {
			case f.patterns != nil:
				deleted, err := f.patterns.DeleteMatching(c, MatchAll)
				keys = deleted
				return err
			case f.index != nil:
				keys = f.index.take(MatchAll)
				if f.clearer != nil {
					return f.clearer.Clear(c)
				}
				return f.deleteKeys(c, keys)
			default:
				return nil
			}
		})
		for _, k := range keys {
			removed[k] = struct{}{}
		}
	}

	f.log.Info().Int("removed", len(removed)).Msg("cache cleared")
	return len(removed)
}

// Invalidate removes every key matching pattern from both tiers and
// returns how many distinct live entries were removed. See Pattern for the
// grammar. An empty pattern returns ErrInvalidNamespace.
func (f *Facade) Invalidate(ctx context.Context, pattern string) (int, error) {
	p, err := ParsePattern(pattern)
	if err != nil {
		return 0, err
	}
	return f.invalidate(ctx, p), nil
}

func (f *Facade) invalidate(ctx context.Context, p Pattern) int {
	removed := make(map[string]struct{})
	for _, k := range f.local.DeleteMatching(p) {
		removed[k] = struct{}{}
	}

	if !f.disabled && !f.closed.Load() {
		var keys []string
		f.shared(ctx, "invalidate", f.opTimeout*bulkTimeoutFactor, func(c context.Context) error {
			if f.patterns != nil {
				deleted, err := f.patterns.DeleteMatching(c, p)
				keys = deleted
				return err
			}
			keys = f.index.take(p)
			return f.deleteKeys(c, keys)
		})
		for _, k := range keys {
			removed[k] = struct{}{}
		}
	}

	f.log.Debug().Str("pattern", p.String()).Int("removed", len(removed)).Msg("cache invalidated")
	return len(removed)
}

func (f *Facade) deleteKeys(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := f.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// dropUnindexed evicts a key that fell out of the key index.
func (f *Facade) dropUnindexed(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), f.opTimeout)
	defer cancel()
	if err := f.store.Delete(ctx, key); err != nil {
		f.log.Debug().Err(err).Str("key", key).Msg("failed to evict key dropped from index")
	}
}

func (f *Facade) usable(key string) bool {
	return key != "" && !f.disabled && !f.closed.Load()
}

// shared runs op against the shared store if the breaker admits it and
// reports whether the store handled it. A genuine miss counts as handled;
// a skipped or failed call returns false so the caller uses the local tier.
func (f *Facade) shared(ctx context.Context, op string, timeout time.Duration, fn func(context.Context) error) bool {
	if ctx.Err() != nil {
		return false
	}

	if state := f.breaker.State(); state != health.StateClosed {
		f.localOnly(state)
		return false
	}
	done, err := f.breaker.Allow()
	if err != nil {
		f.localOnly(f.breaker.State())
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err = fn(opCtx)
	if errors.Is(err, ErrNotFound) {
		done(nil)
		return true
	}
	done(err)
	if err != nil {
		f.log.Debug().Err(err).Str("op", op).Msg("shared backend error, using local tier")
		return false
	}
	return true
}

// localOnly counts a call served without the shared tier and kicks an
// asynchronous probe every probeEvery calls while PROBING.
func (f *Facade) localOnly(state health.State) {
	n := f.localOps.Add(1)
	if state == health.StateHalfOpen && n%f.probeEvery == 0 {
		f.prober.Trigger()
	}
}
