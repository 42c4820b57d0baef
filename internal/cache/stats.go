package cache

import (
	"context"

	"github.com/omarluq/bizcache/internal/health"
)

// Backend tiers reported as backend_in_use.
const (
	TierShared = "shared"
	TierLocal  = "local"
	TierNone   = "none"
)

// StateDisabled is reported as backend_state when caching is off.
const StateDisabled = "DISABLED"

// Snapshot is a flat, point-in-time view of the cache for operators.
// Hit and miss counts only grow within a process lifetime. Shared counters
// are reported by the shared store itself and omitted when unavailable.
type Snapshot struct {
	SharedHits             *uint64 `json:"shared_hits,omitempty"`
	SharedMisses           *uint64 `json:"shared_misses,omitempty"`
	SharedKeys             *uint64 `json:"shared_keys,omitempty"`
	BackendInUse           string  `json:"backend_in_use"`
	BackendState           string  `json:"backend_state"`
	SharedMode             Mode    `json:"shared_mode"`
	HitCount               uint64  `json:"hit_count"`
	MissCount              uint64  `json:"miss_count"`
	LocalEntryCount        int     `json:"local_entry_count"`
	LocalBytes             int64   `json:"local_bytes"`
	LocalEvictions         uint64  `json:"local_evictions"`
	ConsecutiveFailures    uint64  `json:"consecutive_failures"`
	BackendErrors          uint64  `json:"backend_errors"`
	SharedBackendReachable bool    `json:"shared_backend_reachable"`
}

// Snapshot collects current statistics. It never writes to the cache and
// never changes backend state. Shared store counters are read only while
// SHARED_ACTIVE, bounded by the operation timeout.
func (f *Facade) Snapshot(ctx context.Context) Snapshot {
	state := f.breaker.State()
	reachable := !f.disabled && state == health.StateClosed

	s := Snapshot{
		BackendState:           health.BackendState(state),
		SharedMode:             f.mode,
		HitCount:               f.hits.Load(),
		MissCount:              f.misses.Load(),
		LocalEntryCount:        f.local.Len(),
		LocalBytes:             f.local.Bytes(),
		LocalEvictions:         f.local.Evictions(),
		SharedBackendReachable: reachable,
		ConsecutiveFailures:    f.breaker.ConsecutiveFailures(),
		BackendErrors:          f.breaker.TotalFailures(),
	}

	switch {
	case f.disabled:
		s.BackendInUse = TierNone
		s.BackendState = StateDisabled
	case reachable:
		s.BackendInUse = TierShared
	default:
		s.BackendInUse = TierLocal
	}

	if f.index != nil {
		n := uint64(f.index.len()) //nolint:gosec // length is never negative
		s.SharedKeys = &n
	}

	if sp, ok := f.store.(StatsProvider); ok && reachable && !f.closed.Load() {
		c, cancel := context.WithTimeout(ctx, f.opTimeout)
		defer cancel()
		if st, err := sp.Stats(c); err == nil {
			s.SharedHits = &st.Hits
			s.SharedMisses = &st.Misses
			if st.KeyCount > 0 {
				s.SharedKeys = &st.KeyCount
			}
		} else {
			f.log.Debug().Err(err).Msg("shared store stats unavailable")
		}
	}

	return s
}
