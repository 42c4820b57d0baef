package cache

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// LocalStore is the bounded per-process fallback tier.
//
// Entries carry their own expiry and are dropped lazily on read. When the
// store is full the oldest inserted entry is evicted: reads use Peek so they
// never refresh recency, and an overwrite is a remove followed by a fresh
// insert.
type LocalStore struct {
	entries   *lru.Cache[string, Entry]
	now       func() time.Time
	log       zerolog.Logger
	bytes     atomic.Int64
	evictions atomic.Uint64
	mu        sync.Mutex
}

// NewLocalStore creates a local tier holding at most maxEntries entries.
func NewLocalStore(maxEntries int) (*LocalStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultLocalMaxEntries
	}
	s := &LocalStore{
		now: time.Now,
		log: partLogger("local"),
	}
	entries, err := lru.NewWithEvict[string, Entry](maxEntries, func(_ string, e Entry) {
		s.bytes.Add(-e.size())
	})
	if err != nil {
		return nil, err
	}
	s.entries = entries
	s.log.Debug().Int("max_entries", maxEntries).Msg("local store created")
	return s, nil
}

// Get returns a copy of the value for key if present and not expired.
func (s *LocalStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Peek(key)
	if !ok {
		return nil, false
	}
	if e.Expired(s.now()) {
		s.entries.Remove(key)
		return nil, false
	}
	v := make([]byte, len(e.Value))
	copy(v, e.Value)
	return v, true
}

// Set stores value under key for ttl, evicting the oldest entry when full.
func (s *LocalStore) Set(key string, value []byte, ttl time.Duration) {
	e := newEntry(key, value, ttl, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Remove(key)
	s.bytes.Add(e.size())
	if evicted := s.entries.Add(key, e); evicted {
		s.evictions.Add(1)
		s.log.Debug().Str("key", key).Msg("local store evicted oldest entry")
	}
}

// Delete removes key and reports whether a live entry was removed.
func (s *LocalStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Peek(key)
	if !ok {
		return false
	}
	s.entries.Remove(key)
	return !e.Expired(s.now())
}

// DeleteMatching removes every key selected by p with a linear scan and
// returns the live keys it removed.
func (s *LocalStore) DeleteMatching(p Pattern) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed []string
	for _, key := range s.entries.Keys() {
		if !p.Match(key) {
			continue
		}
		e, ok := s.entries.Peek(key)
		if !ok {
			continue
		}
		s.entries.Remove(key)
		if !e.Expired(now) {
			removed = append(removed, key)
		}
	}
	return removed
}

// Clear drops every entry and returns how many live entries were held.
func (s *LocalStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	live := 0
	for _, key := range s.entries.Keys() {
		if e, ok := s.entries.Peek(key); ok && !e.Expired(now) {
			live++
		}
	}
	s.entries.Purge()
	return live
}

// Keys returns the stored keys from oldest to newest, including expired
// entries not yet dropped.
func (s *LocalStore) Keys() []string {
	return s.entries.Keys()
}

// Len returns the number of stored entries, including expired ones not yet dropped.
func (s *LocalStore) Len() int {
	return s.entries.Len()
}

// Bytes approximates the memory held by stored keys and values.
func (s *LocalStore) Bytes() int64 {
	return s.bytes.Load()
}

// Evictions returns how many entries were evicted for capacity.
func (s *LocalStore) Evictions() uint64 {
	return s.evictions.Load()
}
