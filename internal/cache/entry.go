package cache

import "time"

// Entry is a value held by the local tier. An entry is never mutated after
// creation; overwriting a key replaces the entry.
type Entry struct {
	StoredAt  time.Time
	ExpiresAt time.Time
	Key       string
	Value     []byte
}

// newEntry copies value so callers cannot mutate cached bytes.
// A non-positive ttl still yields ExpiresAt > StoredAt.
func newEntry(key string, value []byte, ttl time.Duration, now time.Time) Entry {
	if ttl <= 0 {
		ttl = time.Nanosecond
	}
	v := make([]byte, len(value))
	copy(v, value)
	return Entry{
		Key:       key,
		Value:     v,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the entry is logically absent at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// size approximates the memory held by the entry.
func (e *Entry) size() int64 {
	return int64(len(e.Key) + len(e.Value))
}
