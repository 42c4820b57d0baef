package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// keyIndex tracks the keys written to a shared store that cannot scan its
// own keyspace, so pattern invalidation can find them. It is bounded; a key
// pushed out of the index is handed to onDrop, which must evict it from
// the store so no unindexed key can outlive an invalidation.
type keyIndex struct {
	keys   *lru.Cache[string, time.Time]
	onDrop func(key string)
	now    func() time.Time
	size   int
	mu     sync.Mutex
}

func newKeyIndex(size int, onDrop func(key string)) (*keyIndex, error) {
	if size <= 0 {
		size = DefaultIndexSize
	}
	keys, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, err
	}
	return &keyIndex{keys: keys, onDrop: onDrop, now: time.Now, size: size}, nil
}

// add records key with its expiry. When full, the least recently written
// key is dropped; rewriting a tracked key moves it to the newest position.
func (x *keyIndex) add(key string, expiresAt time.Time) {
	x.mu.Lock()
	var dropped string
	if !x.keys.Contains(key) && x.keys.Len() >= x.size {
		dropped, _, _ = x.keys.RemoveOldest()
	}
	x.keys.Add(key, expiresAt)
	x.mu.Unlock()

	if dropped != "" && x.onDrop != nil {
		x.onDrop(dropped)
	}
}

func (x *keyIndex) remove(key string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.keys.Remove(key)
}

// take removes and returns every live key selected by p.
func (x *keyIndex) take(p Pattern) []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	now := x.now()
	var out []string
	for _, key := range x.keys.Keys() {
		if !p.Match(key) {
			continue
		}
		exp, ok := x.keys.Peek(key)
		if !ok {
			continue
		}
		x.keys.Remove(key)
		if now.Before(exp) {
			out = append(out, key)
		}
	}
	return out
}

func (x *keyIndex) clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.keys.Purge()
}

func (x *keyIndex) len() int {
	return x.keys.Len()
}
