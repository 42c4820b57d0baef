package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Args are the arguments of a cached call. Positional order matters;
// keyword order does not.
type Args struct {
	Keyword    map[string]any
	Positional []any
}

// Func is a read path that can be wrapped with caching.
type Func[T any] func(ctx context.Context, args Args) (T, error)

// Policy names the namespace a wrapped read caches under and how long its
// results live. The TTL is resolved from the Facade's TTL policy on every
// call, so hot-reloaded TTLs apply without rewrapping.
type Policy struct {
	resolve   func(*TTLConfig) time.Duration
	Namespace string
	// TTL, when positive, overrides the policy's configured TTL.
	TTL time.Duration
}

// DashboardPolicy caches frequently changing aggregates under
// "dashboard:<name>" with the short dashboard TTL.
func DashboardPolicy(name string) Policy {
	ns := "dashboard"
	if name != "" {
		ns += ":" + name
	}
	return Policy{Namespace: ns, resolve: (*TTLConfig).Dashboard}
}

// EntityListPolicy caches slowly changing listings under "<entity>:list"
// with the long entity list TTL. Invalidating the entity namespace clears it.
func EntityListPolicy(entity string) Policy {
	return Policy{Namespace: entity + ":list", resolve: (*TTLConfig).EntityList}
}

// APIResponsePolicy caches generic API responses under namespace with the
// API response TTL.
func APIResponsePolicy(namespace string) Policy {
	return Policy{Namespace: namespace, resolve: (*TTLConfig).APIResponse}
}

// CustomPolicy caches under namespace for a fixed ttl.
func CustomPolicy(namespace string, ttl time.Duration) Policy {
	return Policy{Namespace: namespace, TTL: ttl}
}

func (p Policy) ttl(t *TTLConfig) time.Duration {
	if p.TTL > 0 {
		return p.TTL
	}
	if p.resolve != nil {
		return p.resolve(t)
	}
	return t.Default()
}

// Wrap returns fn with cache-aside behavior: the first call for a set of
// arguments runs fn and caches its result, later calls are served from the
// cache. Errors from fn are returned unchanged and never cached. An
// argument that cannot be part of a key returns ErrInvalidKeyInput without
// calling fn.
//
// Example:
//
//	listPlants := cache.Wrap(f, cache.EntityListPolicy("plants"), repo.ListPlants)
//	plants, err := listPlants(ctx, cache.Args{Keyword: map[string]any{"page": 2}})
func Wrap[T any](f *Facade, p Policy, fn Func[T]) Func[T] {
	return func(ctx context.Context, args Args) (T, error) {
		return Memoize(ctx, f, p, args, func(ctx context.Context) (T, error) {
			return fn(ctx, args)
		})
	}
}

// Source reports where a memoized result came from.
type Source int

// Memoized result sources.
const (
	// SourceCache means the result was read from the cache.
	SourceCache Source = iota
	// SourceComputed means this call ran compute.
	SourceComputed
	// SourceShared means a concurrent call for the same key ran compute.
	SourceShared
)

// Memoize runs compute under cache-aside for one call. Concurrent misses
// for the same key share a single compute. The shared compute receives a
// context detached from the first caller's cancellation, so one caller
// giving up never fails the others; each caller still returns as soon as
// its own ctx is done. A miss returns the value as it decodes from the
// cache, so misses and hits yield the same dynamic types.
func Memoize[T any](ctx context.Context, f *Facade, p Policy, args Args, compute func(context.Context) (T, error)) (T, error) {
	v, _, err := MemoizeSource(ctx, f, p, args, compute)
	return v, err
}

// MemoizeSource is Memoize that also reports where the result came from.
func MemoizeSource[T any](
	ctx context.Context, f *Facade, p Policy, args Args, compute func(context.Context) (T, error),
) (T, Source, error) {
	var zero T

	key, err := f.Key(p.Namespace, args.Positional, args.Keyword)
	if err != nil {
		return zero, SourceComputed, err
	}

	if v, ok := GetValue[T](ctx, f, key); ok {
		return v, SourceCache, nil
	}

	detached := context.WithoutCancel(ctx)
	ran := false
	ch := f.flight.DoChan(key, func() (any, error) {
		ran = true
		v, err := compute(detached)
		if err != nil {
			return nil, err
		}
		ttl := f.TTL()
		return storeValue(detached, f, key, v, p.ttl(&ttl)), nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return zero, SourceShared, ctx.Err()
	}

	source := SourceShared
	if ran {
		source = SourceComputed
	} else {
		f.log.Debug().Str("key", key).Msg("cache miss coalesced")
	}
	if res.Err != nil {
		return zero, source, res.Err
	}

	v, _ := res.Val.(T)
	return v, source, nil
}
