package cache

// Reactive helpers built on samber/ro. They sit beside the synchronous
// API for code that already models mutations or fetches as streams.

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/samber/ro"
)

// ErrEmptyFetch is returned when a fetch observable completes without a value.
var ErrEmptyFetch = errors.New("cache: fetch completed without a value")

// MutationOp is the kind of entity change.
type MutationOp string

// Mutation operations.
const (
	MutationCreate MutationOp = "create"
	MutationUpdate MutationOp = "update"
	MutationDelete MutationOp = "delete"
)

// Mutation describes a committed entity change.
type Mutation struct {
	EntityType string
	ID         string
	Op         MutationOp
}

// InvalidationResult reports the eviction triggered by one entity type.
type InvalidationResult struct {
	Err        error
	EntityType string
	Removed    int
}

// Stream invalidates the namespace of each mutation as it arrives and
// emits one result per mutation.
//
// Example:
//
//	inv.Stream(ctx, mutations).Subscribe(ro.OnNext(func(r cache.InvalidationResult) {
//	    log.Debug().Str("entity", r.EntityType).Int("removed", r.Removed).Msg("invalidated")
//	}))
func (i *Invalidator) Stream(ctx context.Context, mutations ro.Observable[Mutation]) ro.Observable[InvalidationResult] {
	return ro.Pipe1(
		mutations,
		ro.Map(func(m Mutation) InvalidationResult {
			n, err := i.InvalidateNamespace(ctx, m.EntityType)
			return InvalidationResult{EntityType: m.EntityType, Removed: n, Err: err}
		}),
	)
}

// StreamBatched buffers mutations until count arrive or window elapses,
// then invalidates each distinct entity type in the batch once.
func (i *Invalidator) StreamBatched(
	ctx context.Context,
	mutations ro.Observable[Mutation],
	count int,
	window time.Duration,
) ro.Observable[[]InvalidationResult] {
	return ro.Pipe3(
		mutations,
		ro.BufferWithTimeOrCount[Mutation](count, window),
		ro.Filter(func(batch []Mutation) bool {
			return len(batch) > 0
		}),
		ro.Map(func(batch []Mutation) []InvalidationResult {
			entities := lo.Uniq(lo.Map(batch, func(m Mutation, _ int) string {
				return m.EntityType
			}))
			return lo.Map(entities, func(e string, _ int) InvalidationResult {
				n, err := i.InvalidateNamespace(ctx, e)
				return InvalidationResult{EntityType: e, Removed: n, Err: err}
			})
		}),
	)
}

// Fetch returns a cached value or subscribes to fetch, caches its first
// value under p, and emits it. Errors from fetch are emitted unchanged.
//
// Example:
//
//	cache.Fetch(ctx, f, cache.EntityListPolicy("clients"), cache.Args{}, func() ro.Observable[[]Client] {
//	    return repo.StreamClients(ctx)
//	})
func Fetch[T any](
	ctx context.Context,
	f *Facade,
	p Policy,
	args Args,
	fetch func() ro.Observable[T],
) ro.Observable[T] {
	return ro.NewObservable(func(observer ro.Observer[T]) ro.Teardown {
		v, err := Memoize(ctx, f, p, args, func(context.Context) (T, error) {
			return firstValue(fetch())
		})
		if err != nil {
			observer.Error(err)
			return nil
		}
		observer.Next(v)
		observer.Complete()
		return nil
	})
}

func firstValue[T any](source ro.Observable[T]) (result T, err error) {
	hasResult := false
	var fetchErr error
	source.Subscribe(ro.NewObserver(
		func(val T) {
			if !hasResult {
				result = val
				hasResult = true
			}
		},
		func(err error) {
			fetchErr = err
		},
		func() {},
	))

	if fetchErr != nil {
		return result, fetchErr
	}
	if !hasResult {
		return result, ErrEmptyFetch
	}
	return result, nil
}
