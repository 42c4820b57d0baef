package cache

import (
	"context"

	"github.com/rs/zerolog"
)

// Invalidator evicts cached reads when entities change. Mutation paths
// call it after a write commits; each call only touches the namespace of
// the entity type it names.
type Invalidator struct {
	facade *Facade
	log    zerolog.Logger
}

// NewInvalidator creates an Invalidator over f.
func NewInvalidator(f *Facade) *Invalidator {
	return &Invalidator{
		facade: f,
		log:    partLogger("invalidator"),
	}
}

// InvalidateNamespace removes every entry under entityType (the key
// "<entityType>" and all keys starting "<entityType>:") and returns how many
// were removed. Invalidating an empty namespace returns 0, nil.
func (i *Invalidator) InvalidateNamespace(ctx context.Context, entityType string) (int, error) {
	p, err := NamespacePattern(entityType)
	if err != nil {
		return 0, err
	}
	n := i.facade.invalidate(ctx, p)
	i.log.Debug().Str("entity", entityType).Int("removed", n).Msg("namespace invalidated")
	return n, nil
}

// InvalidateNamespaces invalidates several entity types and returns the
// total removed. It stops at the first invalid name.
func (i *Invalidator) InvalidateNamespaces(ctx context.Context, entityTypes ...string) (int, error) {
	total := 0
	for _, e := range entityTypes {
		n, err := i.InvalidateNamespace(ctx, e)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// AfterCommit returns a hook that invalidates entityType only when the
// commit succeeded. The commit error is passed through unchanged:
//
//	return inv.AfterCommit(ctx, "plants")(tx.Commit())
func (i *Invalidator) AfterCommit(ctx context.Context, entityType string) func(commitErr error) error {
	return func(commitErr error) error {
		if commitErr != nil {
			return commitErr
		}
		if _, err := i.InvalidateNamespace(ctx, entityType); err != nil {
			i.log.Error().Err(err).Str("entity", entityType).Msg("post-commit invalidation rejected")
		}
		return nil
	}
}
