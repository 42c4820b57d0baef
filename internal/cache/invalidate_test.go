package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidateNamespaceScoping(t *testing.T) {
	t.Parallel()

	f, _ := newTestRedisFacade(t)
	inv := NewInvalidator(f)
	ctx := context.Background()

	plants := Wrap(f, EntityListPolicy("plants"), func(context.Context, Args) (int, error) { return 1, nil })
	products := Wrap(f, EntityListPolicy("products"), func(context.Context, Args) (int, error) { return 2, nil })
	_, err := plants(ctx, Args{})
	require.NoError(t, err)
	_, err = products(ctx, Args{})
	require.NoError(t, err)

	n, err := inv.InvalidateNamespace(ctx, "plants")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	productKey, err := f.Key("products:list", nil, nil)
	require.NoError(t, err)
	_, ok := f.Get(ctx, productKey)
	assert.True(t, ok, "other namespaces stay cached")

	n, err = inv.InvalidateNamespace(ctx, "plants")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvalidateNamespaceRejectsPatterns(t *testing.T) {
	t.Parallel()

	f, _ := newTestRedisFacade(t)
	inv := NewInvalidator(f)

	_, err := inv.InvalidateNamespace(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
	_, err = inv.InvalidateNamespace(context.Background(), "pl*")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}

func TestInvalidateNamespaces(t *testing.T) {
	t.Parallel()

	f, _ := newTestRedisFacade(t)
	inv := NewInvalidator(f)
	ctx := context.Background()

	f.Set(ctx, "plants:a", []byte("1"), time.Minute)
	f.Set(ctx, "products:a", []byte("1"), time.Minute)
	f.Set(ctx, "clients:a", []byte("1"), time.Minute)

	n, err := inv.InvalidateNamespaces(ctx, "plants", "products")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := f.Get(ctx, "clients:a")
	assert.True(t, ok)

	_, err = inv.InvalidateNamespaces(ctx, "clients", "")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}

func TestAfterCommit(t *testing.T) {
	t.Parallel()

	f, _ := newTestRedisFacade(t)
	inv := NewInvalidator(f)
	ctx := context.Background()

	f.Set(ctx, "plants:a", []byte("1"), time.Minute)

	errCommit := errors.New("serialization failure")
	err := inv.AfterCommit(ctx, "plants")(errCommit)
	assert.Same(t, errCommit, err)
	_, ok := f.Get(ctx, "plants:a")
	assert.True(t, ok, "a failed commit leaves the cache alone")

	require.NoError(t, inv.AfterCommit(ctx, "plants")(nil))
	_, ok = f.Get(ctx, "plants:a")
	assert.False(t, ok)
}
