package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	in := []plant{{ID: 1, Name: "Fern"}}
	data, err := Encode(in)
	require.NoError(t, err)

	var out []plant
	require.NoError(t, Decode(data, &out))
	assert.Equal(t, in, out)
}

func TestDecodeGenericValuesUseWideTypes(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"total_projects": 5,
		"large":          200,
		"unsigned":       uint(70000),
		"negative":       int8(-3),
		"ratio":          float32(0.5),
		"name":           "plants",
		"nested":         map[string]any{"ids": []int{1, 2}},
	}
	data, err := Encode(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, Decode(data, &out))
	assert.Equal(t, map[string]any{
		"total_projects": int64(5),
		"large":          int64(200),
		"unsigned":       int64(70000),
		"negative":       int64(-3),
		"ratio":          float64(0.5),
		"name":           "plants",
		"nested":         map[string]any{"ids": []any{int64(1), int64(2)}},
	}, out)

	again, err := Encode(out)
	require.NoError(t, err)
	var twice map[string]any
	require.NoError(t, Decode(again, &twice))
	assert.Equal(t, out, twice, "decoded values round-trip exactly")
}

func TestEncodeUnsupported(t *testing.T) {
	t.Parallel()

	_, err := Encode(make(chan int))
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestGetValueEvictsCorruptEntry(t *testing.T) {
	t.Parallel()

	f, mr := newTestRedisFacade(t)
	ctx := context.Background()

	f.Set(ctx, "plants:list", []byte{0xc1}, time.Minute)
	require.True(t, mr.Exists("bizcache:plants:list"))

	_, ok := GetValue[[]plant](ctx, f, "plants:list")
	assert.False(t, ok)
	assert.False(t, mr.Exists("bizcache:plants:list"))
}

func TestSetValueSkipsUnencodable(t *testing.T) {
	t.Parallel()

	f, mr := newTestRedisFacade(t)
	SetValue(context.Background(), f, "bad", func() {}, time.Minute)
	assert.False(t, mr.Exists("bizcache:bad"))
}
