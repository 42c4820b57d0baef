package cache

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes v with msgpack.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrSerialization, err)
	}
	return data, nil
}

// Decode deserializes data into v. Generic values (decoded into any,
// map[string]any or []any) use wide types: integers become int64 (uint64
// only above math.MaxInt64), floats become float64, maps map[string]any and
// arrays []any. Typed destinations keep their declared types.
func Decode(data []byte, v any) error {
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)

	dec.Reset(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrSerialization, err)
	}

	switch p := v.(type) {
	case *any:
		*p = widen(*p)
	case *map[string]any:
		widen(*p)
	case *[]any:
		widen(*p)
	}
	return nil
}

// widen rewrites unsigned integers that fit in int64 as int64, in place for
// maps and slices. msgpack writes non-negative ints with unsigned codes.
func widen(v any) any {
	switch x := v.(type) {
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
	case map[string]any:
		for k, e := range x {
			x[k] = widen(e)
		}
	case []any:
		for i, e := range x {
			x[i] = widen(e)
		}
	}
	return v
}

// GetValue reads and decodes a typed value. A value that cannot be decoded
// is evicted and reported as a miss.
func GetValue[T any](ctx context.Context, f *Facade, key string) (T, bool) {
	var out T
	data, ok := f.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := Decode(data, &out); err != nil {
		f.log.Warn().Err(err).Str("namespace", NamespaceOf(key)).Str("key", key).Msg("discarding undecodable cache entry")
		f.Delete(ctx, key)
		var zero T
		return zero, false
	}
	return out, true
}

// SetValue encodes and stores a typed value. Encoding failures are logged
// and the write is skipped.
func SetValue[T any](ctx context.Context, f *Facade, key string, value T, ttl time.Duration) {
	_ = storeValue(ctx, f, key, value, ttl)
}

// storeValue stores value and returns it as a later GetValue would see it,
// so a computed result and a cached one have the same dynamic types. When
// value cannot be encoded it is returned unchanged and nothing is stored.
func storeValue[T any](ctx context.Context, f *Facade, key string, value T, ttl time.Duration) T {
	data, err := Encode(value)
	if err != nil {
		f.log.Warn().Err(err).Str("namespace", NamespaceOf(key)).Str("key", key).Msg("skipping cache write for unencodable value")
		return value
	}
	f.Set(ctx, key, data, ttl)

	var out T
	if err := Decode(data, &out); err != nil {
		return value
	}
	return out
}
