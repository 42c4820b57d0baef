package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// hashedMarker separates a namespace from a hashed argument segment.
// Canonical argument segments always start with '[', so the two forms
// cannot collide.
const hashedMarker = "h:"

// KeyGenerator derives cache keys from a namespace and call arguments.
// The zero value hashes argument segments longer than DefaultMaxKeyLength.
type KeyGenerator struct {
	MaxLength int
}

// GenerateKey builds a key with the default KeyGenerator.
func GenerateKey(namespace string, args []any, kwargs map[string]any) (string, error) {
	return KeyGenerator{}.Generate(namespace, args, kwargs)
}

// Generate returns namespace + ":" + canonical(args, kwargs).
//
// Positional arguments keep their order; keyword arguments (and nested maps)
// are serialized with sorted keys, so keyword order never changes the key.
// Nil and empty args/kwargs are equivalent. When the key would exceed
// MaxLength the argument segment is replaced by its SHA-256 digest.
//
// Arguments must be JSON primitives: nil, bools, numbers, strings, and
// slices or string-keyed maps of those. Anything else, byte slices
// included, returns an *InvalidKeyInputError.
func (g KeyGenerator) Generate(namespace string, args []any, kwargs map[string]any) (string, error) {
	if err := validateNamespace(namespace); err != nil {
		return "", err
	}

	for i, a := range args {
		if err := validateKeyInput("args["+strconv.Itoa(i)+"]", reflect.ValueOf(a)); err != nil {
			return "", err
		}
	}
	for k, v := range kwargs {
		if err := validateKeyInput("kwargs."+k, reflect.ValueOf(v)); err != nil {
			return "", err
		}
	}

	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	canonical, err := canonicalJSON([]any{args, kwargs})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKeyInput, err)
	}

	maxLen := g.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxKeyLength
	}

	key := namespace + ":" + canonical
	if len(key) <= maxLen {
		return key, nil
	}
	sum := sha256.Sum256([]byte(canonical))
	return namespace + ":" + hashedMarker + hex.EncodeToString(sum[:]), nil
}

func validateNamespace(namespace string) error {
	if strings.TrimSpace(namespace) == "" {
		return fmt.Errorf("%w: namespace is empty", ErrInvalidNamespace)
	}
	if strings.Contains(namespace, "*") {
		return fmt.Errorf("%w: namespace %q contains '*'", ErrInvalidNamespace, namespace)
	}
	return nil
}

// canonicalJSON encodes v without HTML escaping. encoding/json sorts map keys.
func canonicalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func validateKeyInput(path string, v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return &InvalidKeyInputError{Path: path, Type: "non-finite float"}
		}
		return nil
	case reflect.Interface:
		return validateKeyInput(path, v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			// Byte slices encode as base64 and would collide with strings.
			return &InvalidKeyInputError{Path: path, Type: v.Type().String()}
		}
		for i := 0; i < v.Len(); i++ {
			if err := validateKeyInput(path+"["+strconv.Itoa(i)+"]", v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return &InvalidKeyInputError{Path: path, Type: v.Type().String()}
		}
		iter := v.MapRange()
		for iter.Next() {
			if err := validateKeyInput(path+"."+iter.Key().String(), iter.Value()); err != nil {
				return err
			}
		}
		return nil
	default:
		return &InvalidKeyInputError{Path: path, Type: v.Type().String()}
	}
}

// NamespaceOf returns the namespace segment of a generated key.
func NamespaceOf(key string) string {
	if i := strings.Index(key, ":["); i >= 0 {
		return key[:i]
	}
	if i := strings.Index(key, ":"+hashedMarker); i >= 0 {
		return key[:i]
	}
	return key
}
