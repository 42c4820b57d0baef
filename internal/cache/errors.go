package cache

import (
	"errors"
	"fmt"
)

// Standard errors for cache operations.
//
// Use errors.Is to check for these errors:
//
//	key, err := cache.GenerateKey("plants", args, nil)
//	if errors.Is(err, cache.ErrInvalidKeyInput) {
//		// caller passed something that is not a JSON primitive
//	}
//
// Only ErrInvalidKeyInput and ErrInvalidNamespace ever reach callers of the
// Facade or the decorators. The others are recovered inside the package.
var (
	// ErrNotFound is returned by stores when a key does not exist or has expired.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("cache: cache is closed")

	// ErrSerialization is returned when a value cannot be encoded or decoded.
	ErrSerialization = errors.New("cache: serialization failed")

	// ErrBackendUnavailable classifies shared tier failures (timeouts, refused
	// connections, closed pools).
	ErrBackendUnavailable = errors.New("cache: shared backend unavailable")

	// ErrInvalidKeyInput is returned when key arguments are not JSON primitives.
	ErrInvalidKeyInput = errors.New("cache: invalid key input")

	// ErrInvalidNamespace is returned for an empty namespace or pattern.
	ErrInvalidNamespace = errors.New("cache: invalid namespace")
)

// InvalidKeyInputError reports the argument that could not be canonicalized.
// It matches ErrInvalidKeyInput with errors.Is.
type InvalidKeyInputError struct {
	Path string
	Type string
}

func (e *InvalidKeyInputError) Error() string {
	return fmt.Sprintf("cache: invalid key input at %s: unsupported type %s", e.Path, e.Type)
}

func (e *InvalidKeyInputError) Unwrap() error {
	return ErrInvalidKeyInput
}

// unavailable tags a shared tier error so it matches ErrBackendUnavailable.
func unavailable(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, op, err)
}
