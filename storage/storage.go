// Package storage defines the persistence boundary shared by the rate limiter
// and the security event log: a synchronous key/value store holding
// JSON-serializable values.
package storage

import (
	"context"

	"github.com/MichaelAJay/go-serializer"
)

// Store is the get/set/remove port injected into stateful components.
//
// Get decodes the stored value into dest and reports whether the key existed.
// A missing key is not an error. Implementations return errors only for
// faults of the underlying medium; callers are expected to treat those as
// non-fatal.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

// NewSerializer returns the JSON serializer used for stored values.
func NewSerializer() serializer.Serializer {
	s, err := serializer.DefaultRegistry.New(serializer.JSON)
	if err != nil {
		// Fallback to a new JSON serializer if registry fails
		s = serializer.NewJSONSerializer()
	}
	return s
}
