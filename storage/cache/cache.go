// Package cache implements storage.Store on top of go-cache.
package cache

import (
	"context"
	"time"

	"github.com/MichaelAJay/go-cache"
	"github.com/MichaelAJay/go-serializer"
	"github.com/MichaelAJay/go-security-policy/errors"
	"github.com/MichaelAJay/go-security-policy/storage"
)

// Store persists serialized values in a go-cache backend. Entries expire after
// ttl; the components using the store prune by age themselves, so the ttl is
// only an upper bound on how long abandoned keys linger.
type Store struct {
	cache      cache.Cache
	ttl        time.Duration
	serializer serializer.Serializer
}

// NewStore wraps c. A zero ttl is passed through to the cache unchanged.
func NewStore(c cache.Cache, ttl time.Duration) *Store {
	return &Store{
		cache:      c,
		ttl:        ttl,
		serializer: storage.NewSerializer(),
	}
}

var _ storage.Store = (*Store)(nil)

// Get decodes the cached value under key into dest
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, found, err := s.cache.Get(ctx, key)
	if err != nil && !errors.IsErrorType(err, errors.ErrCacheMiss) {
		return false, errors.NewStorageError("get", key, err)
	}
	if !found || value == nil {
		return false, nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return false, errors.NewStorageError("get", key, errors.ErrCorruptValue)
	}

	if err := s.serializer.Deserialize(raw, dest); err != nil {
		return false, errors.NewStorageError("get", key, err)
	}
	return true, nil
}

// Set serializes value and caches it under key. The encoded value is handed
// to the cache as a string, which round-trips through both the JSON and
// msgpack cache serializers; a []byte would come back base64 encoded from JSON.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := s.serializer.Serialize(value)
	if err != nil {
		return errors.NewStorageError("set", key, err)
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		return errors.NewStorageError("set", key, err)
	}
	return nil
}

// Remove deletes key from the cache
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.cache.Delete(ctx, key); err != nil {
		return errors.NewStorageError("remove", key, err)
	}
	return nil
}
