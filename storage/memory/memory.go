// Package memory implements storage.Store in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/MichaelAJay/go-serializer"
	"github.com/MichaelAJay/go-security-policy/errors"
	"github.com/MichaelAJay/go-security-policy/storage"
)

// Store keeps serialized values in a map, so that values round-trip through
// the same JSON encoding as the persistent stores.
type Store struct {
	mu         sync.RWMutex
	data       map[string][]byte
	serializer serializer.Serializer

	// Unavailable makes every operation fail, simulating a storage outage.
	Unavailable bool
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		data:       make(map[string][]byte),
		serializer: storage.NewSerializer(),
	}
}

var _ storage.Store = (*Store)(nil)

// Get decodes the value stored under key into dest
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Unavailable {
		return false, errors.NewStorageError("get", key, errors.ErrServiceUnavailable)
	}

	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if err := s.serializer.Deserialize(raw, dest); err != nil {
		return false, errors.NewStorageError("get", key, err)
	}
	return true, nil
}

// Set serializes value and stores it under key
func (s *Store) Set(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Unavailable {
		return errors.NewStorageError("set", key, errors.ErrServiceUnavailable)
	}

	raw, err := s.serializer.Serialize(value)
	if err != nil {
		return errors.NewStorageError("set", key, err)
	}
	s.data[key] = raw
	return nil
}

// Remove deletes key; removing a missing key is not an error
func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Unavailable {
		return errors.NewStorageError("remove", key, errors.ErrServiceUnavailable)
	}

	delete(s.data, key)
	return nil
}

// Raw returns the serialized bytes stored under key
func (s *Store) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	return raw, ok
}

// Len returns the number of stored keys
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
