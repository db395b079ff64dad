package memory

import (
	"context"
	"testing"

	"github.com/MichaelAJay/go-security-policy/errors"
)

func TestStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	type record struct {
		Type string `json:"type"`
	}

	if err := store.Set(ctx, "security_events", []record{{Type: "auth_failed"}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, ok := store.Raw("security_events")
	if !ok {
		t.Fatal("Expected raw value to be stored")
	}
	if string(raw) == "" {
		t.Error("Expected serialized bytes")
	}

	var got []record
	found, err := store.Get(ctx, "security_events", &got)
	if err != nil || !found {
		t.Fatalf("Expected value, found=%v err=%v", found, err)
	}
	if len(got) != 1 || got[0].Type != "auth_failed" {
		t.Errorf("Unexpected value %+v", got)
	}

	if err := store.Remove(ctx, "security_events"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d keys", store.Len())
	}
}

func TestStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.Unavailable = true

	if err := store.Set(ctx, "k", 1); !errors.IsErrorType(err, errors.ErrStorageUnavailable) {
		t.Errorf("Expected storage unavailable on Set, got %v", err)
	}

	var v int
	if _, err := store.Get(ctx, "k", &v); !errors.IsErrorType(err, errors.ErrStorageUnavailable) {
		t.Errorf("Expected storage unavailable on Get, got %v", err)
	}

	if err := store.Remove(ctx, "k"); !errors.IsErrorType(err, errors.ErrStorageUnavailable) {
		t.Errorf("Expected storage unavailable on Remove, got %v", err)
	}
}
