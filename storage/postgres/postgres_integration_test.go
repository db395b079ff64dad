// storage/postgres/postgres_integration_test.go
package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	testPool *pgxpool.Pool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	// Skip integration tests if no database available
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		os.Exit(0)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		panic("Failed to create test database pool: " + err.Error())
	}

	if err := pool.Ping(ctx); err != nil {
		panic("Failed to ping test database: " + err.Error())
	}

	testPool = pool

	if err := ResetDatabase(ctx, testPool); err != nil {
		panic("Failed to reset test database: " + err.Error())
	}

	if err := RunMigrations(ctx, testPool); err != nil {
		panic("Failed to run migrations: " + err.Error())
	}

	code := m.Run()

	testPool.Close()

	os.Exit(code)
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	store := NewStore(testPool)

	t.Run("missing key", func(t *testing.T) {
		var got []int64
		found, err := store.Get(ctx, "ratelimit:loginAttempts:nobody", &got)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if found {
			t.Error("Expected missing key to report found=false")
		}
	})

	t.Run("set then get", func(t *testing.T) {
		key := "ratelimit:loginAttempts:alice"
		if err := store.Set(ctx, key, []int64{1, 2, 3}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		var got []int64
		found, err := store.Get(ctx, key, &got)
		if err != nil || !found {
			t.Fatalf("Expected stored value, found=%v err=%v", found, err)
		}
		if len(got) != 3 || got[2] != 3 {
			t.Errorf("Expected [1 2 3], got %v", got)
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		key := "ratelimit:loginAttempts:bob"
		_ = store.Set(ctx, key, []int64{1})
		if err := store.Set(ctx, key, []int64{9, 10}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		var got []int64
		if _, err := store.Get(ctx, key, &got); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got) != 2 || got[0] != 9 {
			t.Errorf("Expected [9 10], got %v", got)
		}
	})

	t.Run("remove", func(t *testing.T) {
		key := "ratelimit:loginAttempts:carol"
		_ = store.Set(ctx, key, []int64{1})
		if err := store.Remove(ctx, key); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}

		var got []int64
		if found, _ := store.Get(ctx, key, &got); found {
			t.Error("Expected key to be removed")
		}
	})

	t.Run("purge stale", func(t *testing.T) {
		_ = store.Set(ctx, "ratelimit:apiCalls:dave", []int64{1})

		removed, err := store.PurgeStale(ctx, time.Now().Add(time.Minute))
		if err != nil {
			t.Fatalf("PurgeStale failed: %v", err)
		}
		if removed == 0 {
			t.Error("Expected at least one row to be purged")
		}
	})
}
