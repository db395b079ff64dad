// storage/postgres/store.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MichaelAJay/go-serializer"
	policyerrors "github.com/MichaelAJay/go-security-policy/errors"
	"github.com/MichaelAJay/go-security-policy/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config contains connection settings for the PostgreSQL store
type Config struct {
	DatabaseURL     string `json:"database_url"`
	MaxOpenConns    int    `json:"max_open_conns,omitempty"`
	MaxIdleConns    int    `json:"max_idle_conns,omitempty"`
	ConnMaxLifetime string `json:"conn_max_lifetime,omitempty"`
}

// Store implements storage.Store on the security_store table using pgx/v5
type Store struct {
	pool       *pgxpool.Pool
	serializer serializer.Serializer
}

// NewStore creates a store over an existing pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:       pool,
		serializer: storage.NewSerializer(),
	}
}

var _ storage.Store = (*Store)(nil)

// Open creates a connection pool from config, verifies it and applies migrations
func Open(ctx context.Context, config Config) (*Store, error) {
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required for PostgreSQL store")
	}

	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime != "" {
		if duration, err := time.ParseDuration(config.ConnMaxLifetime); err == nil {
			poolConfig.MaxConnLifetime = duration
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return NewStore(pool), nil
}

// Get loads the JSON value under key into dest
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM security_store WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, policyerrors.NewStorageError("get", key, err)
	}

	if err := s.serializer.Deserialize(raw, dest); err != nil {
		return false, policyerrors.NewStorageError("get", key, err)
	}
	return true, nil
}

// Set upserts value under key
func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := s.serializer.Serialize(value)
	if err != nil {
		return policyerrors.NewStorageError("set", key, err)
	}

	query := `
		INSERT INTO security_store (key, value, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, raw); err != nil {
		return policyerrors.NewStorageError("set", key, err)
	}
	return nil
}

// Remove deletes key
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM security_store WHERE key = $1`, key); err != nil {
		return policyerrors.NewStorageError("remove", key, err)
	}
	return nil
}

// PurgeStale deletes rows not written since before and returns how many went.
// Rate limit keys for identifiers that never come back are otherwise kept forever.
func (s *Store) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM security_store WHERE updated_at < $1`, before)
	if err != nil {
		return 0, policyerrors.NewStorageError("purge", "*", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}
