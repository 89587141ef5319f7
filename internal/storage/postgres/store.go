package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	getSnapshotSQL = `SELECT value FROM cart_snapshots WHERE key = $1`

	setSnapshotSQL = `INSERT INTO cart_snapshots (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	scanSnapshotsSQL = `SELECT key, value FROM cart_snapshots WHERE starts_with(key, $1) ORDER BY key`
)

// Store implements a key-value store on the cart_snapshots table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool. The pool is closed by
// Store.Close.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	if err := s.pool.QueryRow(ctx, getSnapshotSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting snapshot %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, setSnapshotSQL, key, value); err != nil {
		return fmt.Errorf("setting snapshot %q: %w", key, err)
	}
	return nil
}

// Scan calls fn in key order for every key starting with prefix. The rows are
// read in a single query, so fn must not block on the same pool.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key, value string) error) error {
	rows, err := s.pool.Query(ctx, scanSnapshotsSQL, prefix)
	if err != nil {
		return fmt.Errorf("scanning snapshots: %w", err)
	}

	var key, value string
	if _, err := pgx.ForEachRow(rows, []any{&key, &value}, func() error {
		return fn(key, value)
	}); err != nil {
		return fmt.Errorf("scanning snapshots: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
