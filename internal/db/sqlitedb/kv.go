package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrKeyNotFound signals a cache miss in the key-value store.
var ErrKeyNotFound = errors.New("key not found")

const cacheTable = "embedding_cache"

// KV is a small key-value store backed by its own table, used as the
// embedding cache. It lives outside the note index table family so
// clearing the index does not invalidate cached vectors.
type KV struct {
	db *sql.DB
}

// NewKV creates the cache table if needed and returns the store.
func NewKV(ctx context.Context, db *sql.DB) (*KV, error) {
	_, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS `+cacheTable+` (
			key   TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)`,
	)
	if err != nil {
		return nil, fmt.Errorf("create %s table: %w", cacheTable, err)
	}
	return &KV{db: db}, nil
}

// Get returns the value for key, or ErrKeyNotFound.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM `+cacheTable+` WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key with upsert semantics.
func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+cacheTable+` (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
