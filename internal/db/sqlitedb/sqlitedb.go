// Package sqlitedb opens the embedded SQLite database shared by the
// note index and the embedding cache.
package sqlitedb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // database/sql driver
)

// Open opens (creating if needed) the database at path with WAL mode
// and a busy timeout. The connection pool is capped at one physical
// connection, so writes are implicitly serialized.
func Open(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database %s: %w", path, err)
	}
	return db, nil
}
