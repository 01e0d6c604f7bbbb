// Package notes persists note documents and their embedding vectors
// in the embedded SQLite store.
package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/k4ditano/notnative-app/internal/domain"
)

const (
	// baseTable holds the note content keyed by note id.
	baseTable = "note_docs"
	// vecTablePrefix names the vector table family. ClearAll drops
	// exactly the tables sharing this prefix plus baseTable.
	vecTablePrefix = "note_docs_vec"
)

// Repo is the SQLite persistence layer for the note vector index.
type Repo struct {
	db     *sql.DB
	logger *zap.Logger
}

// New ensures the schema exists and returns the repository.
func New(ctx context.Context, db *sql.DB, logger *zap.Logger) (*Repo, error) {
	r := &Repo{db: db, logger: logger}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repo) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + baseTable + ` (
			id       TEXT PRIMARY KEY,
			content  TEXT NOT NULL,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS ` + vecTablePrefix + ` (
			id        TEXT PRIMARY KEY,
			embedding BLOB NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure note schema: %w", err)
		}
	}
	return nil
}

// Upsert replaces the content row and its vector in one transaction.
// Either both land or neither does; a failed upsert leaves the
// previous row untouched.
func (r *Repo) Upsert(ctx context.Context, doc domain.NoteDocument, vec []float32) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", doc.ID, err)
	}

	blob := encodeVector(vec)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+baseTable+` (id, content, metadata) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content, metadata = excluded.metadata`,
		doc.ID, doc.Content, string(metadata),
	)
	if err != nil {
		return fmt.Errorf("upsert note %s: %w", doc.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+vecTablePrefix+` (id, embedding) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding`,
		doc.ID, blob,
	)
	if err != nil {
		return fmt.Errorf("upsert vector for %s: %w", doc.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert for %s: %w", doc.ID, err)
	}
	return nil
}

// Delete removes a note and its vector. Deleting an absent id is a
// no-op success.
func (r *Repo) Delete(ctx context.Context, id string) error {
	var rowid int64
	err := r.db.QueryRowContext(ctx,
		`SELECT rowid FROM `+baseTable+` WHERE id = ?`, id,
	).Scan(&rowid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup note %s: %w", id, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+vecTablePrefix+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete vector for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+baseTable+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete for %s: %w", id, err)
	}
	return nil
}

// LoadAll streams every indexed note with its vector for ranking.
func (r *Repo) LoadAll(ctx context.Context) ([]domain.IndexedNote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.content, d.metadata, v.embedding
		 FROM `+baseTable+` d
		 JOIN `+vecTablePrefix+` v ON v.id = d.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("load indexed notes: %w", err)
	}
	defer rows.Close()

	var out []domain.IndexedNote
	for rows.Next() {
		var (
			note     domain.IndexedNote
			metadata sql.NullString
			blob     []byte
		)
		if err := rows.Scan(&note.ID, &note.Content, &metadata, &blob); err != nil {
			return nil, fmt.Errorf("scan indexed note: %w", err)
		}

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &note.Metadata); err != nil {
				// Metadata is opaque; a corrupt value should not hide the note.
				r.logger.Warn("Failed to parse note metadata",
					zap.String("id", note.ID), zap.Error(err))
			}
		}

		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode vector for %s: %w", note.ID, err)
		}
		note.Vector = vec

		out = append(out, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexed notes: %w", err)
	}
	return out, nil
}

// Count returns the number of indexed notes.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+baseTable).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}

// DropAll enumerates and drops the vector table family plus the base
// table, then recreates an empty schema. Destructive; used for a full
// reindex after a model or dimension change.
func (r *Repo) DropAll(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ?`,
		vecTablePrefix+"%",
	)
	if err != nil {
		return fmt.Errorf("enumerate vector tables: %w", err)
	}

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate table names: %w", err)
	}
	rows.Close()

	tables = append(tables, baseTable)

	for _, table := range tables {
		if _, err := r.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}

	r.logger.Info("Dropped note index tables", zap.Strings("tables", tables))

	return r.ensureSchema(ctx)
}
