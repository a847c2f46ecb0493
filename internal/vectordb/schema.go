// Package vectordb provides SQLite-backed storage for note metadata and
// their embeddings, with exhaustive cosine-similarity search.
package vectordb

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	title      TEXT NOT NULL,
	gist       TEXT,
	note_type  TEXT,
	status     TEXT,
	area       TEXT,
	tags       TEXT NOT NULL DEFAULT '[]',
	mtime      INTEGER NOT NULL,
	indexed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	note_id   TEXT PRIMARY KEY,
	embedding BLOB NOT NULL,
	FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_path ON notes(path);
CREATE INDEX IF NOT EXISTS idx_notes_type ON notes(note_type);
CREATE INDEX IF NOT EXISTS idx_notes_area ON notes(area);
CREATE INDEX IF NOT EXISTS idx_notes_mtime ON notes(mtime);
`

// DB wraps a sql.DB with vector-store operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	return open(path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
}

// OpenInMemory opens a private in-memory database, mainly for tests.
func OpenInMemory() (*DB, error) {
	return open(":memory:?_foreign_keys=on")
}

func open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("vectordb: open db: %w", err)
	}
	// Single writer; also keeps an in-memory database on one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("vectordb: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("vectordb: apply schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Reset removes every note, embedding and metadata entry.
func (db *DB) Reset() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("vectordb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"embeddings", "notes", "index_meta"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("vectordb: reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}
