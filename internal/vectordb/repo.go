package vectordb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// NoteRecord is the note metadata stored alongside an embedding.
// Empty optional fields are stored as NULL.
type NoteRecord struct {
	ID     string
	Path   string
	Title  string
	Gist   string
	Type   string
	Status string
	Area   string
	Tags   []string
	MTime  int64
}

const noteColumns = `n.id, n.path, n.title, n.gist, n.note_type, n.status, n.area, n.tags, n.mtime`

// UpsertNote inserts or replaces a note and its embedding within one transaction.
func (db *DB) UpsertNote(n NoteRecord, embedding []float32) error {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("vectordb: marshal tags: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("vectordb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.Exec(`
		INSERT INTO notes (id, path, title, gist, note_type, status, area, tags, mtime, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path       = excluded.path,
			title      = excluded.title,
			gist       = excluded.gist,
			note_type  = excluded.note_type,
			status     = excluded.status,
			area       = excluded.area,
			tags       = excluded.tags,
			mtime      = excluded.mtime,
			indexed_at = excluded.indexed_at
	`, n.ID, n.Path, n.Title, nullable(n.Gist), nullable(n.Type), nullable(n.Status), nullable(n.Area),
		string(tagsJSON), n.MTime, db.now().Unix())
	if err != nil {
		return fmt.Errorf("vectordb: upsert note: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO embeddings (note_id, embedding)
		VALUES (?, ?)
		ON CONFLICT(note_id) DO UPDATE SET embedding = excluded.embedding
	`, n.ID, EncodeEmbedding(embedding))
	if err != nil {
		return fmt.Errorf("vectordb: upsert embedding: %w", err)
	}

	return tx.Commit()
}

// DeleteNote removes a note and its embedding. Deleting an unknown id is not an error.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("vectordb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM embeddings WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("vectordb: delete embedding: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("vectordb: delete note: %w", err)
	}
	return tx.Commit()
}

// GetNote returns the note stored under id, or nil if there is none.
func (db *DB) GetNote(id string) (*NoteRecord, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes n WHERE n.id = ?`, id)
	rec, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vectordb: get note: %w", err)
	}
	return rec, nil
}

// GetEmbedding returns the embedding stored for id, or nil if there is none.
func (db *DB) GetEmbedding(id string) ([]float32, error) {
	var blob []byte
	err := db.conn.QueryRow(`SELECT embedding FROM embeddings WHERE note_id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vectordb: get embedding: %w", err)
	}
	vec, err := DecodeEmbedding(blob)
	if err != nil {
		return nil, fmt.Errorf("vectordb: note %q: %w", id, err)
	}
	return vec, nil
}

// AllMtimes returns the stored mtime of every note, keyed by id.
func (db *DB) AllMtimes() (map[string]int64, error) {
	rows, err := db.conn.Query(`SELECT id, mtime FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("vectordb: all mtimes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var mtime int64
		if err := rows.Scan(&id, &mtime); err != nil {
			return nil, err
		}
		out[id] = mtime
	}
	return out, rows.Err()
}

// SetMeta stores value under key, replacing any previous value.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("vectordb: set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta returns the value stored under key and whether it exists.
func (db *DB) GetMeta(key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM index_meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("vectordb: get meta %s: %w", key, err)
	}
	return v, true, nil
}

// ErrCorruptTags reports a tags column that is not a JSON string array.
var ErrCorruptTags = errors.New("vectordb: corrupt tags value")

type scanner interface {
	Scan(dest ...any) error
}

// scanNote reads the noteColumns from s, followed by any extra destinations.
func scanNote(s scanner, extra ...any) (*NoteRecord, error) {
	var (
		rec                     NoteRecord
		gist, typ, status, area sql.NullString
		tagsJSON                string
	)
	dest := append([]any{&rec.ID, &rec.Path, &rec.Title, &gist, &typ, &status, &area, &tagsJSON, &rec.MTime}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	rec.Gist, rec.Type, rec.Status, rec.Area = gist.String, typ.String, status.String, area.String
	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		return nil, fmt.Errorf("%w: note %q: %v", ErrCorruptTags, rec.ID, err)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
