package vectordb

import (
	"cmp"
	"database/sql"
	"fmt"
	"slices"

	"github.com/starford/vaultsearch/internal/embedding"
)

// Scored is a search hit: a stored note and its cosine similarity to the query.
type Scored struct {
	Note  NoteRecord
	Score float32
}

// IndexStats summarises the store contents.
type IndexStats struct {
	DocumentCount  int   `json:"document_count"`
	EmbeddingCount int   `json:"embedding_count"`
	LastIndexed    int64 `json:"last_indexed"`
}

// Search scores every stored embedding against query and returns the best k,
// ordered by descending score and then by ascending id.
//
// This is a linear scan, O(n·D) per query. It is fine for vaults up to roughly
// ten thousand notes; past that an approximate index should sit behind Index.
func (db *DB) Search(query []float32, k int) ([]Scored, error) {
	if k <= 0 {
		return []Scored{}, nil
	}

	rows, err := db.conn.Query(`
		SELECT ` + noteColumns + `, e.embedding
		FROM notes n
		JOIN embeddings e ON n.id = e.note_id
	`)
	if err != nil {
		return nil, fmt.Errorf("vectordb: search: %w", err)
	}
	defer rows.Close()

	var out []Scored
	for rows.Next() {
		var blob []byte
		rec, err := scanNote(rows, &blob)
		if err != nil {
			return nil, fmt.Errorf("vectordb: search scan: %w", err)
		}
		vec, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("vectordb: note %q: %w", rec.ID, err)
		}
		out = append(out, Scored{Note: *rec, Score: embedding.CosineSimilarity(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectordb: search: %w", err)
	}

	slices.SortFunc(out, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Note.ID, b.Note.ID)
	})
	if len(out) > k {
		out = out[:k]
	}
	if out == nil {
		out = []Scored{}
	}
	return out, nil
}

// Stats returns document and embedding counts and the latest indexing time.
func (db *DB) Stats() (IndexStats, error) {
	var st IndexStats
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&st.DocumentCount); err != nil {
		return st, fmt.Errorf("vectordb: count notes: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&st.EmbeddingCount); err != nil {
		return st, fmt.Errorf("vectordb: count embeddings: %w", err)
	}
	var last sql.NullInt64
	if err := db.conn.QueryRow(`SELECT MAX(indexed_at) FROM notes`).Scan(&last); err != nil {
		return st, fmt.Errorf("vectordb: last indexed: %w", err)
	}
	st.LastIndexed = last.Int64
	return st, nil
}
