package vectordb

// Index defines the vector-store operations the search engine depends on.
type Index interface {
	UpsertNote(n NoteRecord, embedding []float32) error
	DeleteNote(id string) error
	GetNote(id string) (*NoteRecord, error)
	GetEmbedding(id string) ([]float32, error)
	Search(query []float32, k int) ([]Scored, error)
	Stats() (IndexStats, error)
	AllMtimes() (map[string]int64, error)
	SetMeta(key, value string) error
	GetMeta(key string) (string, bool, error)
	Reset() error
	Close() error
}

// Verify *DB satisfies Index at compile time.
var _ Index = (*DB)(nil)
