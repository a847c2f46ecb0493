// Package search ties the embedding model to the vector store: it indexes
// notes from a source and answers similarity queries.
package search

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/starford/vaultsearch/internal/apperr"
	"github.com/starford/vaultsearch/internal/embedding"
	"github.com/starford/vaultsearch/internal/models"
	"github.com/starford/vaultsearch/internal/vectordb"
)

// Metadata keys written by the engine.
const (
	MetaIndexedCount  = "indexed_count"
	MetaLastFullIndex = "last_full_index"
	MetaLastSync      = "last_sync"
)

// Source enumerates and loads notes.
type Source interface {
	List() ([]models.NoteMetadata, error)
	Load(path string) (*models.Note, error)
}

// ModelFactory constructs the embedding model. The engine calls it at most
// once; a failure is returned by every later operation that needs the model.
type ModelFactory func() (*embedding.Model, error)

// Result is a ranked search hit.
type Result struct {
	ID    string  `json:"id"`
	Path  string  `json:"path"`
	Title string  `json:"title"`
	Gist  string  `json:"gist,omitempty"`
	Type  string  `json:"type,omitempty"`
	Area  string  `json:"area,omitempty"`
	Score float32 `json:"score"`
}

// IndexingStats reports the outcome of a full index run.
type IndexingStats struct {
	Indexed    int   `json:"indexed"`
	Skipped    int   `json:"skipped"`
	Failed     int   `json:"failed"`
	DurationMS int64 `json:"duration_ms"`
}

// SyncStats reports the outcome of an incremental sync.
type SyncStats struct {
	Indexed    int   `json:"indexed"`
	Unchanged  int   `json:"unchanged"`
	Skipped    int   `json:"skipped"`
	Removed    int   `json:"removed"`
	Failed     int   `json:"failed"`
	DurationMS int64 `json:"duration_ms"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithModelFactory replaces embedding.New as the model constructor.
func WithModelFactory(f ModelFactory) Option {
	return func(e *Engine) {
		e.newModel = f
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the time source used for metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine indexes notes and answers semantic queries. All methods are safe for
// concurrent use; they are serialised by an internal mutex.
type Engine struct {
	mu       sync.Mutex
	store    vectordb.Index
	source   Source
	newModel ModelFactory
	model    *embedding.Model // nil until first needed
	modelErr error            // sticky construction failure
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Engine over store and source. The embedding model is not
// built until an operation needs it.
func New(store vectordb.Index, source Source, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		source:   source,
		newModel: embedding.New,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) ensureModel() (*embedding.Model, error) {
	if e.model != nil {
		return e.model, nil
	}
	if e.modelErr != nil {
		return nil, e.modelErr
	}
	m, err := e.newModel()
	if err != nil {
		e.modelErr = fmt.Errorf("search: load embedding model: %w", err)
		return nil, e.modelErr
	}
	e.model = m
	return m, nil
}

// IndexAll indexes every note the source lists and drops stored notes whose
// gist is now empty. Individual note failures are logged and counted; they
// never abort the run.
func (e *Engine) IndexAll() (IndexingStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	var stats IndexingStats

	metas, err := e.source.List()
	if err != nil {
		return stats, fmt.Errorf("search: list notes: %w", err)
	}
	if _, err := e.ensureModel(); err != nil {
		return stats, err
	}

	for _, m := range metas {
		note, err := e.source.Load(m.Path)
		if err != nil {
			e.logger.Warn("search: load failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		ok, err := e.indexNote(note)
		switch {
		case err != nil:
			e.logger.Warn("search: index failed", slog.String("id", note.ID), slog.String("error", err.Error()))
			stats.Failed++
		case ok:
			stats.Indexed++
		default:
			// A note that lost its gist must not linger from an earlier run.
			if err := e.store.DeleteNote(note.ID); err != nil {
				e.logger.Warn("search: delete failed", slog.String("id", note.ID), slog.String("error", err.Error()))
				stats.Failed++
				continue
			}
			stats.Skipped++
		}
	}

	stats.DurationMS = time.Since(start).Milliseconds()

	if err := e.store.SetMeta(MetaIndexedCount, strconv.Itoa(stats.Indexed)); err != nil {
		return stats, fmt.Errorf("search: write meta: %w", err)
	}
	if err := e.store.SetMeta(MetaLastFullIndex, strconv.FormatInt(e.now().Unix(), 10)); err != nil {
		return stats, fmt.Errorf("search: write meta: %w", err)
	}

	e.logger.Info("search: index complete",
		slog.Int("indexed", stats.Indexed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Int64("duration_ms", stats.DurationMS))
	return stats, nil
}

// IndexNote embeds the note's gist and stores it. It reports false without
// touching the store when the note has no gist.
func (e *Engine) IndexNote(note *models.Note) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.indexNote(note)
}

func (e *Engine) indexNote(note *models.Note) (bool, error) {
	if !note.HasGist() {
		return false, nil
	}
	model, err := e.ensureModel()
	if err != nil {
		return false, err
	}
	rec := vectordb.NoteRecord{
		ID:     note.ID,
		Path:   note.Path,
		Title:  note.Title,
		Gist:   note.Gist,
		Type:   note.Type,
		Status: note.Status,
		Area:   note.Area,
		Tags:   note.Tags,
		MTime:  note.ModTime.Unix(),
	}
	if err := e.store.UpsertNote(rec, model.Embed(note.Gist)); err != nil {
		return false, fmt.Errorf("search: upsert %s: %w", note.ID, err)
	}
	return true, nil
}

// Sync brings the store in line with the source, re-embedding only notes whose
// mtime changed and removing notes that vanished or lost their gist.
func (e *Engine) Sync() (SyncStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	var stats SyncStats

	metas, err := e.source.List()
	if err != nil {
		return stats, fmt.Errorf("search: list notes: %w", err)
	}
	stored, err := e.store.AllMtimes()
	if err != nil {
		return stats, fmt.Errorf("search: load mtimes: %w", err)
	}

	seen := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		seen[m.ID] = struct{}{}

		mtime, indexed := stored[m.ID]
		if indexed && mtime == m.ModTime.Unix() {
			stats.Unchanged++
			continue
		}

		note, err := e.source.Load(m.Path)
		if err != nil {
			e.logger.Warn("search: load failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		ok, err := e.indexNote(note)
		switch {
		case err != nil:
			e.logger.Warn("search: index failed", slog.String("id", note.ID), slog.String("error", err.Error()))
			stats.Failed++
		case ok:
			e.logger.Debug("search: indexed", slog.String("id", note.ID))
			stats.Indexed++
		default:
			stats.Skipped++
			if indexed {
				if err := e.store.DeleteNote(m.ID); err != nil {
					e.logger.Warn("search: delete failed", slog.String("id", m.ID), slog.String("error", err.Error()))
					stats.Failed++
					continue
				}
				stats.Removed++
			}
		}
	}

	for id := range stored {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := e.store.DeleteNote(id); err != nil {
			e.logger.Warn("search: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			stats.Failed++
			continue
		}
		e.logger.Debug("search: removed stale", slog.String("id", id))
		stats.Removed++
	}

	stats.DurationMS = time.Since(start).Milliseconds()

	if err := e.store.SetMeta(MetaLastSync, strconv.FormatInt(e.now().Unix(), 10)); err != nil {
		return stats, fmt.Errorf("search: write meta: %w", err)
	}
	return stats, nil
}

// Remove deletes a note and its embedding from the store.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.DeleteNote(id); err != nil {
		return fmt.Errorf("search: remove %s: %w", id, err)
	}
	return nil
}

// Search embeds query and returns the k most similar stored notes.
func (e *Engine) Search(query string, k int) ([]Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	model, err := e.ensureModel()
	if err != nil {
		return nil, err
	}
	hits, err := e.store.Search(model.Embed(query), k)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	return toResults(hits), nil
}

// Related returns the k notes closest to the stored embedding of id,
// excluding the note itself.
func (e *Engine) Related(id string, k int) ([]Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vec, err := e.store.GetEmbedding(id)
	if err != nil {
		return nil, fmt.Errorf("search: related %s: %w", id, err)
	}
	if vec == nil {
		return nil, fmt.Errorf("%w: %s is not indexed", apperr.ErrNotFound, id)
	}
	if k <= 0 {
		return []Result{}, nil
	}

	hits, err := e.store.Search(vec, k+1)
	if err != nil {
		return nil, fmt.Errorf("search: related %s: %w", id, err)
	}
	out := make([]Result, 0, k)
	for _, r := range toResults(hits) {
		if r.ID == id {
			continue
		}
		if len(out) == k {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

// Stats returns the store statistics.
func (e *Engine) Stats() (vectordb.IndexStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Stats()
}

// Meta returns an index metadata value written by IndexAll or Sync.
func (e *Engine) Meta(key string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.GetMeta(key)
}

func toResults(hits []vectordb.Scored) []Result {
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{
			ID:    h.Note.ID,
			Path:  h.Note.Path,
			Title: h.Note.Title,
			Gist:  h.Note.Gist,
			Type:  h.Note.Type,
			Area:  h.Note.Area,
			Score: h.Score,
		}
	}
	return out
}
