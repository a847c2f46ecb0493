// Package watcher keeps the search index in step with the vault while the
// application runs.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vaultsearch/internal/apperr"
	"github.com/starford/vaultsearch/internal/models"
	"github.com/starford/vaultsearch/internal/search"
	"github.com/starford/vaultsearch/internal/vault"
)

// DefaultDebounce is the delay before a reconcile pass runs after a removal.
const DefaultDebounce = 200 * time.Millisecond

// Indexer is the part of the search engine the watcher drives.
type Indexer interface {
	IndexNote(note *models.Note) (bool, error)
	Remove(id string) error
	Sync() (search.SyncStats, error)
}

// EventCallback is called after a watcher-driven index change.
// kind is one of "indexed", "deleted" or "reconciled"; id is empty for
// "reconciled".
type EventCallback func(kind string, id string)

var _ Indexer = (*search.Engine)(nil)

// Watch starts an fsnotify watcher on the vault content folders and keeps idx
// current until ctx is cancelled.
//
// The vault root is watched too, so a content folder created at runtime is
// picked up. Removals and renames delete the old entry immediately and
// schedule a debounced Sync to pick up the new name.
func Watch(ctx context.Context, idx Indexer, fs *vault.FS, debounce time.Duration, logger *slog.Logger, cb EventCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(fs.Root()); err != nil {
		return err
	}
	for _, dir := range fs.ContentDirPaths() {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			if err := w.Add(dir); err != nil {
				return err
			}
		}
	}

	logger.Info("watcher: started", slog.String("root", fs.Root()))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(debounce)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(idx, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 && slices.Contains(fs.ContentDirPaths(), ev.Name) {
				if err := w.Add(ev.Name); err != nil {
					logger.Warn("watcher: add content dir failed",
						slog.String("path", ev.Name),
						slog.String("error", err.Error()))
				} else {
					logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
				}
				scheduleReconcile()
				continue
			}

			rel, ok := contentNote(fs, ev.Name)
			if !ok {
				continue
			}
			id := vault.NoteID(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				handleChange(idx, fs, rel, logger, cb)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new name arrives
				// as a Create if it stays inside a watched folder.
				if err := idx.Remove(id); err != nil {
					logger.Warn("watcher: delete failed", slog.String("id", id), slog.String("error", err.Error()))
				} else {
					logger.Debug("watcher: deleted", slog.String("id", id))
					if cb != nil {
						cb("deleted", id)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// contentNote reports whether abs is a Markdown note directly inside a
// content folder and returns its vault-relative path.
func contentNote(fs *vault.FS, abs string) (string, bool) {
	if !vault.IsNoteFile(filepath.Base(abs)) {
		return "", false
	}
	rel, err := fs.RelPath(abs)
	if err != nil {
		return "", false
	}
	return rel, slices.Contains(vault.ContentDirs, filepath.Dir(rel))
}

func handleChange(idx Indexer, fs *vault.FS, rel string, logger *slog.Logger, cb EventCallback) {
	note, err := fs.Load(rel)
	if errors.Is(err, apperr.ErrNotFound) {
		// Already gone; the Remove event will follow.
		return
	}
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	indexed, err := idx.IndexNote(note)
	if err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if !indexed {
		if err := idx.Remove(note.ID); err != nil {
			logger.Warn("watcher: delete failed", slog.String("id", note.ID), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: gist removed", slog.String("id", note.ID))
		if cb != nil {
			cb("deleted", note.ID)
		}
		return
	}

	logger.Debug("watcher: indexed", slog.String("id", note.ID))
	if cb != nil {
		cb("indexed", note.ID)
	}
}

func reconcile(idx Indexer, logger *slog.Logger, cb EventCallback) {
	stats, err := idx.Sync()
	if err != nil {
		logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
		return
	}
	logger.Debug("reconcile: done",
		slog.Int("indexed", stats.Indexed),
		slog.Int("removed", stats.Removed),
		slog.Int("failed", stats.Failed))
	if cb != nil {
		cb("reconciled", "")
	}
}
