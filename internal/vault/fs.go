// Package vault reads notes from a Markdown vault on the local file system.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/vaultsearch/internal/apperr"
	"github.com/starford/vaultsearch/internal/models"
)

// ContentDirs are the vault folders that hold searchable notes.
var ContentDirs = []string{"Notes", "Projects", "Archive"}

// FS reads notes from a vault rooted at a directory.
type FS struct {
	root   string // absolute path to vault directory
	logger *slog.Logger
}

// NewFS creates a new FS rooted at the given directory.
// The directory must already exist.
func NewFS(root string, logger *slog.Logger) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{root: abs, logger: logger}, nil
}

// Root returns the absolute vault root.
func (f *FS) Root() string {
	return f.root
}

// ContentDirPaths returns the absolute paths of the content folders.
func (f *FS) ContentDirPaths() []string {
	out := make([]string, len(ContentDirs))
	for i, d := range ContentDirs {
		out[i] = filepath.Join(f.root, d)
	}
	return out
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: absolute path %s", apperr.ErrInvalidPath, rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s escapes vault root", apperr.ErrInvalidPath, rel)
	}
	return abs, nil
}

// List returns metadata for every .md file directly inside the content
// folders, sorted by id. Missing folders are skipped. Ids are unique: when two
// folders hold the same file name, the one in the earlier ContentDirs folder
// wins and the other is logged and left out.
func (f *FS) List() ([]models.NoteMetadata, error) {
	var out []models.NoteMetadata
	seen := make(map[string]string)
	for _, dir := range ContentDirs {
		entries, err := os.ReadDir(filepath.Join(f.root, dir))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("vault: list %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !IsNoteFile(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				f.logger.Warn("vault: stat failed", slog.String("path", e.Name()), slog.String("error", err.Error()))
				continue
			}
			id, path := NoteID(e.Name()), filepath.Join(dir, e.Name())
			if first, dup := seen[id]; dup {
				f.logger.Warn("vault: duplicate note id",
					slog.String("id", id),
					slog.String("path", path),
					slog.String("kept", first))
				continue
			}
			seen[id] = path
			out = append(out, models.NoteMetadata{
				ID:      id,
				Path:    path,
				ModTime: info.ModTime(),
			})
		}
	}
	slices.SortFunc(out, func(a, b models.NoteMetadata) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}
	return data, nil
}

// Load reads and parses the note at path (relative to the vault root).
func (f *FS) Load(path string) (*models.Note, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: stat %s: %w", path, err)
	}
	data, err := f.Read(path)
	if err != nil {
		return nil, err
	}
	note := Parse(path, data)
	note.ModTime = info.ModTime()
	return note, nil
}

// Collect loads every note in the vault. Notes that cannot be read are
// logged and skipped.
func (f *FS) Collect() ([]models.Note, error) {
	metas, err := f.List()
	if err != nil {
		return nil, err
	}
	out := make([]models.Note, 0, len(metas))
	for _, m := range metas {
		n, err := f.Load(m.Path)
		if err != nil {
			f.logger.Warn("vault: load failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

// Find returns the note whose id equals name, or failing that the first note
// whose path contains name.
func (f *FS) Find(name string) (*models.Note, error) {
	notes, err := f.Collect()
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if notes[i].ID == name {
			return &notes[i], nil
		}
	}
	for i := range notes {
		if strings.Contains(notes[i].Path, name) {
			return &notes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: note %s", apperr.ErrNotFound, name)
}

// RelPath converts an absolute path under the vault into a vault-relative one.
func (f *FS) RelPath(abs string) (string, error) {
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s is outside the vault", apperr.ErrInvalidPath, abs)
	}
	return rel, nil
}

// IsNoteFile reports whether name looks like a Markdown note.
func IsNoteFile(name string) bool {
	return strings.HasSuffix(name, ".md") && !strings.HasPrefix(name, ".")
}

// NoteID derives a note id from its file name: the name without extension.
func NoteID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
