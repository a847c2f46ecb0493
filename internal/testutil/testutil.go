// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/vaultsearch/internal/vault"
	"github.com/starford/vaultsearch/internal/vectordb"
)

// TestDB creates a temporary SQLite vector store that is automatically cleaned up.
func TestDB(t *testing.T) *vectordb.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vaultsearch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			os.Remove(dbFile.Name() + suffix)
		}
	})

	db, err := vectordb.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with its Notes folder.
func TestVault(t *testing.T) (string, *vault.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(vaultDir, "Notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	fs, err := vault.NewFS(vaultDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, fs
}

// NoteFields are the frontmatter values written by WriteNote.
type NoteFields struct {
	Gist string
	Type string
	Area string
	Tags []string
}

// Render returns a Markdown document with the fields as YAML frontmatter.
func (f NoteFields) Render() string {
	var b strings.Builder
	b.WriteString("---\n")
	if f.Type != "" {
		fmt.Fprintf(&b, "type: %s\n", f.Type)
	}
	if f.Area != "" {
		fmt.Fprintf(&b, "area: %s\n", f.Area)
	}
	if f.Gist != "" {
		fmt.Fprintf(&b, "gist: %q\n", f.Gist)
	}
	if len(f.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(f.Tags, ", "))
	}
	b.WriteString("---\n\nBody.\n")
	return b.String()
}

// WriteNote writes a note to rel (relative to vaultDir) and returns its
// absolute path.
func WriteNote(t *testing.T, vaultDir, rel string, f NoteFields) string {
	t.Helper()
	abs := filepath.Join(vaultDir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(f.Render()), 0o644); err != nil {
		t.Fatal(err)
	}
	return abs
}

// Touch sets the modification time of path.
func Touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}
