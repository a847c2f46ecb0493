package vault

import (
	"github.com/starford/vaultsearch/internal/models"
)

// Parse builds a Note from the raw bytes of the file at path. It never
// fails: content without frontmatter yields a note with only id, path,
// title and body set. ModTime is left for the caller.
func Parse(path string, data []byte) *models.Note {
	fm, body := ParseFrontmatter(data)
	id := NoteID(path)

	n := &models.Note{
		ID:    id,
		Path:  path,
		Title: id,
		Tags:  []string{},
		Body:  body,
	}
	if fm == nil {
		return n
	}
	if fm.Title != "" {
		n.Title = fm.Title
	}
	n.Gist = fm.Gist
	n.Type = fm.Type
	n.Status = fm.Status
	n.Area = fm.Area
	if len(fm.Tags) > 0 {
		n.Tags = []string(fm.Tags)
	}
	return n
}
