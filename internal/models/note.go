// Package models defines the domain types shared between the vault and the search engine.
package models

import "time"

// Note is a parsed Markdown note from the vault.
type Note struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Title   string    `json:"title"`
	Gist    string    `json:"gist,omitempty"`
	Type    string    `json:"type,omitempty"`
	Status  string    `json:"status,omitempty"`
	Area    string    `json:"area,omitempty"`
	Tags    []string  `json:"tags"`
	Body    string    `json:"-"`
	ModTime time.Time `json:"modified"`
}

// HasGist reports whether the note carries a usable summary.
func (n *Note) HasGist() bool {
	return n.Gist != ""
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"modified"`
}
