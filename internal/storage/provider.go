// Package storage is the filesystem adapter for vaults and notes.
package storage

import "github.com/starford/quire/internal/models"

// Provider is the interface for note file operations. Paths are absolute
// or relative to the process working directory; every error is classified
// with an apperr kind.
type Provider interface {
	// EnsureDir creates path and its parents if absent.
	EnsureDir(path string) error
	// ReadText returns the whole file as UTF-8 text.
	ReadText(path string) (string, error)
	// WriteText replaces the whole file with content.
	WriteText(path, content string) error
	// Exists reports whether path exists.
	Exists(path string) bool
	// DiscoverNoteFiles walks root and returns every note file beneath it.
	DiscoverNoteFiles(root string) ([]string, error)
	// Summarize builds the summary of the note at path.
	Summarize(path string) (models.NoteSummary, error)
}
