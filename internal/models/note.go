// Package models defines the domain types for quire.
package models

import (
	"time"

	"github.com/starford/quire/internal/engine"
)

// NoteSummary describes one note file. It is recomputed on every listing.
type NoteSummary struct {
	Path          string        `json:"path"`
	Title         string        `json:"title"`
	Engine        engine.Engine `json:"engine"`
	UpdatedAtUnix *int64        `json:"updated_at_unix"`
}

// UpdatedAt returns the modification time in seconds, 0 when unknown.
func (s NoteSummary) UpdatedAt() int64 {
	if s.UpdatedAtUnix == nil {
		return 0
	}
	return *s.UpdatedAtUnix
}

// NoteDocument is a note summary plus its full content.
type NoteDocument struct {
	NoteSummary
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

// VaultInfo is a snapshot of a vault at query time.
type VaultInfo struct {
	RootPath  string `json:"root_path"`
	NoteCount int    `json:"note_count"`
}

// RenderResult describes a successful render.
type RenderResult struct {
	RunID    string        `json:"run_id"`
	NotePath string        `json:"note_path"`
	PDFPath  string        `json:"pdf_path"`
	Engine   engine.Engine `json:"engine"`
	Tools    []string      `json:"tools"`
	Pages    int           `json:"pages"`
	Duration time.Duration `json:"duration"`
}
