package api

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/engine"
	"github.com/starford/quire/internal/journal"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title  string `json:"title" example:"Midterm Notes" validate:"required"`
	Engine string `json:"engine" example:"typst" validate:"required"`
}

// Validate checks the request fields.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.By(notBlank)),
		validation.Field(&r.Engine, validation.Required, validation.By(knownEngine)),
	)
}

// UpdateNoteRequest is the request body for saving a note. Content may be
// empty but must be present.
type UpdateNoteRequest struct {
	Content *string `json:"content" example:"= Updated" validate:"required"`
}

// Validate checks the request fields.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

func notBlank(v any) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

func knownEngine(v any) error {
	s, _ := v.(string)
	if _, err := engine.Parse(s); err != nil {
		return errors.New("must be latex or typst")
	}
	return nil
}

// NoteSummary is a note in list responses. Path is relative to the vault root.
type NoteSummary struct {
	Path          string        `json:"path" example:"notes/midterm-notes.typ" validate:"required"`
	Title         string        `json:"title" example:"midterm-notes" validate:"required"`
	Engine        engine.Engine `json:"engine" example:"typst" validate:"required"`
	UpdatedAtUnix *int64        `json:"updated_at_unix" example:"1718000000"`
}

// NoteDocument is a note with its content.
type NoteDocument struct {
	NoteSummary
	Content  string `json:"content" validate:"required"`
	Checksum string `json:"checksum" example:"9f86d08..." validate:"required"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteSummary `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SaveNoteResponse is returned after a successful save.
type SaveNoteResponse struct {
	Path     string `json:"path" validate:"required"`
	Checksum string `json:"checksum" validate:"required"`
}

// PreviewResponse reports the rendered PDF of a note, if any.
type PreviewResponse struct {
	Path    string  `json:"path" validate:"required"`
	PDFPath *string `json:"pdf_path"`
}

// RenderResponse describes a completed render.
type RenderResponse struct {
	RunID      string        `json:"run_id" validate:"required"`
	Path       string        `json:"path" validate:"required"`
	PDFPath    string        `json:"pdf_path" example:"notes/midterm-notes.pdf" validate:"required"`
	Engine     engine.Engine `json:"engine" validate:"required"`
	Tools      []string      `json:"tools" validate:"required"`
	Pages      int           `json:"pages"`
	DurationMS int64         `json:"duration_ms"`
}

// RenderEntry is one journal record with vault-relative paths.
type RenderEntry struct {
	ID         string   `json:"id"`
	Path       string   `json:"path"`
	Engine     string   `json:"engine"`
	PDFPath    string   `json:"pdf_path"`
	Status     string   `json:"status" example:"ok"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Message    string   `json:"message,omitempty"`
	Tools      []string `json:"tools"`
	Pages      int      `json:"pages"`
	DurationMS int64    `json:"duration_ms"`
	StartedAt  string   `json:"started_at" example:"2024-06-10T08:00:00Z"`
}

// RenderListResponse wraps journal listings.
type RenderListResponse struct {
	Renders []RenderEntry `json:"renders" validate:"required"`
}

// VaultResponse describes the served vault.
type VaultResponse struct {
	RootPath  string `json:"root_path" validate:"required"`
	NoteCount int    `json:"note_count"`
}

func toSummary(root string, s models.NoteSummary) NoteSummary {
	return NoteSummary{
		Path:          storage.Rel(root, s.Path),
		Title:         s.Title,
		Engine:        s.Engine,
		UpdatedAtUnix: s.UpdatedAtUnix,
	}
}

func toRenderResponse(root string, res *models.RenderResult) RenderResponse {
	tools := res.Tools
	if tools == nil {
		tools = []string{}
	}
	return RenderResponse{
		RunID:      res.RunID,
		Path:       storage.Rel(root, res.NotePath),
		PDFPath:    storage.Rel(root, res.PDFPath),
		Engine:     res.Engine,
		Tools:      tools,
		Pages:      res.Pages,
		DurationMS: res.Duration.Milliseconds(),
	}
}

func toRenderEntry(root string, e journal.Entry) RenderEntry {
	return RenderEntry{
		ID:         e.ID,
		Path:       storage.Rel(root, e.NotePath),
		Engine:     e.Engine,
		PDFPath:    storage.Rel(root, e.PDFPath),
		Status:     e.Status,
		ErrorKind:  e.ErrorKind,
		Message:    e.Message,
		Tools:      e.Tools,
		Pages:      e.Pages,
		DurationMS: e.Duration.Milliseconds(),
		StartedAt:  e.StartedAt.UTC().Format(time.RFC3339),
	}
}
