// Package noteservice creates, reads, saves and renders notes.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/engine"
	"github.com/starford/quire/internal/journal"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/vault"
)

// Renderer compiles a note into a PDF.
type Renderer interface {
	Render(ctx context.Context, notePath string) (*models.RenderResult, error)
}

// Journal stores the history of render runs.
type Journal interface {
	Record(e journal.Entry) error
	List(notePath string, limit int) ([]journal.Entry, error)
}

// Notifier receives render outcomes. status is journal.StatusOK or
// journal.StatusFailed.
type Notifier interface {
	PublishRenderEvent(status string, data any)
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records every render run in j.
func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithNotifier publishes render outcomes to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service coordinates storage and rendering of notes. It keeps no note state
// of its own; every call goes to the filesystem.
type Service struct {
	store    storage.Provider
	renderer Renderer
	journal  Journal
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a new note service.
func NewService(store storage.Provider, renderer Renderer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		renderer: renderer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNote writes a new note from the engine template into the vault's
// notes directory. The filename is the slugged title; on collision a numeric
// suffix starting at 2 is appended until the name is free.
func (s *Service) CreateNote(_ context.Context, vaultPath, title string, eng engine.Engine) (*models.NoteSummary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.InvalidInput("title must not be empty")
	}
	if !eng.Valid() {
		return nil, apperr.InvalidInput("unsupported engine: %s", eng)
	}
	notesDir := vault.NotesPath(vaultPath)
	if err := s.store.EnsureDir(notesDir); err != nil {
		return nil, err
	}

	slug := Slugify(title)
	ext := eng.Extension()
	candidate := filepath.Join(notesDir, slug+"."+ext)
	for i := 2; s.store.Exists(candidate); i++ {
		candidate = filepath.Join(notesDir, fmt.Sprintf("%s-%d.%s", slug, i, ext))
	}

	if err := s.store.WriteText(candidate, eng.Template(title)); err != nil {
		return nil, err
	}
	summary, err := s.store.Summarize(candidate)
	if err != nil {
		return nil, err
	}
	s.logger.Info("note created", slog.String("path", candidate), slog.String("engine", eng.String()))
	return &summary, nil
}

// ReadNote returns the note at path with its content and checksum.
func (s *Service) ReadNote(_ context.Context, path string) (*models.NoteDocument, error) {
	if !s.store.Exists(path) {
		return nil, apperr.NotFound("note does not exist: %s", path)
	}
	summary, err := s.store.Summarize(path)
	if err != nil {
		return nil, err
	}
	content, err := s.store.ReadText(path)
	if err != nil {
		return nil, err
	}
	return &models.NoteDocument{
		NoteSummary: summary,
		Content:     content,
		Checksum:    storage.Checksum(content),
	}, nil
}

// SaveNote replaces the content of an existing note. It never creates files.
func (s *Service) SaveNote(ctx context.Context, path, content string) error {
	_, err := s.SaveNoteIfMatch(ctx, path, content, "")
	return err
}

// SaveNoteIfMatch is SaveNote with optimistic concurrency: a non-empty
// checksum must match the current content. It returns the checksum of the
// saved content.
func (s *Service) SaveNoteIfMatch(_ context.Context, path, content, checksum string) (string, error) {
	if !s.store.Exists(path) {
		return "", apperr.NotFound("note does not exist: %s", path)
	}
	if checksum != "" {
		current, err := s.store.ReadText(path)
		if err != nil {
			return "", err
		}
		if storage.Checksum(current) != checksum {
			return "", apperr.Conflict("note changed since it was read: %s", path)
		}
	}
	if err := s.store.WriteText(path, content); err != nil {
		return "", err
	}
	s.logger.Debug("note saved", slog.String("path", path), slog.Int("bytes", len(content)))
	return storage.Checksum(content), nil
}

// ResolvePdfPreview returns the rendered PDF beside the note at path if it
// exists. It never renders.
func (s *Service) ResolvePdfPreview(path string) (string, bool) {
	pdf, ok := render.PDFPath(path)
	if !ok || !s.store.Exists(pdf) {
		return "", false
	}
	return pdf, true
}

// RenderToPdf renders the note at path. Runs that reached the compilers are
// recorded in the journal and published to the notifier whatever their
// outcome; failures to do either are logged only.
func (s *Service) RenderToPdf(ctx context.Context, path string) (*models.RenderResult, error) {
	res, err := s.renderer.Render(ctx, path)
	if res != nil {
		s.recordRun(res, err)
	}
	if err != nil {
		s.logger.Warn("render failed",
			slog.String("path", path),
			slog.String("kind", apperr.KindOf(err).String()),
			slog.String("error", err.Error()))
		return res, err
	}
	return res, nil
}

// History lists recorded render runs, newest first. Without a journal it is
// always empty.
func (s *Service) History(_ context.Context, notePath string, limit int) ([]journal.Entry, error) {
	if s.journal == nil {
		return []journal.Entry{}, nil
	}
	return s.journal.List(notePath, limit)
}

func (s *Service) recordRun(res *models.RenderResult, renderErr error) {
	e := journal.Entry{
		ID:        res.RunID,
		NotePath:  res.NotePath,
		Engine:    res.Engine.String(),
		PDFPath:   res.PDFPath,
		Status:    journal.StatusOK,
		Tools:     res.Tools,
		Pages:     res.Pages,
		Duration:  res.Duration,
		StartedAt: time.Now().Add(-res.Duration),
	}
	if renderErr != nil {
		e.Status = journal.StatusFailed
		e.ErrorKind = apperr.KindOf(renderErr).String()
		e.Message = renderErr.Error()
	}

	if s.journal != nil {
		if err := s.journal.Record(e); err != nil {
			s.logger.Error("journal record failed",
				slog.String("run_id", e.ID),
				slog.String("error", err.Error()))
		}
	}
	if s.notifier != nil {
		s.notifier.PublishRenderEvent(e.Status, e)
	}
}
