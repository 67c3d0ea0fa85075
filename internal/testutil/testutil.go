// Package testutil provides shared test helpers for setting up vaults, journals
// and a compiler-free renderer.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/engine"
	"github.com/starford/quire/internal/journal"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/vault"
)

// TestJournal creates a temporary render journal that is automatically cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quire-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault with its notes directory and returns
// the root together with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(vault.NotesPath(root), 0o755); err != nil {
		t.Fatal(err)
	}
	return root, storage.NewFS()
}

// WriteNote writes content to rel under the vault root, creating parent
// directories, and returns the absolute path.
func WriteNote(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// StubRenderer stands in for the external compilers. It checks the same
// preconditions as the real orchestrator, then either fails with Err or
// writes a placeholder PDF beside the note.
type StubRenderer struct {
	Err error

	mu    sync.Mutex
	calls []string
}

// Render implements noteservice.Renderer.
func (s *StubRenderer) Render(_ context.Context, notePath string) (*models.RenderResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, notePath)
	s.mu.Unlock()

	if _, err := os.Stat(notePath); err != nil {
		return nil, apperr.NotFound("note does not exist: %s", notePath)
	}
	eng, ok := engine.FromPath(notePath)
	if !ok {
		return nil, apperr.InvalidInput("unsupported note extension for render: %s", notePath)
	}
	pdf, _ := render.PDFPath(notePath)
	res := &models.RenderResult{
		RunID:    uuid.NewString(),
		NotePath: notePath,
		PDFPath:  pdf,
		Engine:   eng,
		Tools:    []string{"stub"},
	}
	if s.Err != nil {
		return res, s.Err
	}
	if err := os.WriteFile(pdf, []byte("%PDF-1.4\n%%EOF\n"), 0o644); err != nil {
		return res, apperr.IO(err, "write pdf")
	}
	res.Pages = 1
	return res, nil
}

// Calls returns the note paths rendered so far.
func (s *StubRenderer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
