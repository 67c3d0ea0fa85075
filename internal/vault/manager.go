// Package vault opens vault directories and lists the notes they contain.
package vault

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// NotesDir is the vault subdirectory that holds notes.
const NotesDir = "notes"

// NotesPath returns the notes directory of the vault at root.
func NotesPath(root string) string {
	return filepath.Join(root, NotesDir)
}

// Manager opens vaults and lists their notes. It holds no state besides
// the storage provider; every call re-reads the filesystem.
type Manager struct {
	store storage.Provider
}

// NewManager creates a vault manager.
func NewManager(store storage.Provider) *Manager {
	return &Manager{store: store}
}

// OpenOrCreate ensures the vault root and its notes directory exist and
// returns a snapshot of the vault.
func (m *Manager) OpenOrCreate(path string) (*models.VaultInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperr.InvalidInput("vault path must not be empty")
	}
	if err := m.store.EnsureDir(path); err != nil {
		return nil, err
	}
	if err := m.store.EnsureDir(NotesPath(path)); err != nil {
		return nil, err
	}

	notes, err := m.ListNotes(path)
	if err != nil {
		return nil, err
	}
	return &models.VaultInfo{
		RootPath:  path,
		NoteCount: len(notes),
	}, nil
}

// Ready reports whether the vault at path and its notes directory exist.
func (m *Manager) Ready(path string) bool {
	return m.store.Exists(path) && m.store.Exists(NotesPath(path))
}

// ListNotes returns every note under the vault's notes directory, most
// recently modified first. The sort is stable: notes with equal or absent
// timestamps keep discovery order, absent timestamps sorting as oldest.
func (m *Manager) ListNotes(vaultPath string) ([]models.NoteSummary, error) {
	if !m.store.Exists(vaultPath) {
		return nil, apperr.NotFound("vault does not exist: %s", vaultPath)
	}
	notesDir := NotesPath(vaultPath)
	if err := m.store.EnsureDir(notesDir); err != nil {
		return nil, err
	}

	paths, err := m.store.DiscoverNoteFiles(notesDir)
	if err != nil {
		return nil, err
	}
	notes := make([]models.NoteSummary, 0, len(paths))
	for _, p := range paths {
		s, err := m.store.Summarize(p)
		if err != nil {
			return nil, err
		}
		notes = append(notes, s)
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt() > notes[j].UpdatedAt()
	})
	return notes, nil
}
