package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/starford/quire/internal/journal"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/vault"
)

// App bundles the services shared by the server, the MCP server and the CLI.
type App struct {
	Config *Config
	// Root is the absolute vault root.
	Root   string
	Vaults *vault.Manager
	Notes  *noteservice.Service

	journal *journal.DB
}

// NewLogger returns the JSON logger used by every entry point.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Open wires storage, rendering and the optional journal for cfg. The vault
// itself is not created; callers that need it use Vaults.OpenOrCreate.
func Open(cfg *Config, logger *slog.Logger, opts ...noteservice.Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	root, err := filepath.Abs(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve vault path: %w", err)
	}

	store := storage.NewFS()
	orchestrator := render.NewOrchestrator(store, render.NewExecRunner(logger),
		render.WithTools(render.Tools{
			Typst:    cfg.Render.Typst,
			Latexmk:  cfg.Render.Latexmk,
			Pdflatex: cfg.Render.Pdflatex,
		}),
		render.WithTimeout(cfg.Render.Timeout),
		render.WithLogger(logger),
	)

	app := &App{
		Config: cfg,
		Root:   root,
		Vaults: vault.NewManager(store),
	}

	svcOpts := []noteservice.Option{noteservice.WithLogger(logger)}
	if cfg.Journal.Enabled() {
		db, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		app.journal = db
		svcOpts = append(svcOpts, noteservice.WithJournal(db))
	}
	svcOpts = append(svcOpts, opts...)

	app.Notes = noteservice.NewService(store, orchestrator, svcOpts...)
	return app, nil
}

// Close releases the journal, if any.
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}
