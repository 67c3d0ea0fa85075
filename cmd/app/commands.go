package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/engine"
	"github.com/starford/quire/internal/storage"
)

// withApp runs fn against the configured vault. Logs go to stderr so stdout
// carries only command output.
func withApp(cmd *cli.Command, fn func(*internal.App) (any, error)) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)

	a, err := internal.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := fn(a)
	if err != nil {
		return err
	}
	return printJSON(cmd.Root().Writer, out)
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveNote turns a note argument into an absolute path inside root. The
// argument is vault-relative; an absolute path is accepted when it lies in
// the vault.
func resolveNote(root, arg string) (string, error) {
	if arg == "" {
		return "", apperr.InvalidInput("note path is required")
	}
	if filepath.IsAbs(arg) {
		rel, err := filepath.Rel(root, arg)
		if err != nil {
			return "", apperr.InvalidInput("path escapes vault root: %s", arg)
		}
		arg = rel
	}
	return storage.Resolve(root, arg)
}

func noteArg(cmd *cli.Command, a *internal.App) (string, error) {
	return resolveNote(a.Root, cmd.Args().First())
}

func openVault(_ context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(a *internal.App) (any, error) {
		return a.Vaults.OpenOrCreate(a.Root)
	})
}

func listNotes(_ context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(a *internal.App) (any, error) {
		return a.Vaults.ListNotes(a.Root)
	})
}

func createNote(ctx context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(a *internal.App) (any, error) {
		eng, err := engine.Parse(cmd.String("engine"))
		if err != nil {
			return nil, err
		}
		return a.Notes.CreateNote(ctx, a.Root, cmd.String("title"), eng)
	})
}

func readNote(ctx context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(a *internal.App) (any, error) {
		path, err := noteArg(cmd, a)
		if err != nil {
			return nil, err
		}
		return a.Notes.ReadNote(ctx, path)
	})
}

type saveOutput struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

func saveNote(ctx context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(a *internal.App) (any, error) {
		path, err := noteArg(cmd, a)
		if err != nil {
			return nil, err
		}
		reader := cmd.Root().Reader
		if reader == nil {
			reader = os.Stdin
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, apperr.IO(err, "read stdin")
		}
		ifMatch := strings.Trim(cmd.String("if-match"), `"`)
		sum, err := a.Notes.SaveNoteIfMatch(ctx, path, string(data), ifMatch)
		if err != nil {
			return nil, err
		}
		return saveOutput{Path: path, Checksum: sum}, nil
	})
}

type previewOutput struct {
	Path    string  `json:"path"`
	PDFPath *string `json:"pdf_path"`
}

func previewNote(_ context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(a *internal.App) (any, error) {
		path, err := noteArg(cmd, a)
		if err != nil {
			return nil, err
		}
		out := previewOutput{Path: path}
		if pdf, ok := a.Notes.ResolvePdfPreview(path); ok {
			out.PDFPath = &pdf
		}
		return out, nil
	})
}

func renderNote(ctx context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(a *internal.App) (any, error) {
		path, err := noteArg(cmd, a)
		if err != nil {
			return nil, err
		}
		return a.Notes.RenderToPdf(ctx, path)
	})
}

func renderHistory(ctx context.Context, cmd *cli.Command) error {
	return withApp(cmd, func(a *internal.App) (any, error) {
		var path string
		if cmd.Args().Present() {
			p, err := noteArg(cmd, a)
			if err != nil {
				return nil, err
			}
			path = p
		}
		limit := int(cmd.Int("limit"))
		if limit < 0 {
			return nil, apperr.InvalidInput("limit must not be negative")
		}
		entries, err := a.Notes.History(ctx, path, limit)
		if err != nil {
			return nil, fmt.Errorf("render history: %w", err)
		}
		return entries, nil
	})
}
