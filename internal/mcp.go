package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/quire/internal/mcpserver"
)

// RunMCP serves the vault over MCP on stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise, since stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	if app.logOutput == os.Stdout {
		app.logOutput = os.Stderr
	}
	cfg := app.config

	logger := NewLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	a, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Vaults.OpenOrCreate(a.Root); err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	logger.Info("MCP server starting", slog.String("vault_path", a.Root))
	return mcpserver.New(a.Notes, a.Vaults, a.Root).ServeStdio()
}
