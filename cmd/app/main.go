package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	"github.com/starford/quire/internal/apperr"
	pkgconfig "github.com/starford/quire/pkg/config"
)

// loadConfig reads the config file named by --config and applies --vault.
// A missing file is only an error when required is set.
func loadConfig(cmd *cli.Command, required bool) (*internal.Config, error) {
	configPath := cmd.String("config")
	vaultPath := cmd.String("vault")

	override := func(c *internal.Config) {
		if vaultPath != "" {
			c.Vault.Path = vaultPath
		}
	}

	cfg := internal.NewDefaultConfig()
	if required {
		if err := pkgconfig.Load(configPath, cfg, override); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if _, err := pkgconfig.LoadOptional(configPath, cfg, override); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// exitCode maps an error to the process exit status by its kind.
func exitCode(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		return 2
	case apperr.KindNotFound:
		return 3
	case apperr.KindConflict:
		return 4
	}
	return 1
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "quire",
		Usage: "Local vault of LaTeX and Typst notes with PDF rendering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("QUIRE_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory, overrides vault.path",
				Sources: cli.EnvVars("QUIRE_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and event stream",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "open",
				Usage:  "Create the vault if needed and describe it",
				Action: openVault,
			},
			{
				Name:   "list",
				Usage:  "List notes, most recently modified first",
				Action: listNotes,
			},
			{
				Name:  "new",
				Usage: "Create a note from the engine template",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Note title", Required: true},
					&cli.StringFlag{Name: "engine", Aliases: []string{"e"}, Usage: "latex or typst", Value: "typst"},
				},
				Action: createNote,
			},
			{
				Name:      "read",
				Usage:     "Print a note with its checksum",
				ArgsUsage: "<note>",
				Action:    readNote,
			},
			{
				Name:      "save",
				Usage:     "Replace a note's content with stdin",
				ArgsUsage: "<note>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "if-match", Usage: "Only save if the note still has this checksum"},
				},
				Action: saveNote,
			},
			{
				Name:      "preview",
				Usage:     "Show the rendered PDF of a note, if any",
				ArgsUsage: "<note>",
				Action:    previewNote,
			},
			{
				Name:      "render",
				Usage:     "Render a note to PDF",
				ArgsUsage: "<note>",
				Action:    renderNote,
			},
			{
				Name:      "history",
				Usage:     "Show recorded render runs, newest first",
				ArgsUsage: "[note]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Max entries", Value: 20},
				},
				Action: renderHistory,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error",
			slog.String("error", err.Error()),
			slog.String("kind", apperr.KindOf(err).String()))
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}
		os.Exit(exitCode(err))
	}
}
