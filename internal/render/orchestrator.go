// Package render turns notes into PDFs by driving external compilers.
//
// Typst notes are compiled with a single "typst compile" invocation. LaTeX
// notes go through latexmk when it is installed and fall back to two
// pdflatex passes when it is not; latexmk being present but failing is fatal.
// Whatever the chain, a render only succeeds if the expected PDF exists
// afterwards.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/engine"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// ErrOutputMissing marks a chain that exited cleanly without producing the
// expected PDF. It is always wrapped in a not-found error.
var ErrOutputMissing = errors.New("render finished but pdf not found")

// Tools names the external executables used for rendering.
type Tools struct {
	Typst    string
	Latexmk  string
	Pdflatex string
}

// DefaultTools returns the executable names resolved through PATH.
func DefaultTools() Tools {
	return Tools{
		Typst:    "typst",
		Latexmk:  "latexmk",
		Pdflatex: "pdflatex",
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTools overrides the executable names. Empty fields keep their defaults.
func WithTools(t Tools) Option {
	return func(o *Orchestrator) {
		if t.Typst != "" {
			o.tools.Typst = t.Typst
		}
		if t.Latexmk != "" {
			o.tools.Latexmk = t.Latexmk
		}
		if t.Pdflatex != "" {
			o.tools.Pdflatex = t.Pdflatex
		}
	}
}

// WithTimeout bounds a whole render chain. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// Orchestrator renders notes to PDF.
type Orchestrator struct {
	store   storage.Provider
	runner  Runner
	tools   Tools
	timeout time.Duration
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator that checks files through store
// and runs compilers through runner.
func NewOrchestrator(store storage.Provider, runner Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		runner: runner,
		tools:  DefaultTools(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PDFPath returns the fixed output location for the note at notePath: a
// sibling file with the same stem and a .pdf extension. ok is false when the
// path has no usable stem.
func PDFPath(notePath string) (pdf string, ok bool) {
	base := filepath.Base(notePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "", false
	}
	return filepath.Join(filepath.Dir(notePath), stem+".pdf"), true
}

// Render compiles the note at notePath and returns the produced PDF. When a
// tool fails, the partial result is returned alongside the error.
func (o *Orchestrator) Render(ctx context.Context, notePath string) (*models.RenderResult, error) {
	if !o.store.Exists(notePath) {
		return nil, apperr.NotFound("note does not exist: %s", notePath)
	}
	eng, ok := engine.FromPath(notePath)
	if !ok {
		return nil, apperr.InvalidInput("unsupported note extension for render: %s", notePath)
	}
	pdfPath, ok := PDFPath(notePath)
	if !ok {
		return nil, apperr.InvalidInput("failed to resolve file stem: %s", notePath)
	}
	parent := filepath.Dir(notePath)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res := &models.RenderResult{
		RunID:    uuid.NewString(),
		NotePath: notePath,
		PDFPath:  pdfPath,
		Engine:   eng,
	}
	start := time.Now()

	var err error
	switch eng {
	case engine.Typst:
		err = o.run(ctx, res, false, o.tools.Typst, "compile", notePath, pdfPath)
	case engine.Latex:
		err = o.renderLatex(ctx, res, notePath, parent)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	if !o.store.Exists(pdfPath) {
		return res, &apperr.Error{Kind: apperr.KindNotFound, Msg: pdfPath, Err: ErrOutputMissing}
	}
	res.Pages = PageCount(pdfPath)

	o.logger.Info("note rendered",
		slog.String("run_id", res.RunID),
		slog.String("note", notePath),
		slog.String("engine", eng.String()),
		slog.Int("pages", res.Pages),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (o *Orchestrator) renderLatex(ctx context.Context, res *models.RenderResult, note, outDir string) error {
	err := o.run(ctx, res, true, o.tools.Latexmk,
		"-pdf", "-interaction=nonstopmode", "-halt-on-error", "-outdir", outDir, note)
	if !errors.Is(err, ErrToolNotFound) {
		return err
	}

	o.logger.Info("latexmk not found, falling back to pdflatex", slog.String("note", note))
	// A second pass resolves references and labels written by the first.
	for pass := 0; pass < 2; pass++ {
		if err := o.run(ctx, res, false, o.tools.Pdflatex,
			"-interaction=nonstopmode", "-halt-on-error", "-output-directory", outDir, note); err != nil {
			return err
		}
	}
	return nil
}

// run invokes tool and classifies the outcome. With allowMissing, an absent
// executable is returned as ErrToolNotFound instead of an invalid-input error.
func (o *Orchestrator) run(ctx context.Context, res *models.RenderResult, allowMissing bool, tool string, args ...string) error {
	out, err := o.runner.Run(ctx, tool, args...)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			if allowMissing {
				return ErrToolNotFound
			}
			return apperr.InvalidInput("%s is not installed or not in PATH", tool)
		}
		return apperr.IO(err, "run "+tool)
	}
	res.Tools = append(res.Tools, tool)
	if out.Success() {
		return nil
	}
	return apperr.InvalidInput("%s", failureMessage(tool, out))
}

func failureMessage(tool string, out Output) string {
	details := strings.TrimSpace(string(out.Stderr))
	if details == "" {
		details = strings.TrimSpace(string(out.Stdout))
	}
	if details == "" {
		status := out.Status
		if status == "" {
			status = fmt.Sprintf("exit status %d", out.ExitCode)
		}
		return fmt.Sprintf("%s exited with %s", tool, status)
	}
	return fmt.Sprintf("%s failed: %s", tool, details)
}
