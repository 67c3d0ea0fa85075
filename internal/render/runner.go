package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrToolNotFound is returned by a Runner when the executable cannot be
// located. It is distinct from an executable that ran and failed.
var ErrToolNotFound = errors.New("executable not found")

const waitDelay = 2 * time.Second

// Output is the captured result of a process that ran to completion.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	// Status is the human-readable exit status, e.g. "exit status 1".
	Status string
}

// Success reports whether the process exited with code zero.
func (o Output) Success() bool {
	return o.ExitCode == 0
}

// Runner executes external programs. A process that starts and exits with a
// nonzero code is not an error: it is reported through Output. Errors are
// reserved for processes that could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
}

// ExecRunner runs programs with os/exec, inheriting the environment and
// permissions of the current process.
type ExecRunner struct {
	Logger *slog.Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

// Run executes name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	if r.Logger != nil {
		r.Logger.Debug("executing tool", slog.String("tool", name), slog.String("args", strings.Join(args, " ")))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that outlive a cancelled tool must not hold the pipes open.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		out.Status = cmd.ProcessState.String()
		return out, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, fmt.Errorf("%s interrupted: %w", name, ctxErr)
		}
		out.ExitCode = exitErr.ExitCode()
		out.Status = exitErr.ProcessState.String()
		return out, nil
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return out, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}
	return out, fmt.Errorf("spawn %s: %w", name, err)
}
