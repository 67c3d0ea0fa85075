package render

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerMissingTool(t *testing.T) {
	r := NewExecRunner(nil)
	_, err := r.Run(context.Background(), "quire-no-such-tool-4f2a")
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestExecRunnerMissingAbsolutePath(t *testing.T) {
	r := NewExecRunner(nil)
	_, err := r.Run(context.Background(), "/nonexistent/bin/typst", "compile")
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	requireSh(t)
	out, err := NewExecRunner(nil).Run(context.Background(), "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Success() || strings.TrimSpace(string(out.Stdout)) != "hello" {
		t.Errorf("out = %+v", out)
	}
}

func TestExecRunnerNonzeroExitIsNotAnError(t *testing.T) {
	requireSh(t)
	out, err := NewExecRunner(nil).Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Success() || out.ExitCode != 3 {
		t.Errorf("exit code = %d", out.ExitCode)
	}
	if strings.TrimSpace(string(out.Stderr)) != "oops" {
		t.Errorf("stderr = %q", out.Stderr)
	}
	if out.Status != "exit status 3" {
		t.Errorf("status = %q", out.Status)
	}
}

func TestExecRunnerContextTimeout(t *testing.T) {
	requireSh(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewExecRunner(nil).Run(ctx, "sh", "-c", "exec sleep 5")
	if err == nil || errors.Is(err, ErrToolNotFound) {
		t.Errorf("err = %v, want interruption error", err)
	}
}
