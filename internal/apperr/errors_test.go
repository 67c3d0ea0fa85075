package apperr

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindMatchesSentinel(t *testing.T) {
	cases := []struct {
		err  error
		want error
		kind Kind
	}{
		{NotFound("note %s", "a.tex"), ErrNotFound, KindNotFound},
		{InvalidInput("bad"), ErrInvalidInput, KindInvalidInput},
		{Conflict("stale"), ErrConflict, KindConflict},
		{IO(os.ErrPermission, "write"), ErrIO, KindIO},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.want) {
			t.Errorf("%v: errors.Is(%v) = false", c.err, c.want)
		}
		if got := KindOf(c.err); got != c.kind {
			t.Errorf("KindOf(%v) = %v, want %v", c.err, got, c.kind)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("render: %w", NotFound("pdf missing"))
	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %v, want not_found", KindOf(err))
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("wrapped error should match ErrNotFound")
	}
}

func TestIOKeepsCause(t *testing.T) {
	err := IO(os.ErrPermission, "write note")
	if !errors.Is(err, os.ErrPermission) {
		t.Error("cause should be reachable through errors.Is")
	}
	if got, want := err.Error(), "I/O error: write note: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnclassifiedIsIO(t *testing.T) {
	if KindOf(errors.New("boom")) != KindIO {
		t.Error("plain errors should classify as io")
	}
	if KindOf(nil) != 0 {
		t.Error("nil error should have zero kind")
	}
}

func TestMessages(t *testing.T) {
	if got := NotFound("note does not exist: %s", "/v/a.tex").Error(); got != "not found: note does not exist: /v/a.tex" {
		t.Errorf("got %q", got)
	}
	if got := InvalidInput("title must not be empty").Error(); got != "invalid input: title must not be empty" {
		t.Errorf("got %q", got)
	}
}
