// Package engine classifies notes by markup engine.
package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// Engine is the markup dialect a note is written in.
type Engine int

const (
	Latex Engine = iota + 1
	Typst
)

// All lists every engine in a fixed order.
var All = []Engine{Latex, Typst}

// Valid reports whether e is one of the known engines.
func (e Engine) Valid() bool {
	return e == Latex || e == Typst
}

// Extension returns the storage extension without the leading dot.
func (e Engine) Extension() string {
	switch e {
	case Latex:
		return "tex"
	case Typst:
		return "typ"
	}
	panic(fmt.Sprintf("engine: unknown engine %d", int(e)))
}

// String returns the engine name accepted by Parse.
func (e Engine) String() string {
	switch e {
	case Latex:
		return "latex"
	case Typst:
		return "typst"
	}
	return fmt.Sprintf("engine(%d)", int(e))
}

// MarshalText encodes the engine by name.
func (e Engine) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("engine: cannot marshal %d", int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText decodes an engine name.
func (e *Engine) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// FromPath classifies path by its extension. ok is false for anything that
// is not a note. A leading dot marks a hidden file, not an extension.
func FromPath(path string) (e Engine, ok bool) {
	base := filepath.Base(path)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return 0, false
	}
	switch strings.ToLower(base[dot+1:]) {
	case "tex":
		return Latex, true
	case "typ":
		return Typst, true
	}
	return 0, false
}

// Parse reads a user-supplied engine name.
func Parse(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "latex":
		return Latex, nil
	case "typst":
		return Typst, nil
	}
	return 0, apperr.InvalidInput("unsupported engine: %s", name)
}
