package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/engine"
	"github.com/starford/quire/internal/models"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FS implements Provider backed by the local file system.
type FS struct{}

// NewFS creates a new FS provider.
func NewFS() *FS {
	return &FS{}
}

// EnsureDir creates path recursively. An existing directory is not an error.
func (f *FS) EnsureDir(path string) error {
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return apperr.IO(err, "create directory "+path)
	}
	return nil
}

// ReadText returns the content of path. Content that is not valid UTF-8 is
// reported as an I/O failure.
func (f *FS) ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperr.NotFound("file does not exist: %s", path)
		}
		return "", apperr.IO(err, "read "+path)
	}
	if !utf8.Valid(data) {
		return "", apperr.IO(fmt.Errorf("stream did not contain valid UTF-8"), "read "+path)
	}
	return string(data), nil
}

// WriteText atomically writes content: tmp file → fsync → rename. A
// symlinked note is written through to its target, and an existing file
// keeps its permission bits.
func (f *FS) WriteText(path, content string) error {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	perm := os.FileMode(filePerm)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".quire-tmp-*")
	if err != nil {
		return apperr.IO(err, "create temp file in "+dir)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return apperr.IO(err, "write temp file")
	}
	if err := tmp.Chmod(perm); err != nil {
		return apperr.IO(err, "chmod temp file")
	}
	if err := tmp.Sync(); err != nil {
		return apperr.IO(err, "fsync")
	}
	if err := tmp.Close(); err != nil {
		return apperr.IO(err, "close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return apperr.IO(err, "rename onto "+path)
	}
	success = true
	return nil
}

// Exists reports whether path exists.
func (f *FS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DiscoverNoteFiles walks root depth-first in lexical order and returns the
// path of every file the engine classifier recognizes. Symlinked directories
// are walked under their link path; a directory already on the walk (a link
// cycle) is skipped.
func (f *FS) DiscoverNoteFiles(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("directory does not exist: %s", root)
		}
		return nil, apperr.IO(err, "stat "+root)
	}
	var out []string
	if err := walkNotes(root, map[string]bool{}, &out); err != nil {
		return nil, apperr.IO(err, "walk "+root)
	}
	return out, nil
}

// walkNotes appends the notes under dir to out. active holds the resolved
// directories on the current descent.
func walkNotes(dir string, active map[string]bool, out *[]string) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if active[real] {
		return nil
	}
	active[real] = true
	defer delete(active, real)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, d := range entries {
		p := filepath.Join(dir, d.Name())
		isDir := d.IsDir()
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(p)
			if err != nil {
				// Dangling link.
				continue
			}
			isDir = info.IsDir()
		}
		if isDir {
			if err := walkNotes(p, active, out); err != nil {
				return err
			}
			continue
		}
		if _, ok := engine.FromPath(p); ok {
			*out = append(*out, p)
		}
	}
	return nil
}

// Summarize builds a NoteSummary for path. The modification time is best
// effort: stat failures and pre-epoch times leave it unset.
func (f *FS) Summarize(path string) (models.NoteSummary, error) {
	eng, ok := engine.FromPath(path)
	if !ok {
		return models.NoteSummary{}, apperr.InvalidInput("unsupported note extension: %s", path)
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if title == "" || title == "." || title == string(filepath.Separator) {
		title = "untitled"
	}

	s := models.NoteSummary{
		Path:   path,
		Title:  title,
		Engine: eng,
	}
	if info, err := os.Stat(path); err == nil {
		if mt := info.ModTime(); !mt.Before(time.Unix(0, 0)) {
			secs := mt.Unix()
			s.UpdatedAtUnix = &secs
		}
	}
	return s, nil
}

// Resolve joins rel onto root and rejects any result that escapes root
// (directory traversal) or an absolute rel.
func Resolve(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", apperr.IO(err, "resolve root")
	}
	if rel == "" {
		return "", apperr.InvalidInput("path is required")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", apperr.InvalidInput("absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(absRoot, cleaned)
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, absRoot+string(os.PathSeparator)) {
		return "", apperr.InvalidInput("path escapes vault root: %s", rel)
	}
	return abs, nil
}

// Rel converts an absolute path under root into a slash-separated
// root-relative one. Paths outside root are returned unchanged.
func Rel(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}

// Checksum returns the hex-encoded SHA-256 digest of content.
func Checksum(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
