// Package watch reports note file changes under a vault's notes directory.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quire/internal/engine"
)

// Event kinds passed to the callback.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// DefaultDebounce is how long a path must stay quiet before its event is delivered.
const DefaultDebounce = 200 * time.Millisecond

// EventCallback is called once per debounced note change with an absolute path.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on root and reports changes to note files
// until ctx is cancelled. New directories created at runtime are added to the
// watch list and any notes already inside them are reported as created.
//
// Editors tend to emit several events per save; events for the same path are
// merged and delivered after debounce of quiet time. A create followed by
// writes is still reported as created.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, cb EventCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// Atomic saves replace the file, which fsnotify reports as Create.
	// Known paths turn such creates back into updates.
	known := make(map[string]struct{})
	for _, p := range notesIn(root) {
		known[p] = struct{}{}
	}

	pending := make(map[string]string)
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	queue := func(kind, path string) {
		if prev, ok := pending[path]; ok && prev == Created && kind == Updated {
			kind = Created
		}
		pending[path] = kind
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			flushTimer, flushCh = nil, nil
			batch := pending
			pending = make(map[string]string)
			for p, kind := range batch {
				logger.Debug("watcher: note changed", slog.String("path", p), slog.String("op", kind))
				if cb != nil {
					cb(kind, p)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					for _, p := range notesIn(ev.Name) {
						known[p] = struct{}{}
						queue(Created, p)
					}
					continue
				}
			}

			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// A removed or renamed directory takes its notes with it.
				prefix := ev.Name + string(filepath.Separator)
				for p := range known {
					if strings.HasPrefix(p, prefix) {
						delete(known, p)
						queue(Deleted, p)
					}
				}
			}

			if _, isNote := engine.FromPath(ev.Name); !isNote {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				if _, seen := known[ev.Name]; seen {
					queue(Updated, ev.Name)
				} else {
					known[ev.Name] = struct{}{}
					queue(Created, ev.Name)
				}
			case ev.Op&fsnotify.Write != 0:
				queue(Updated, ev.Name)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create.
				delete(known, ev.Name)
				queue(Deleted, ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// notesIn returns note files already present under dir.
func notesIn(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if _, ok := engine.FromPath(p); ok {
			out = append(out, p)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
