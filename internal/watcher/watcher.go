// Package watcher adapts OS filesystem events into the single-file
// reconciliation calls described in spec §4.8.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives single-file change/delete notifications from the
// watcher. relPath is POSIX-style, relative to root.
type Handler interface {
	// HandleChange is called for created or modified files.
	HandleChange(ctx context.Context, relPath string)
	// HandleDelete is called for removed files (and the "delete" half of a
	// rename/move).
	HandleDelete(ctx context.Context, relPath string)
}

// errorBackoffInitial and errorBackoffMax bound the sleep taken after each
// error the underlying fsnotify watcher reports.
const (
	errorBackoffInitial = 1 * time.Second
	errorBackoffMax     = 30 * time.Second
)

// Watcher recursively watches root and dispatches events to a Handler,
// ignoring directory events entirely (§4.8).
type Watcher struct {
	root    string
	handler Handler
	logger  *slog.Logger

	fs   *fsnotify.Watcher
	done chan struct{}
}

// New constructs a Watcher rooted at root. Call Start to begin watching.
func New(root string, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{root: root, handler: handler, logger: logger, fs: fs, done: make(chan struct{})}

	if err := w.addTree(root); err != nil {
		fs.Close()

		return nil, err
	}

	return w, nil
}

// addTree recursively registers every directory under root with fsnotify.
// fsnotify is not itself recursive — each directory must be added
// individually.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return w.fs.Add(path)
		}

		return nil
	})
}

// isDir reports whether path currently names a directory. Used after a
// Create event, where the filesystem entry still exists to stat.
func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// Start launches the event loop in a background goroutine. It returns
// immediately; call Stop to shut it down.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop halts the event loop and releases OS watch handles.
func (w *Watcher) Stop() {
	close(w.done)
	w.fs.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	backoff := errorBackoffInitial

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}

			w.dispatch(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}

			w.logger.Warn("watcher error, backing off", slog.String("error", err.Error()), slog.Duration("backoff", backoff))

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}

			backoff = min(backoff*2, errorBackoffMax)
		}
	}
}

// dispatch translates one fsnotify event into a Handler call. Directory
// events never reach the handler: a create on a directory is absorbed by
// re-registering the watch; writes/removes on directories are otherwise
// meaningless to the reconciler, which only tracks files.
func (w *Watcher) dispatch(ctx context.Context, ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}

	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		if isDir(ev.Name) {
			_ = w.addTree(ev.Name)

			return
		}

		w.handler.HandleChange(ctx, rel)

	case ev.Op&fsnotify.Write != 0:
		if isDir(ev.Name) {
			return
		}

		w.handler.HandleChange(ctx, rel)

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A move surfaces as a Rename of the old name (treated as delete)
		// followed by a Create of the new name — §4.8's "moved → (delete
		// old, create new)".
		w.handler.HandleDelete(ctx, rel)
	}
}
