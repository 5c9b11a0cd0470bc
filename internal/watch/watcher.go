// Package watch keeps the exported site in sync with the Joplin
// database: filesystem events on the database are debounced into
// export triggers, with an optional periodic safety-net export.
package watch

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	jerrors "github.com/jopsify/jopsify/internal/errors"
	"github.com/jopsify/jopsify/internal/observability"
)

// DatabaseWatcher watches the Joplin profile directory and notifies
// the debouncer on database file activity. The directory is watched
// rather than the file because sqlite checkpoints replace the wal
// file, which breaks per-file watches.
type DatabaseWatcher struct {
	profileDir string
	debouncer  *Debouncer
	watcher    *fsnotify.Watcher
}

// NewDatabaseWatcher creates a watcher for the given Joplin profile
// directory.
func NewDatabaseWatcher(profileDir string, d *Debouncer) (*DatabaseWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "create file watcher")
	}
	abs, err := filepath.Abs(profileDir)
	if err != nil {
		_ = w.Close()
		return nil, jerrors.Wrap(err, jerrors.CategoryConfig, jerrors.SeverityFatal, "resolve profile directory")
	}
	return &DatabaseWatcher{profileDir: abs, debouncer: d, watcher: w}, nil
}

// Start adds the profile directory to the watch set and begins the
// event loop. Returns once the watch is registered.
func (w *DatabaseWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.profileDir); err != nil {
		return jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "watch profile directory").
			WithContext("dir", w.profileDir)
	}
	observability.Info(ctx, "watching joplin database", "dir", w.profileDir)
	go w.loop(ctx)
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *DatabaseWatcher) Close() error {
	return w.watcher.Close()
}

func (w *DatabaseWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isDatabaseFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			observability.Debug(ctx, "database activity", "file", filepath.Base(event.Name), "op", event.Op.String())
			w.debouncer.Notify(filepath.Base(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			observability.Warn(ctx, "file watcher error", "error", err)
		}
	}
}

// isDatabaseFile matches database.sqlite and its wal/shm companions.
func isDatabaseFile(name string) bool {
	base := filepath.Base(name)
	return base == "database.sqlite" ||
		strings.HasPrefix(base, "database.sqlite-")
}
