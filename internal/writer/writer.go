// Package writer materializes a manifest on disk. Everything is built
// in a sibling staging directory first and promoted over the output
// directory with renames, so readers of the site never observe a
// half-written tree and a failed run leaves the previous site intact.
package writer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jerrors "github.com/jopsify/jopsify/internal/errors"
	"github.com/jopsify/jopsify/internal/export"
	"github.com/jopsify/jopsify/internal/observability"
)

// Writer writes manifests under a fixed output directory.
type Writer struct {
	outputDir string
	stageDir  string
}

// New returns a writer for the given output directory.
func New(outputDir string) *Writer {
	return &Writer{outputDir: filepath.Clean(outputDir)}
}

// Write stages every manifest entry, optionally copies the icon asset
// directory into the staging root, then promotes staging over the
// output directory. iconDir may be empty.
func (w *Writer) Write(ctx context.Context, m *export.Manifest, iconDir string) error {
	unlock, err := w.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := w.beginStaging(); err != nil {
		return err
	}
	defer w.abortStaging()

	for _, e := range m.Entries() {
		if err := ctx.Err(); err != nil {
			return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "write canceled")
		}
		if err := w.stageEntry(e); err != nil {
			return err
		}
	}

	if iconDir != "" {
		if err := w.stageIcons(iconDir); err != nil {
			return err
		}
	}

	if err := w.promote(); err != nil {
		return err
	}
	observability.Info(ctx, "site written", "output", w.outputDir, "files", m.Len())
	return nil
}

// acquireLock creates <output>.lock exclusively. A leftover lock from a
// crashed run must be removed by hand; guessing staleness risks two
// writers promoting over each other.
func (w *Writer) acquireLock() (func(), error) {
	lockPath := w.outputDir + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "create output parent directory")
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, jerrors.Newf(jerrors.CategoryFileSystem, jerrors.SeverityFatal,
				"lock file %s exists: another export is running, or remove it after a crash", lockPath)
		}
		return nil, jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "create lock file")
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()
	return func() { _ = os.Remove(lockPath) }, nil
}

func (w *Writer) beginStaging() error {
	stage := w.outputDir + "_stage"
	// A leftover stage dir from an aborted run is stale output.
	if err := os.RemoveAll(stage); err != nil {
		return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "remove stale staging directory")
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "create staging directory")
	}
	w.stageDir = stage
	return nil
}

func (w *Writer) abortStaging() {
	if w.stageDir == "" {
		return
	}
	dir := w.stageDir
	w.stageDir = ""
	_ = os.RemoveAll(dir)
}

func (w *Writer) stageEntry(e export.Entry) error {
	dest := filepath.Join(w.stageDir, filepath.FromSlash(e.Path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "create directory for "+e.Path)
	}
	switch e.Kind {
	case export.EntryContent:
		if err := os.WriteFile(dest, e.Content, 0o644); err != nil { // #nosec G306 - published site content
			return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "write "+e.Path)
		}
	case export.EntryCopy:
		if err := copyFile(e.Source, dest); err != nil {
			return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityError, "copy "+e.Path).
				WithContext("source", e.Source)
		}
	}
	return nil
}

// stageIcons copies the flat icon asset directory into the staging
// root, keeping file names. Subdirectories are skipped.
func (w *Writer) stageIcons(iconDir string) error {
	entries, err := os.ReadDir(iconDir)
	if err != nil {
		return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityError, "read icon directory").
			WithContext("dir", iconDir)
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		src := filepath.Join(iconDir, de.Name())
		if err := copyFile(src, filepath.Join(w.stageDir, de.Name())); err != nil {
			return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityError, "copy icon "+de.Name())
		}
	}
	return nil
}

// promote swaps staging into place: current output moves aside to
// <output>.prev, staging renames to output, the backup is removed.
func (w *Writer) promote() error {
	prev := w.outputDir + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "remove previous backup")
	}
	if _, err := os.Stat(w.outputDir); err == nil {
		if err := os.Rename(w.outputDir, prev); err != nil {
			return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "move current output aside")
		}
	}
	if err := os.Rename(w.stageDir, w.outputDir); err != nil {
		// Put the old site back so the output stays serveable.
		if _, statErr := os.Stat(prev); statErr == nil {
			_ = os.Rename(prev, w.outputDir)
		}
		return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "promote staging directory")
	}
	w.stageDir = ""
	_ = os.RemoveAll(prev)
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src) // #nosec G304 - path from manifest
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest) // #nosec G304 - staging path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
