package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jopsify/jopsify/internal/config"
	jerrors "github.com/jopsify/jopsify/internal/errors"
)

// Fingerprint summarizes the filtered source state of one successful
// export. It is loaded at the start of a run and persisted only after
// the site has been fully written; a failed run leaves the previous
// value untouched so the next run retries from scratch.
type Fingerprint struct {
	Hash        string    `json:"hash"`
	ExportID    string    `json:"export_id"`
	ExportedAt  time.Time `json:"exported_at"`
	ToolVersion string    `json:"tool_version"`
}

// ComputeHash computes a deterministic hash over the surviving records
// plus the output-affecting configuration. Entries are sorted so the
// hash is independent of database row order.
func ComputeHash(sel *Selection, configHash string) string {
	lines := make([]string, 0, len(sel.Folders)+len(sel.Notes)+len(sel.UsedResources)+1)
	for _, f := range sel.Folders {
		lines = append(lines, fmt.Sprintf("folder|%s|%d", f.ID, f.UpdatedTime.UnixMilli()))
	}
	for _, n := range sel.Notes {
		lines = append(lines, fmt.Sprintf("note|%s|%d", n.ID, n.UpdatedTime.UnixMilli()))
	}
	for _, id := range sel.UsedResources {
		r := sel.Resources[id]
		lines = append(lines, fmt.Sprintf("resource|%s|%d", r.ID, r.UpdatedTime.UnixMilli()))
	}
	sort.Strings(lines)

	h := sha256.New()
	h.Write([]byte("config|" + configHash + "\n"))
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigHash hashes the configuration fields that change the output
// tree, so a config edit forces a re-export even with unchanged notes.
func ConfigHash(cfg *config.Config) string {
	h := sha256.New()
	fmt.Fprintf(h, "title=%s\n", cfg.Site.Title)
	fmt.Fprintf(h, "public=%s\nhidden=%s\n", cfg.Publish.PublicTag, cfg.Publish.HiddenTag)
	fmt.Fprintf(h, "depth=%d|%s|%s\n", cfg.Publish.MaxDepth, cfg.Publish.OnDepthExceeded, cfg.Publish.OnCycle)
	fmt.Fprintf(h, "order=%s\nrecent=%d\n", cfg.Publish.OrderBy, cfg.Publish.RecentNotes)
	fmt.Fprintf(h, "labels=%s|%s\n", cfg.Labels.Created, cfg.Labels.Updated)
	return hex.EncodeToString(h.Sum(nil))
}

// FingerprintStore persists the last-run fingerprint as JSON.
type FingerprintStore struct {
	path string
}

// NewFingerprintStore returns a store backed by the given file path.
func NewFingerprintStore(path string) *FingerprintStore {
	return &FingerprintStore{path: path}
}

// Path returns the backing file path.
func (s *FingerprintStore) Path() string { return s.path }

// Load reads the stored fingerprint. A missing file returns (nil, nil):
// first run, nothing to compare against. A corrupt file is treated the
// same way, forcing a full re-export rather than skipping work.
func (s *FingerprintStore) Load() (*Fingerprint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityError, "read fingerprint")
	}
	var fp Fingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, nil
	}
	return &fp, nil
}

// Save writes the fingerprint. Called only after a fully successful run.
func (s *FingerprintStore) Save(fp *Fingerprint) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "create fingerprint directory")
	}
	data, err := json.MarshalIndent(fp, "", "  ")
	if err != nil {
		return jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "marshal fingerprint")
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return jerrors.Wrap(err, jerrors.CategoryFileSystem, jerrors.SeverityFatal, "write fingerprint")
	}
	return nil
}
