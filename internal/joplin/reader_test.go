package joplin

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE folders (id TEXT PRIMARY KEY, title TEXT, parent_id TEXT DEFAULT '', created_time INTEGER, updated_time INTEGER);
CREATE TABLE notes (id TEXT PRIMARY KEY, parent_id TEXT, title TEXT, body TEXT, created_time INTEGER, updated_time INTEGER);
CREATE TABLE tags (id TEXT PRIMARY KEY, title TEXT);
CREATE TABLE note_tags (id TEXT PRIMARY KEY, note_id TEXT, tag_id TEXT);
CREATE TABLE resources (id TEXT PRIMARY KEY, title TEXT, mime TEXT, file_extension TEXT, updated_time INTEGER);
`

// newTestDB creates a minimal Joplin-shaped database and returns its path.
func newTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "database.sqlite")
	createTestDB(t, path)
	return path
}

func createTestDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	exec := func(q string, args ...any) {
		_, err := db.Exec(q, args...)
		require.NoError(t, err)
	}

	ms := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	exec(`INSERT INTO folders VALUES ('f1', 'Recipes public', '', ?, ?)`, ms, ms)
	exec(`INSERT INTO folders VALUES ('f2', 'Journal', '', ?, ?)`, ms, ms)
	exec(`INSERT INTO notes VALUES ('n1', 'f1', 'Pancakes', 'mix flour', ?, ?)`, ms, ms)
	exec(`INSERT INTO notes VALUES ('n2', 'f2', 'Diary', 'dear diary', ?, ?)`, ms, ms)
	exec(`INSERT INTO tags VALUES ('t1', 'public')`)
	exec(`INSERT INTO tags VALUES ('t2', 'breakfast')`)
	exec(`INSERT INTO note_tags VALUES ('nt1', 'n1', 't1')`)
	exec(`INSERT INTO note_tags VALUES ('nt2', 'n1', 't2')`)
	exec(`INSERT INTO resources VALUES ('r1', 'photo', 'image/png', 'png', ?)`, ms)
}

func TestSnapshotReadsAllRecordTypes(t *testing.T) {
	r, err := Open(newTestDB(t))
	require.NoError(t, err)
	defer r.Close()

	snap, err := r.Snapshot(context.Background(), []string{"public", "private"})
	require.NoError(t, err)

	require.Len(t, snap.Folders, 2)
	require.Len(t, snap.Notes, 2)
	require.Len(t, snap.Resources, 1)
}

func TestSnapshotDerivesFolderTagsFromTitle(t *testing.T) {
	r, err := Open(newTestDB(t))
	require.NoError(t, err)
	defer r.Close()

	snap, err := r.Snapshot(context.Background(), []string{"public", "private"})
	require.NoError(t, err)

	byID := map[string]Folder{}
	for _, f := range snap.Folders {
		byID[f.ID] = f
	}
	assert.True(t, byID["f1"].HasTag("public"))
	assert.False(t, byID["f2"].HasTag("public"))
	assert.False(t, byID["f2"].HasTag("private"))
}

func TestSnapshotNoteTagsSorted(t *testing.T) {
	r, err := Open(newTestDB(t))
	require.NoError(t, err)
	defer r.Close()

	snap, err := r.Snapshot(context.Background(), nil)
	require.NoError(t, err)

	var n1 Note
	for _, n := range snap.Notes {
		if n.ID == "n1" {
			n1 = n
		}
	}
	assert.Equal(t, []string{"breakfast", "public"}, n1.Tags)
	assert.True(t, n1.HasTag("public"))
	assert.False(t, n1.HasTag("pub"))
}

func TestSnapshotConvertsTimestamps(t *testing.T) {
	r, err := Open(newTestDB(t))
	require.NoError(t, err)
	defer r.Close()

	snap, err := r.Snapshot(context.Background(), nil)
	require.NoError(t, err)

	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, want, snap.Notes[0].CreatedTime)
}

func TestOpenPathWithURIMetacharacters(t *testing.T) {
	// '?' and '#' are legal in directory names but have URI meaning in
	// the sqlite DSN; the fixture is built in a plain path and moved so
	// only Open has to cope with them.
	src := newTestDB(t)
	dir := filepath.Join(t.TempDir(), "joplin? profile #1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "database.sqlite")
	require.NoError(t, os.Rename(src, path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	snap, err := r.Snapshot(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, snap.Notes, 2)
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "does-not-exist.sqlite"))
	assert.Error(t, err)
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		word, text string
		want       bool
	}{
		{"public", "Recipes public", true},
		{"public", "PUBLIC stuff", true},
		{"public", "republic", false},
		{"public", "public-ish", true}, // hyphen is a word boundary
		{"private", "my private notes", true},
		{"private", "privateer", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsWord(tt.word, tt.text), "%s in %q", tt.word, tt.text)
	}
}

func TestResourceDerivedExt(t *testing.T) {
	assert.Equal(t, ".png", Resource{Mime: "image/png", FileExtension: "bin"}.DerivedExt())
	assert.Equal(t, ".jpg", Resource{Mime: "image/jpeg"}.DerivedExt())
	assert.Equal(t, ".dat", Resource{Mime: "application/x-unknown-thing", FileExtension: "dat"}.DerivedExt())
	assert.Equal(t, "r9.png", Resource{ID: "r9", Mime: "image/png"}.ExportName())
	assert.Equal(t, "r9.bin", Resource{ID: "r9", FileExtension: "bin"}.PayloadName())
}
