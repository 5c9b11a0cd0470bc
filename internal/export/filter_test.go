package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jopsify/jopsify/internal/joplin"
)

const (
	idN1 = "aaaabbbbccccddddeeeeffff00000001"
	idN2 = "aaaabbbbccccddddeeeeffff00000002"
	idN3 = "aaaabbbbccccddddeeeeffff00000003"
	idR1 = "aaaabbbbccccddddeeeeffff00000101"
)

func folder(id, title, parent string, tags ...string) joplin.Folder {
	return joplin.Folder{ID: id, Title: title, ParentID: parent, Tags: tags}
}

func note(id, nb, title, body string, tags ...string) joplin.Note {
	return joplin.Note{ID: id, NotebookID: nb, Title: title, Body: body, Tags: tags}
}

func at(id, nb, title string, created time.Time, tags ...string) joplin.Note {
	n := note(id, nb, title, "", tags...)
	n.CreatedTime = created
	return n
}

func TestSelectNotebookOptIn(t *testing.T) {
	snap := &joplin.Snapshot{
		Folders: []joplin.Folder{
			folder("f1", "Public", "", "public"),
			folder("f2", "Private", ""),
		},
		Notes: []joplin.Note{
			note(idN1, "f1", "N1", "", "public"),
			note(idN3, "f2", "N3", "", "public"),
		},
	}
	sel := Select(snap, "public", "private")

	assert.Contains(t, sel.FolderByID, "f1")
	assert.NotContains(t, sel.FolderByID, "f2")
	assert.Contains(t, sel.NoteByID, idN1)
	// N3 is tagged public but its notebook never opted in.
	assert.NotContains(t, sel.NoteByID, idN3)
}

func TestSelectDescendantsInherit(t *testing.T) {
	snap := &joplin.Snapshot{
		Folders: []joplin.Folder{
			folder("f1", "Top", "", "public"),
			folder("f2", "Child", "f1"),
		},
		Notes: []joplin.Note{note(idN1, "f2", "N1", "", "public")},
	}
	sel := Select(snap, "public", "private")

	assert.Contains(t, sel.FolderByID, "f2")
	assert.Contains(t, sel.NoteByID, idN1)
}

func TestSelectPerNoteOptIn(t *testing.T) {
	snap := &joplin.Snapshot{
		Folders: []joplin.Folder{folder("f1", "Public", "", "public")},
		Notes: []joplin.Note{
			note(idN1, "f1", "Tagged", "", "public"),
			note(idN2, "f1", "Untagged", ""),
		},
	}
	sel := Select(snap, "public", "private")

	assert.Contains(t, sel.NoteByID, idN1)
	assert.NotContains(t, sel.NoteByID, idN2)
}

func TestSelectHiddenWins(t *testing.T) {
	snap := &joplin.Snapshot{
		Folders: []joplin.Folder{
			folder("f1", "Public", "", "public"),
			folder("f2", "Hush", "f1", "private"),
		},
		Notes: []joplin.Note{
			note(idN1, "f1", "Both", "", "public", "private"),
			note(idN2, "f2", "InHidden", "", "public"),
		},
	}
	sel := Select(snap, "public", "private")

	// Hidden tag beats public on the note itself.
	assert.NotContains(t, sel.NoteByID, idN1)
	// A hidden notebook is excluded even under a public ancestor.
	assert.NotContains(t, sel.FolderByID, "f2")
	assert.NotContains(t, sel.NoteByID, idN2)
}

func TestSelectPublicReincludesUnderHidden(t *testing.T) {
	snap := &joplin.Snapshot{
		Folders: []joplin.Folder{
			folder("f1", "Hidden top", "", "private"),
			folder("f2", "Back in", "f1", "public"),
		},
		Notes: []joplin.Note{note(idN1, "f2", "N1", "", "public")},
	}
	sel := Select(snap, "public", "private")

	assert.NotContains(t, sel.FolderByID, "f1")
	assert.Contains(t, sel.FolderByID, "f2")
	assert.Contains(t, sel.NoteByID, idN1)
}

func TestSelectUsedResources(t *testing.T) {
	body := "here ![img](:/" + idR1 + ") and [dead](:/" + idN3 + ")"
	snap := &joplin.Snapshot{
		Folders:   []joplin.Folder{folder("f1", "Public", "", "public")},
		Notes:     []joplin.Note{note(idN1, "f1", "N1", body, "public")},
		Resources: []joplin.Resource{{ID: idR1, Mime: "image/png"}},
	}
	sel := Select(snap, "public", "private")

	assert.Equal(t, []string{idR1}, sel.UsedResources)
	assert.Equal(t, []string{idR1, idN3}, sel.NoteRefs[idN1])
}

func TestSelectCyclicUntaggedExcluded(t *testing.T) {
	snap := &joplin.Snapshot{
		Folders: []joplin.Folder{
			folder("f1", "A", "f2"),
			folder("f2", "B", "f1"),
		},
	}
	sel := Select(snap, "public", "private")
	assert.Empty(t, sel.Folders)
}
