// Package export holds the core export model: tag filtering, hierarchy
// reconstruction, change detection and the output manifest.
package export

import (
	"sort"

	"github.com/jopsify/jopsify/internal/joplin"
	"github.com/jopsify/jopsify/internal/markdown"
)

// Selection is the subset of a snapshot that survived tag filtering.
//
// Publication policy (documented here because ambiguity changes what
// gets published): a notebook is published when its tag set contains
// the public tag, or when any ancestor notebook is published.
// A note is published only when its notebook is published AND the note
// itself carries the public tag. The hidden tag always excludes, on
// notebooks and notes, and an explicitly public descendant re-includes
// itself below a merely-untagged ancestor but not below a hidden one
// it directly carries.
type Selection struct {
	// Folders are the surviving notebooks, in source order.
	Folders []joplin.Folder
	// FolderByID indexes Folders.
	FolderByID map[string]joplin.Folder
	// Notes are the surviving notes, in source order.
	Notes []joplin.Note
	// NoteByID indexes Notes.
	NoteByID map[string]joplin.Note
	// NotesByFolder groups surviving notes by owning notebook id.
	NotesByFolder map[string][]joplin.Note
	// Resources holds every resource row by id (copy decisions come later).
	Resources map[string]joplin.Resource
	// NoteRefs maps note id to the ordered item ids its body references.
	NoteRefs map[string][]string
	// UsedResources lists ids of resources referenced by surviving notes,
	// sorted, each exactly once.
	UsedResources []string
}

// Select applies the publication policy to a snapshot.
func Select(snap *joplin.Snapshot, publicTag, hiddenTag string) *Selection {
	byID := make(map[string]joplin.Folder, len(snap.Folders))
	for _, f := range snap.Folders {
		byID[f.ID] = f
	}

	// Memoized per-folder decision. A cyclic parent chain resolves to
	// excluded here; the hierarchy builder reports the cycle properly
	// when any cyclic notebook is explicitly published.
	decided := make(map[string]bool)
	var decide func(id string, walking map[string]bool) bool
	decide = func(id string, walking map[string]bool) bool {
		if v, ok := decided[id]; ok {
			return v
		}
		if walking[id] {
			return false
		}
		f, ok := byID[id]
		if !ok {
			return false
		}
		walking[id] = true
		var v bool
		switch {
		case f.HasTag(hiddenTag):
			v = false
		case f.HasTag(publicTag):
			v = true
		case f.ParentID != "":
			v = decide(f.ParentID, walking)
		default:
			v = false
		}
		delete(walking, id)
		decided[id] = v
		return v
	}

	sel := &Selection{
		FolderByID:    make(map[string]joplin.Folder),
		NoteByID:      make(map[string]joplin.Note),
		NotesByFolder: make(map[string][]joplin.Note),
		Resources:     make(map[string]joplin.Resource, len(snap.Resources)),
		NoteRefs:      make(map[string][]string),
	}

	for _, f := range snap.Folders {
		if decide(f.ID, map[string]bool{}) {
			sel.Folders = append(sel.Folders, f)
			sel.FolderByID[f.ID] = f
		}
	}

	for _, n := range snap.Notes {
		if _, ok := sel.FolderByID[n.NotebookID]; !ok {
			continue
		}
		if !n.HasTag(publicTag) || n.HasTag(hiddenTag) {
			continue
		}
		sel.Notes = append(sel.Notes, n)
		sel.NoteByID[n.ID] = n
		sel.NotesByFolder[n.NotebookID] = append(sel.NotesByFolder[n.NotebookID], n)
		sel.NoteRefs[n.ID] = markdown.ItemRefs([]byte(n.Body))
	}

	for _, r := range snap.Resources {
		sel.Resources[r.ID] = r
	}

	used := map[string]bool{}
	for _, n := range sel.Notes {
		for _, id := range sel.NoteRefs[n.ID] {
			if _, ok := sel.Resources[id]; ok {
				used[id] = true
			}
		}
	}
	for id := range used {
		sel.UsedResources = append(sel.UsedResources, id)
	}
	sort.Strings(sel.UsedResources)

	return sel
}
