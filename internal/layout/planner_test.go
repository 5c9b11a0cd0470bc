package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jopsify/jopsify/internal/config"
	"github.com/jopsify/jopsify/internal/export"
	"github.com/jopsify/jopsify/internal/joplin"
)

const (
	idA  = "aaaabbbbccccddddeeeeffff00000001"
	idB  = "aaaabbbbccccddddeeeeffff00000002"
	idR  = "aaaabbbbccccddddeeeeffff00000101"
	idR2 = "aaaabbbbccccddddeeeeffff00000102"
)

func planFor(t *testing.T, folders []joplin.Folder, notes []joplin.Note, resources []joplin.Resource) (*Plan, *export.Selection) {
	t.Helper()
	sel := export.Select(&joplin.Snapshot{Folders: folders, Notes: notes, Resources: resources}, "public", "private")
	tree, err := export.BuildTree(sel, export.TreeOptions{
		MaxDepth:    2,
		DepthPolicy: config.DepthSkip,
		CyclePolicy: config.CycleFail,
		OrderBy:     config.OrderByTitle,
	})
	require.NoError(t, err)
	plan, _ := PlanLayout(tree, sel)
	return plan, sel
}

func TestPlanLayoutPaths(t *testing.T) {
	body := "![x](:/" + idR + ")"
	plan, _ := planFor(t,
		[]joplin.Folder{
			{ID: "f1", Title: "My Stuff", Tags: []string{"public"}},
			{ID: "f2", Title: "Sub Things", ParentID: "f1"},
		},
		[]joplin.Note{
			{ID: idA, NotebookID: "f1", Title: "First Note", Body: body, Tags: []string{"public"}},
			{ID: idB, NotebookID: "f2", Title: "Nested", Tags: []string{"public"}},
		},
		[]joplin.Resource{{ID: idR, Mime: "image/png"}},
	)

	assert.Equal(t, "my-stuff", plan.FolderDirs["f1"])
	assert.Equal(t, "my-stuff/index.md", plan.FolderIndexes["f1"])
	assert.Equal(t, "my-stuff/first-note.md", plan.NotePaths[idA])
	assert.Equal(t, "my-stuff/sub-things/nested.md", plan.NotePaths[idB])
	assert.Equal(t, "resources/"+idR+".png", plan.ResourcePaths[idR])
}

func TestPlanLayoutSiblingCollision(t *testing.T) {
	plan, _ := planFor(t,
		[]joplin.Folder{{ID: "f1", Title: "Top", Tags: []string{"public"}}},
		[]joplin.Note{
			{ID: idA, NotebookID: "f1", Title: "Same Name", Tags: []string{"public"}},
			{ID: idB, NotebookID: "f1", Title: "Same name!", Tags: []string{"public"}},
		},
		nil,
	)

	pa, pb := plan.NotePaths[idA], plan.NotePaths[idB]
	assert.NotEqual(t, pa, pb)
	// Ordering is deterministic (title, then id), so idA claims the
	// plain slug and idB gets the id-derived suffix.
	assert.Equal(t, "top/same-name.md", pa)
	assert.Equal(t, "top/same-name-"+idB[:8]+".md", pb)
}

func TestPlanLayoutCollisionWarns(t *testing.T) {
	sel := export.Select(&joplin.Snapshot{
		Folders: []joplin.Folder{{ID: "f1", Title: "Top", Tags: []string{"public"}}},
		Notes: []joplin.Note{
			{ID: idA, NotebookID: "f1", Title: "Dup", Tags: []string{"public"}},
			{ID: idB, NotebookID: "f1", Title: "dup", Tags: []string{"public"}},
		},
	}, "public", "private")
	tree, err := export.BuildTree(sel, export.TreeOptions{
		MaxDepth: 2, DepthPolicy: config.DepthSkip, CyclePolicy: config.CycleFail, OrderBy: config.OrderByTitle,
	})
	require.NoError(t, err)

	_, warnings := PlanLayout(tree, sel)
	require.Len(t, warnings, 1)
}

func TestPlanLayoutNoteNamedIndex(t *testing.T) {
	plan, _ := planFor(t,
		[]joplin.Folder{{ID: "f1", Title: "Top", Tags: []string{"public"}}},
		[]joplin.Note{{ID: idA, NotebookID: "f1", Title: "Index", Tags: []string{"public"}}},
		nil,
	)
	// "index" is reserved for the generated contents page.
	assert.Equal(t, "top/index-"+idA[:8]+".md", plan.NotePaths[idA])
}

func TestPlanLayoutFolderNamedResources(t *testing.T) {
	plan, _ := planFor(t,
		[]joplin.Folder{{ID: "f1", Title: "Resources", Tags: []string{"public"}}},
		[]joplin.Note{{ID: idA, NotebookID: "f1", Title: "N", Tags: []string{"public"}}},
		nil,
	)
	assert.Equal(t, "resources-f1", plan.FolderDirs["f1"])
}

func TestPlanLayoutStableAcrossRuns(t *testing.T) {
	build := func() *Plan {
		plan, _ := planFor(t,
			[]joplin.Folder{{ID: "f1", Title: "Top", Tags: []string{"public"}}},
			[]joplin.Note{
				{ID: idA, NotebookID: "f1", Title: "One", Tags: []string{"public"}},
				{ID: idB, NotebookID: "f1", Title: "Two", Tags: []string{"public"}},
			},
			nil,
		)
		return plan
	}
	assert.Equal(t, build(), build())
}
