package nav

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jopsify/jopsify/internal/config"
	"github.com/jopsify/jopsify/internal/export"
	"github.com/jopsify/jopsify/internal/joplin"
	"github.com/jopsify/jopsify/internal/layout"
)

const (
	idN1 = "aaaabbbbccccddddeeeeffff00000001"
	idN2 = "aaaabbbbccccddddeeeeffff00000002"
	idN3 = "aaaabbbbccccddddeeeeffff00000003"
)

func navFixture(t *testing.T) (*export.Tree, *layout.Plan) {
	t.Helper()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := &joplin.Snapshot{
		Folders: []joplin.Folder{
			{ID: "f1", Title: "Guides", Tags: []string{"public"}},
			{ID: "f2", Title: "Deep Dives", ParentID: "f1"},
		},
		Notes: []joplin.Note{
			{ID: idN1, NotebookID: "f1", Title: "Intro", CreatedTime: t0, Tags: []string{"public"}},
			{ID: idN2, NotebookID: "f1", Title: "Setup", CreatedTime: t0.Add(48 * time.Hour), Tags: []string{"public"}},
			{ID: idN3, NotebookID: "f2", Title: "Internals", CreatedTime: t0.Add(24 * time.Hour), Tags: []string{"public"}},
		},
	}
	sel := export.Select(snap, "public", "private")
	tree, err := export.BuildTree(sel, export.TreeOptions{
		MaxDepth: 2, DepthPolicy: config.DepthSkip, CyclePolicy: config.CycleFail, OrderBy: config.OrderByTitle,
	})
	require.NoError(t, err)
	plan, _ := layout.PlanLayout(tree, sel)
	return tree, plan
}

func TestSidebarStructure(t *testing.T) {
	tree, plan := navFixture(t)
	sidebar := string(Sidebar(tree, plan))

	want := strings.Join([]string{
		"- [Guides](guides/index.md)",
		"  - [Deep Dives](guides/deep-dives/index.md)",
		"    - [Internals](guides/deep-dives/internals.md)",
		"  - [Intro](guides/intro.md)",
		"  - [Setup](guides/setup.md)",
		"",
	}, "\n")
	assert.Equal(t, want, sidebar)
}

func TestSidebarOmitsExcludedContent(t *testing.T) {
	tree, plan := navFixture(t)
	sidebar := string(Sidebar(tree, plan))
	assert.NotContains(t, sidebar, "Private")
}

func TestHomeRecentOrder(t *testing.T) {
	tree, plan := navFixture(t)
	home := string(Home(tree, plan, HomeOptions{SiteTitle: "My Site", RecentNotes: 2, CreatedLabel: "Created"}))

	assert.True(t, strings.HasPrefix(home, "# My Site\n\n## Recent notes\n\n"))
	// Most recently created first, capped at two entries.
	setupIdx := strings.Index(home, "[Setup]")
	internalsIdx := strings.Index(home, "[Internals]")
	require.NotEqual(t, -1, setupIdx)
	require.NotEqual(t, -1, internalsIdx)
	assert.Less(t, setupIdx, internalsIdx)
	assert.NotContains(t, home, "[Intro]")
	assert.Contains(t, home, "Created January 3, 2024")
}

func TestHomeDeterministic(t *testing.T) {
	tree, plan := navFixture(t)
	opts := HomeOptions{SiteTitle: "S", RecentNotes: 10, CreatedLabel: "Created"}
	assert.Equal(t, Home(tree, plan, opts), Home(tree, plan, opts))
}

func TestNotebookIndexRelativeLinks(t *testing.T) {
	tree, plan := navFixture(t)
	root := tree.Roots[0]
	index := string(NotebookIndex(root, plan))

	assert.Contains(t, index, "# Guides\n")
	assert.Contains(t, index, "- [Deep Dives](deep-dives/index.md)")
	assert.Contains(t, index, "- [Intro](intro.md)")
	assert.NotContains(t, index, "guides/intro.md")
}
