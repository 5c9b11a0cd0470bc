package nav

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jopsify/jopsify/internal/export"
	"github.com/jopsify/jopsify/internal/joplin"
	"github.com/jopsify/jopsify/internal/layout"
)

const dateFormat = "January 2, 2006"

// HomeOptions configures the landing page.
type HomeOptions struct {
	SiteTitle    string
	RecentNotes  int
	CreatedLabel string
}

// Home renders README.md: the site title plus the most recently
// created notes with title, date and relative link.
func Home(tree *export.Tree, plan *layout.Plan, opts HomeOptions) []byte {
	var notes []joplin.Note
	tree.Walk(func(n *export.Node) {
		notes = append(notes, n.Notes...)
	})
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedTime.Equal(notes[j].CreatedTime) {
			return notes[i].CreatedTime.After(notes[j].CreatedTime)
		}
		return notes[i].ID < notes[j].ID
	})
	if opts.RecentNotes > 0 && len(notes) > opts.RecentNotes {
		notes = notes[:opts.RecentNotes]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", opts.SiteTitle)
	if len(notes) > 0 {
		b.WriteString("## Recent notes\n\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- [%s](%s) · %s %s\n",
				n.Title, plan.NotePaths[n.ID], opts.CreatedLabel, n.CreatedTime.Format(dateFormat))
		}
	}
	return []byte(b.String())
}

// NotebookIndex renders the contents page for one notebook, listing
// its sub-notebooks and notes in display order. Links are relative to
// the notebook directory itself.
func NotebookIndex(n *export.Node, plan *layout.Plan) []byte {
	dir := plan.FolderDirs[n.Folder.ID]
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Folder.Title)
	for _, c := range n.Children {
		fmt.Fprintf(&b, "- [%s](%s)\n", c.Folder.Title, trimDir(plan.FolderIndexes[c.Folder.ID], dir))
	}
	for _, note := range n.Notes {
		fmt.Fprintf(&b, "- [%s](%s)\n", note.Title, trimDir(plan.NotePaths[note.ID], dir))
	}
	return []byte(b.String())
}

func trimDir(p, dir string) string {
	return strings.TrimPrefix(p, dir+"/")
}
