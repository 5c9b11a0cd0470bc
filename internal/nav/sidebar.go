// Package nav generates the docsify navigation files: the sidebar,
// the home page with its recent-notes listing, and the per-notebook
// contents pages.
package nav

import (
	"fmt"
	"strings"

	"github.com/jopsify/jopsify/internal/export"
	"github.com/jopsify/jopsify/internal/layout"
)

// Sidebar renders _sidebar.md mirroring the notebook tree. Ordering is
// fixed upstream by the hierarchy builder, so the output is
// deterministic for unchanged input.
func Sidebar(tree *export.Tree, plan *layout.Plan) []byte {
	var b strings.Builder

	var walk func(n *export.Node, level int)
	walk = func(n *export.Node, level int) {
		indent := strings.Repeat("  ", level)
		fmt.Fprintf(&b, "%s- [%s](%s)\n", indent, n.Folder.Title, plan.FolderIndexes[n.Folder.ID])
		for _, c := range n.Children {
			walk(c, level+1)
		}
		for _, note := range n.Notes {
			fmt.Fprintf(&b, "%s  - [%s](%s)\n", indent, note.Title, plan.NotePaths[note.ID])
		}
	}

	for _, r := range tree.Roots {
		walk(r, 0)
	}
	return []byte(b.String())
}
