package export

import (
	"sort"
	"strings"

	"github.com/jopsify/jopsify/internal/config"
	jerrors "github.com/jopsify/jopsify/internal/errors"
	"github.com/jopsify/jopsify/internal/joplin"
)

// Node is one notebook in the reconstructed hierarchy.
type Node struct {
	Folder   joplin.Folder
	Depth    int // 1 = root
	Children []*Node
	Notes    []joplin.Note
}

// Tree is the ordered notebook hierarchy for the surviving selection.
// Notebooks with no surviving notes anywhere below them are pruned.
type Tree struct {
	Roots    []*Node
	Warnings []*jerrors.ExportError
}

// TreeOptions controls hierarchy reconstruction.
type TreeOptions struct {
	MaxDepth    int
	DepthPolicy config.DepthPolicy
	CyclePolicy config.CyclePolicy
	OrderBy     config.OrderKey
}

// BuildTree reconstructs the notebook tree from flat parent references.
//
// The arena is an explicit id-to-node map with child lists built in one
// pass; cycle detection is a visited-set walk over parent links, never
// recursion over a live object graph.
func BuildTree(sel *Selection, opts TreeOptions) (*Tree, error) {
	tree := &Tree{}

	cyclic, err := detectCycles(sel, opts.CyclePolicy)
	if err != nil {
		return nil, err
	}
	for _, id := range sortedKeys(cyclic) {
		tree.Warnings = append(tree.Warnings,
			jerrors.Newf(jerrors.CategoryHierarchy, jerrors.SeverityWarning,
				"skipping notebook %q: parent links form a cycle", sel.FolderByID[id].Title).
				WithContext("notebook_id", id))
	}

	// Depth of each folder, following parents that survived and are not
	// cyclic. A folder whose parent did not survive becomes a root.
	depth := make(map[string]int)
	var depthOf func(id string) int
	depthOf = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		f := sel.FolderByID[id]
		d := 1
		if f.ParentID != "" {
			if _, ok := sel.FolderByID[f.ParentID]; ok && !cyclic[f.ParentID] {
				d = depthOf(f.ParentID) + 1
			}
		}
		depth[id] = d
		return d
	}

	// Stable iteration order: folder id.
	ordered := make([]joplin.Folder, 0, len(sel.Folders))
	for _, f := range sel.Folders {
		if !cyclic[f.ID] {
			ordered = append(ordered, f)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	skipped := make(map[string]bool)
	arena := make(map[string]*Node)
	for _, f := range ordered {
		d := depthOf(f.ID)
		if d > opts.MaxDepth {
			switch opts.DepthPolicy {
			case config.DepthFail:
				return nil, &UnsupportedDepthError{NotebookID: f.ID, Title: f.Title, Depth: d, MaxDepth: opts.MaxDepth}
			case config.DepthSkip:
				skipped[f.ID] = true
				tree.Warnings = append(tree.Warnings,
					jerrors.Newf(jerrors.CategoryHierarchy, jerrors.SeverityWarning,
						"skipping notebook %q: nested at depth %d, maximum is %d", f.Title, d, opts.MaxDepth).
						WithContext("notebook_id", f.ID))
				continue
			case config.DepthFlatten:
				d = opts.MaxDepth
			}
		}
		arena[f.ID] = &Node{Folder: f, Depth: d, Notes: sel.NotesByFolder[f.ID]}
	}

	// Child index in one pass over the arena. A skipped parent skips the
	// whole subtree; a flattened notebook attaches to the nearest
	// ancestor that still fits within the depth budget.
	for _, f := range ordered {
		node, ok := arena[f.ID]
		if !ok {
			continue
		}
		parent := effectiveParent(f, sel, arena, skipped, cyclic, node.Depth)
		if parent == nil {
			if underSkipped(f, sel, skipped, cyclic) {
				delete(arena, f.ID)
				continue
			}
			node.Depth = 1
			tree.Roots = append(tree.Roots, node)
			continue
		}
		node.Depth = parent.Depth + 1
		parent.Children = append(parent.Children, node)
	}

	pruneEmpty(tree)
	sortTree(tree, opts.OrderBy)
	return tree, nil
}

// detectCycles returns the set of folder ids participating in (or
// hanging off) a parent-link cycle within the selection.
func detectCycles(sel *Selection, policy config.CyclePolicy) (map[string]bool, error) {
	cyclic := make(map[string]bool)
	state := make(map[string]int) // 0 unvisited, 1 walking, 2 done

	ids := make([]string, 0, len(sel.Folders))
	for _, f := range sel.Folders {
		ids = append(ids, f.ID)
	}
	sort.Strings(ids)

	for _, start := range ids {
		if state[start] != 0 {
			continue
		}
		var chain []string
		id := start
		for {
			if _, ok := sel.FolderByID[id]; !ok {
				break // chain leaves the selection; terminates
			}
			if state[id] == 2 {
				break
			}
			if state[id] == 1 {
				// Revisited within this walk: everything on the chain from
				// the repeat onward is cyclic; the rest hangs off it.
				if policy == config.CycleFail {
					return nil, &CycleError{NotebookID: id, Chain: append(chain, id)}
				}
				for _, cid := range chain {
					cyclic[cid] = true
				}
				break
			}
			state[id] = 1
			chain = append(chain, id)
			id = sel.FolderByID[id].ParentID
			if id == "" {
				break
			}
		}
		for _, cid := range chain {
			state[cid] = 2
			if cyclic[id] || cyclic[cid] {
				cyclic[cid] = true
			}
		}
	}
	return cyclic, nil
}

// effectiveParent resolves the node's parent in the arena, walking up
// past flattened-away or missing ancestors.
func effectiveParent(f joplin.Folder, sel *Selection, arena map[string]*Node, skipped, cyclic map[string]bool, depth int) *Node {
	pid := f.ParentID
	for pid != "" {
		if skipped[pid] || cyclic[pid] {
			return nil
		}
		if p, ok := arena[pid]; ok {
			if p.Depth < depth {
				return p
			}
			// Flattening: parent sits at or below our target depth, keep walking.
			pid = p.Folder.ParentID
			continue
		}
		pf, ok := sel.FolderByID[pid]
		if !ok {
			return nil
		}
		pid = pf.ParentID
	}
	return nil
}

// underSkipped reports whether any ancestor of f was skipped.
func underSkipped(f joplin.Folder, sel *Selection, skipped, cyclic map[string]bool) bool {
	pid := f.ParentID
	seen := map[string]bool{}
	for pid != "" && !seen[pid] {
		seen[pid] = true
		if skipped[pid] || cyclic[pid] {
			return true
		}
		pf, ok := sel.FolderByID[pid]
		if !ok {
			return false
		}
		pid = pf.ParentID
	}
	return false
}

// pruneEmpty removes notebooks with no surviving notes in their subtree.
func pruneEmpty(tree *Tree) {
	var prune func(n *Node) bool // returns keep
	prune = func(n *Node) bool {
		kept := n.Children[:0]
		for _, c := range n.Children {
			if prune(c) {
				kept = append(kept, c)
			}
		}
		n.Children = kept
		return len(n.Notes) > 0 || len(n.Children) > 0
	}
	roots := tree.Roots[:0]
	for _, r := range tree.Roots {
		if prune(r) {
			roots = append(roots, r)
		}
	}
	tree.Roots = roots
}

// sortTree applies deterministic ordering: the configured primary key,
// then id, at every level, for notebooks and notes alike.
func sortTree(tree *Tree, key config.OrderKey) {
	folderLess := func(a, b joplin.Folder) bool {
		switch key {
		case config.OrderByCreated:
			if !a.CreatedTime.Equal(b.CreatedTime) {
				return a.CreatedTime.Before(b.CreatedTime)
			}
		case config.OrderByUpdated:
			if !a.UpdatedTime.Equal(b.UpdatedTime) {
				return a.UpdatedTime.Before(b.UpdatedTime)
			}
		default:
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at < bt
			}
		}
		return a.ID < b.ID
	}
	noteLess := func(a, b joplin.Note) bool {
		switch key {
		case config.OrderByCreated:
			if !a.CreatedTime.Equal(b.CreatedTime) {
				return a.CreatedTime.Before(b.CreatedTime)
			}
		case config.OrderByUpdated:
			if !a.UpdatedTime.Equal(b.UpdatedTime) {
				return a.UpdatedTime.Before(b.UpdatedTime)
			}
		default:
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at < bt
			}
		}
		return a.ID < b.ID
	}

	var walk func(n *Node)
	walk = func(n *Node) {
		sort.Slice(n.Children, func(i, j int) bool { return folderLess(n.Children[i].Folder, n.Children[j].Folder) })
		sort.Slice(n.Notes, func(i, j int) bool { return noteLess(n.Notes[i], n.Notes[j]) })
		for _, c := range n.Children {
			walk(c)
		}
	}
	sort.Slice(tree.Roots, func(i, j int) bool { return folderLess(tree.Roots[i].Folder, tree.Roots[j].Folder) })
	for _, r := range tree.Roots {
		walk(r)
	}
}

// Walk visits every node depth-first in display order.
func (t *Tree) Walk(fn func(n *Node)) {
	var walk func(n *Node)
	walk = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range t.Roots {
		walk(r)
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
