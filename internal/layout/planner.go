// Package layout assigns every surviving notebook, note and resource a
// deterministic output path under the site root.
//
// This is pass one of the two-pass link resolution: paths are fixed
// using ids only, so the content transformer can later rewrite body
// references against a complete id-to-path table.
package layout

import (
	"path"

	jerrors "github.com/jopsify/jopsify/internal/errors"
	"github.com/jopsify/jopsify/internal/export"
)

// ResourceDir is the shared assets area. Resources have no single
// owning note, so they all live here, keyed by resource id.
const ResourceDir = "resources"

// reserved are root-level names the generator claims for itself.
var reserved = map[string]bool{
	ResourceDir: true,
}

// Plan maps ids to site-relative output paths (forward slashes).
type Plan struct {
	// FolderDirs maps notebook id to its directory.
	FolderDirs map[string]string
	// FolderIndexes maps notebook id to its generated index page path.
	FolderIndexes map[string]string
	// NotePaths maps note id to its markdown file path.
	NotePaths map[string]string
	// ResourcePaths maps resource id to its copied-file path.
	ResourcePaths map[string]string
}

// PlanLayout walks the tree in display order and assigns paths.
// Sibling name collisions are resolved with a deterministic id-derived
// suffix and reported as recovered warnings, never by overwriting.
func PlanLayout(tree *export.Tree, sel *export.Selection) (*Plan, []*jerrors.ExportError) {
	p := &Plan{
		FolderDirs:    make(map[string]string),
		FolderIndexes: make(map[string]string),
		NotePaths:     make(map[string]string),
		ResourcePaths: make(map[string]string),
	}
	var warnings []*jerrors.ExportError

	var walk func(n *export.Node, parentDir string, taken map[string]bool)
	walk = func(n *export.Node, parentDir string, taken map[string]bool) {
		name := slugOrID(n.Folder.Title, n.Folder.ID)
		name, warn := claim(taken, name, n.Folder.ID, parentDir)
		if warn != nil {
			warnings = append(warnings, warn)
		}
		dir := path.Join(parentDir, name)
		p.FolderDirs[n.Folder.ID] = dir
		p.FolderIndexes[n.Folder.ID] = path.Join(dir, "index.md")

		// Per-folder namespace. "index" is reserved for the generated
		// contents page.
		local := map[string]bool{"index": true}
		for _, note := range n.Notes {
			nn := slugOrID(note.Title, note.ID)
			nn, warn := claim(local, nn, note.ID, dir)
			if warn != nil {
				warnings = append(warnings, warn)
			}
			p.NotePaths[note.ID] = path.Join(dir, nn+".md")
		}
		for _, c := range n.Children {
			walk(c, dir, local)
		}
	}

	rootTaken := map[string]bool{}
	for name := range reserved {
		rootTaken[name] = true
	}
	for _, r := range tree.Roots {
		walk(r, "", rootTaken)
	}

	// Resource paths are id-keyed and therefore collision-free.
	for _, id := range sel.UsedResources {
		r := sel.Resources[id]
		p.ResourcePaths[id] = path.Join(ResourceDir, r.ExportName())
	}

	return p, warnings
}

// slugOrID returns the slug of title, falling back to a deterministic
// id prefix when the title has no sluggable characters.
func slugOrID(title, id string) string {
	if s := Slugify(title); s != "" {
		return s
	}
	return shortID(id)
}

// claim reserves name in taken, disambiguating with an id-derived
// suffix when the name is already in use.
func claim(taken map[string]bool, name, id, dir string) (string, *jerrors.ExportError) {
	if !taken[name] {
		taken[name] = true
		return name, nil
	}
	disambiguated := name + "-" + shortID(id)
	if taken[disambiguated] {
		disambiguated = name + "-" + id
	}
	taken[disambiguated] = true
	warn := jerrors.Newf(jerrors.CategoryLayout, jerrors.SeverityWarning,
		"name %q already used in %q, renamed to %q", name, path.Join(dir)+"/", disambiguated).
		WithContext("id", id)
	return disambiguated, warn
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
