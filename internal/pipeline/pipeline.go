// Package pipeline orchestrates one export run: filter, change
// detection, hierarchy, layout, content transform and navigation.
// It produces a manifest for the writer but performs no filesystem
// output itself, so a run that fails halfway has touched nothing.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jopsify/jopsify/internal/config"
	jerrors "github.com/jopsify/jopsify/internal/errors"
	"github.com/jopsify/jopsify/internal/export"
	"github.com/jopsify/jopsify/internal/joplin"
	"github.com/jopsify/jopsify/internal/layout"
	"github.com/jopsify/jopsify/internal/metrics"
	"github.com/jopsify/jopsify/internal/nav"
	"github.com/jopsify/jopsify/internal/observability"
	"github.com/jopsify/jopsify/internal/transform"
	"github.com/jopsify/jopsify/internal/version"
)

// Stats summarizes what a run produced.
type Stats struct {
	Notebooks   int
	Notes       int
	Resources   int
	BrokenLinks int
}

// Result is the outcome of one pipeline run. When NoOp is true the
// source matched the previous fingerprint and Manifest is nil.
type Result struct {
	NoOp        bool
	Manifest    *export.Manifest
	Fingerprint *export.Fingerprint
	Warnings    []*jerrors.ExportError
	Stats       Stats
}

// Run executes the export pipeline against an already-loaded snapshot.
// prev is the fingerprint of the last successful run, or nil to force a
// full export. The recorder receives stage timings and size gauges; the
// final outcome counter is the caller's to record once the site has
// actually been written.
func Run(ctx context.Context, cfg *config.Config, snap *joplin.Snapshot, prev *export.Fingerprint, rec metrics.Recorder) (*Result, error) {
	exportID := uuid.NewString()
	ctx = observability.WithExportID(ctx, exportID)
	res := &Result{}

	var sel *export.Selection
	stage(ctx, rec, "filter", func(ctx context.Context) {
		sel = export.Select(snap, cfg.Publish.PublicTag, cfg.Publish.HiddenTag)
		observability.Debug(ctx, "filtered snapshot",
			"notebooks", len(sel.Folders), "notes", len(sel.Notes), "used_resources", len(sel.UsedResources))
	})

	hash := export.ComputeHash(sel, export.ConfigHash(cfg))
	if prev != nil && prev.Hash == hash {
		observability.Info(ctx, "source unchanged since last export", "hash", hash[:12])
		res.NoOp = true
		res.Fingerprint = prev
		return res, nil
	}

	var tree *export.Tree
	var err error
	stage(ctx, rec, "hierarchy", func(ctx context.Context) {
		tree, err = export.BuildTree(sel, export.TreeOptions{
			MaxDepth:    cfg.Publish.MaxDepth,
			DepthPolicy: cfg.Publish.OnDepthExceeded,
			CyclePolicy: cfg.Publish.OnCycle,
			OrderBy:     cfg.Publish.OrderBy,
		})
	})
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, tree.Warnings...)

	var plan *layout.Plan
	stage(ctx, rec, "layout", func(ctx context.Context) {
		var warns []*jerrors.ExportError
		plan, warns = layout.PlanLayout(tree, sel)
		res.Warnings = append(res.Warnings, warns...)
	})

	manifest := export.NewManifest()
	stage(ctx, rec, "transform", func(ctx context.Context) {
		err = renderNotes(ctx, tree, sel, plan, cfg, manifest, res)
	})
	if err != nil {
		return nil, err
	}

	stage(ctx, rec, "navigation", func(ctx context.Context) {
		err = renderNavigation(tree, plan, cfg, manifest)
	})
	if err != nil {
		return nil, err
	}

	stage(ctx, rec, "assets", func(ctx context.Context) {
		err = addResources(sel, plan, cfg, manifest, res)
	})
	if err != nil {
		return nil, err
	}

	res.Manifest = manifest
	res.Fingerprint = &export.Fingerprint{
		Hash:        hash,
		ExportID:    exportID,
		ExportedAt:  time.Now().UTC(),
		ToolVersion: version.Version,
	}

	tree.Walk(func(n *export.Node) {
		res.Stats.Notebooks++
		res.Stats.Notes += len(n.Notes)
	})
	rec.SetNotebooksExported(res.Stats.Notebooks)
	rec.SetNotesExported(res.Stats.Notes)
	rec.SetResourcesExported(res.Stats.Resources)
	rec.AddBrokenLinks(res.Stats.BrokenLinks)

	observability.Info(ctx, "pipeline complete",
		"notebooks", res.Stats.Notebooks, "notes", res.Stats.Notes,
		"resources", res.Stats.Resources, "broken_links", res.Stats.BrokenLinks,
		"warnings", len(res.Warnings), "files", manifest.Len())
	return res, nil
}

// renderNotes transforms every surviving note body and adds the page to
// the manifest in display order.
func renderNotes(ctx context.Context, tree *export.Tree, sel *export.Selection, plan *layout.Plan, cfg *config.Config, manifest *export.Manifest, res *Result) error {
	pageOpts := transform.PageOptions{
		CreatedLabel: cfg.Labels.Created,
		UpdatedLabel: cfg.Labels.Updated,
	}

	var addErr error
	tree.Walk(func(n *export.Node) {
		if addErr != nil {
			return
		}
		for _, note := range n.Notes {
			body := transform.ApplyMarkupPolicy(note.Body)
			rw := transform.RewriteLinks(note.ID, body, sel, plan)
			for _, broken := range rw.Broken {
				res.Stats.BrokenLinks++
				res.Warnings = append(res.Warnings,
					jerrors.Newf(jerrors.CategoryTransform, jerrors.SeverityWarning,
						"note %q links to unexported item %s, kept link text only", note.Title, broken.TargetID).
						WithContext("note_id", note.ID))
			}
			page := transform.BuildPage(note, rw.Body, pageOpts)
			if err := manifest.AddContent(plan.NotePaths[note.ID], page); err != nil {
				addErr = jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "manifest collision for note page")
				return
			}
		}
	})
	if addErr != nil {
		return addErr
	}
	observability.Debug(ctx, "rendered note pages", "broken_links", res.Stats.BrokenLinks)
	return nil
}

// renderNavigation adds the per-notebook contents pages, the sidebar
// and the home page.
func renderNavigation(tree *export.Tree, plan *layout.Plan, cfg *config.Config, manifest *export.Manifest) error {
	var addErr error
	tree.Walk(func(n *export.Node) {
		if addErr != nil {
			return
		}
		index := nav.NotebookIndex(n, plan)
		if err := manifest.AddContent(plan.FolderIndexes[n.Folder.ID], index); err != nil {
			addErr = jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "manifest collision for notebook index")
		}
	})
	if addErr != nil {
		return addErr
	}

	if err := manifest.AddContent("_sidebar.md", nav.Sidebar(tree, plan)); err != nil {
		return jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "manifest collision for sidebar")
	}
	home := nav.Home(tree, plan, nav.HomeOptions{
		SiteTitle:    cfg.Site.Title,
		RecentNotes:  cfg.Publish.RecentNotes,
		CreatedLabel: cfg.Labels.Created,
	})
	if err := manifest.AddContent("README.md", home); err != nil {
		return jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "manifest collision for home page")
	}
	return nil
}

// addResources schedules copy entries for every referenced resource.
func addResources(sel *export.Selection, plan *layout.Plan, cfg *config.Config, manifest *export.Manifest, res *Result) error {
	for _, id := range sel.UsedResources {
		r := sel.Resources[id]
		src := filepath.Join(cfg.Joplin.ResourceDir(), r.PayloadName())
		if err := manifest.AddCopy(plan.ResourcePaths[id], src); err != nil {
			return jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "manifest collision for resource")
		}
		res.Stats.Resources++
	}
	return nil
}

// stage runs fn with stage-scoped logging and duration metrics.
func stage(ctx context.Context, rec metrics.Recorder, name string, fn func(ctx context.Context)) {
	ctx = observability.WithStage(ctx, name)
	start := time.Now()
	fn(ctx)
	d := time.Since(start)
	rec.ObserveStageDuration(name, d)
	observability.Debug(ctx, "stage finished", "duration", d)
}
