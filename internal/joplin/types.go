// Package joplin reads raw records from a Joplin desktop profile.
//
// This is the source boundary: it knows the sqlite schema and nothing
// about filtering, layout or output. All rows are returned as plain
// structs; timestamps are converted from Joplin's epoch-milliseconds.
package joplin

import (
	"mime"
	"time"
)

// Folder is a notebook row. Joplin has no folder tags, so Tags is
// derived from whole-word keywords found in the folder title (the
// designated public/hidden tag names are matched there instead).
type Folder struct {
	ID          string
	Title       string
	ParentID    string // empty = root
	CreatedTime time.Time
	UpdatedTime time.Time
	Tags        []string
}

// Note is a note row together with its tag titles.
type Note struct {
	ID          string
	NotebookID  string
	Title       string
	Body        string
	CreatedTime time.Time
	UpdatedTime time.Time
	Tags        []string
}

// HasTag reports whether the note carries the given tag (exact match).
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasTag reports whether the folder carries the given derived tag.
func (f Folder) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Resource is a binary attachment row. The payload itself lives at
// <profile>/resources/<ID>.<FileExtension>.
type Resource struct {
	ID            string
	Title         string
	Mime          string
	FileExtension string
	UpdatedTime   time.Time
}

// knownExts pins extensions for common attachment types so exported
// filenames stay stable regardless of the platform mime database.
var knownExts = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/svg+xml":   ".svg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
}

// DerivedExt returns the extension the exported copy of this resource
// should carry, derived from the MIME type with the stored file
// extension as fallback.
func (r Resource) DerivedExt() string {
	if ext, ok := knownExts[r.Mime]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(r.Mime); err == nil && len(exts) > 0 {
		return exts[0]
	}
	if r.FileExtension != "" {
		return "." + r.FileExtension
	}
	return ""
}

// PayloadName returns the filename of the payload inside the Joplin
// resources directory.
func (r Resource) PayloadName() string {
	if r.FileExtension == "" {
		return r.ID
	}
	return r.ID + "." + r.FileExtension
}

// ExportName returns the filename the exported copy should use.
func (r Resource) ExportName() string {
	return r.ID + r.DerivedExt()
}

// Snapshot is one read-only view of the source database.
type Snapshot struct {
	Folders   []Folder
	Notes     []Note
	Resources []Resource
}
