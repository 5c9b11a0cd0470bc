package export

import (
	"fmt"
	"strings"
)

// CycleError reports a notebook whose parent chain does not terminate.
type CycleError struct {
	NotebookID string
	Chain      []string // ids along the walk, ending where the repeat was found
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("notebook parent links form a cycle at %s: %s",
		e.NotebookID, strings.Join(e.Chain, " -> "))
}

// UnsupportedDepthError reports a notebook nested deeper than the
// configured maximum.
type UnsupportedDepthError struct {
	NotebookID string
	Title      string
	Depth      int
	MaxDepth   int
}

func (e *UnsupportedDepthError) Error() string {
	return fmt.Sprintf("notebook %q (%s) is nested at depth %d, maximum supported is %d",
		e.Title, e.NotebookID, e.Depth, e.MaxDepth)
}

// BrokenLinkError reports a body reference to an item that did not
// survive filtering (or never existed). It is recovered locally: the
// link is degraded to plain text and the error surfaces as a warning.
type BrokenLinkError struct {
	NoteID   string
	TargetID string
}

func (e *BrokenLinkError) Error() string {
	return fmt.Sprintf("note %s links to unavailable item %s", e.NoteID, e.TargetID)
}

// CollisionError reports two siblings mapping to the same
// filesystem-safe name. It is recovered via deterministic suffixing
// and logged.
type CollisionError struct {
	Path string
	IDs  []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("output path %q claimed by multiple items: %s", e.Path, strings.Join(e.IDs, ", "))
}
