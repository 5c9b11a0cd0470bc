package transform

import (
	"fmt"
	"strings"

	"github.com/jopsify/jopsify/internal/joplin"
)

// dateFormat matches the long-form dates the site shows under notes.
const dateFormat = "January 2, 2006"

// PageOptions carries the localized label strings for page footers.
type PageOptions struct {
	CreatedLabel string
	UpdatedLabel string
}

// BuildPage assembles the final markdown file for a note from its
// already-rewritten body: title heading, body, and a dated footer.
func BuildPage(n joplin.Note, body string, opts PageOptions) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Title)
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "*%s: %s · %s: %s*\n",
		opts.CreatedLabel, n.CreatedTime.Format(dateFormat),
		opts.UpdatedLabel, n.UpdatedTime.Format(dateFormat))
	return []byte(b.String())
}
