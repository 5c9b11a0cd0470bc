package transform

import (
	"regexp"
)

// MarkupAction is what happens to a source-only markup construct.
type MarkupAction int

const (
	// ActionPass leaves the construct untouched for docsify (possibly
	// rendered by a client-side plugin).
	ActionPass MarkupAction = iota
	// ActionStrip removes the construct from the output.
	ActionStrip
)

// MarkupRule is one entry of the fixed markup policy table. Constructs
// not listed here are ordinary markdown and flow through untouched;
// nothing is ever silently corrupted.
type MarkupRule struct {
	Name    string
	Action  MarkupAction
	Pattern *regexp.Regexp // strip rules only
}

// markupRules is the documented policy table for Joplin-flavored
// markup encountered in note bodies.
var markupRules = []MarkupRule{
	// Joplin renders a table of contents for a [toc] line; docsify
	// core does not, so the placeholder would leak into the page.
	{Name: "toc-placeholder", Action: ActionStrip, Pattern: regexp.MustCompile(`(?im)^\[\[?toc\]\]?[ \t]*\r?\n?`)},
	// KaTeX math ($...$, $$...$$): docsify-katex renders these.
	{Name: "katex-math", Action: ActionPass},
	// ==highlight== marks: harmless as plain text without a plugin.
	{Name: "highlight-marks", Action: ActionPass},
	// Inline HTML: docsify renders it as-is.
	{Name: "inline-html", Action: ActionPass},
}

// MarkupPolicy returns the policy table (for documentation and tests).
func MarkupPolicy() []MarkupRule {
	return markupRules
}

// ApplyMarkupPolicy applies the strip rules of the policy table.
func ApplyMarkupPolicy(body string) string {
	for _, rule := range markupRules {
		if rule.Action == ActionStrip && rule.Pattern != nil {
			body = rule.Pattern.ReplaceAllString(body, "")
		}
	}
	return body
}
