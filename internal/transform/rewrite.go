// Package transform rewrites note bodies against the planned layout.
//
// This is pass two of the two-pass link resolution: the layout planner
// has already fixed every output path, so each `:/<id>` body reference
// can be rewritten to a relative link, or degraded to plain text when
// the target did not survive filtering.
package transform

import (
	"path"
	"strings"

	"github.com/jopsify/jopsify/internal/export"
	"github.com/jopsify/jopsify/internal/layout"
	"github.com/jopsify/jopsify/internal/markdown"
)

// Result is the rewritten body plus recovered broken links.
type Result struct {
	Body   string
	Broken []*export.BrokenLinkError
}

// RewriteLinks rewrites every Joplin item reference in the body of the
// given note. Links to exported notes and resources become relative
// paths; links to anything else degrade to their link text.
//
// The scanner is iterative rather than regex-based so pathological
// bodies cannot trigger backtracking blowups. Fenced code blocks and
// inline code spans are copied verbatim, and only references that the
// markdown parser reported for this note are rewritten at all, so a
// `:/<id>` inside code keeps its literal form and never degrades.
func RewriteLinks(noteID, body string, sel *export.Selection, plan *layout.Plan) Result {
	notePath := plan.NotePaths[noteID]
	detected := make(map[string]bool, len(sel.NoteRefs[noteID]))
	for _, id := range sel.NoteRefs[noteID] {
		detected[id] = true
	}

	var res Result
	var b strings.Builder
	b.Grow(len(body))

	i := 0
	inFence := false
	var fenceChar byte
	var fenceLen int
	for i < len(body) {
		if i == 0 || body[i-1] == '\n' {
			if ch, n, ok := fenceMarker(body, i); ok {
				if !inFence {
					inFence, fenceChar, fenceLen = true, ch, n
				} else if ch == fenceChar && n >= fenceLen {
					inFence = false
				}
				i = copyLine(&b, body, i)
				continue
			}
			if inFence {
				i = copyLine(&b, body, i)
				continue
			}
		}
		c := body[i]
		if c == '`' {
			if end, ok := codeSpanEnd(body, i); ok {
				b.WriteString(body[i:end])
				i = end
				continue
			}
		}
		isImage := c == '!' && i+1 < len(body) && body[i+1] == '['
		if c == '[' || isImage {
			start := i
			if isImage {
				i++
			}
			if newI, ok := tryRewriteLink(body, i, start, isImage, noteID, notePath, detected, plan, &b, &res); ok {
				i = newI
				continue
			}
			i = start
		}
		b.WriteByte(body[i])
		i++
	}

	res.Body = b.String()
	return res
}

// tryRewriteLink attempts to process a markdown link whose '[' sits at
// position i (start marks the '!' for images). Returns the position
// after the link and whether anything was consumed.
func tryRewriteLink(body string, i, start int, isImage bool, noteID, notePath string, detected map[string]bool, plan *layout.Plan, b *strings.Builder, res *Result) (int, bool) {
	closeBracket := findClosingBracket(body, i+1)
	if closeBracket == -1 {
		return 0, false
	}
	if closeBracket+1 >= len(body) || body[closeBracket+1] != '(' {
		return 0, false
	}
	closeParen := findClosingParen(body, closeBracket+2)
	if closeParen == -1 {
		return 0, false
	}

	text := body[i+1 : closeBracket]
	dest := body[closeBracket+2 : closeParen]

	id, ok := markdown.ParseItemRef(dest)
	if !ok || !detected[id] {
		// Not a Joplin reference, or one the parser never reported
		// (it sits inside code): pass through untouched.
		b.WriteString(body[start : closeParen+1])
		return closeParen + 1, true
	}

	anchor := ""
	if j := strings.IndexByte(dest, '#'); j >= 0 {
		anchor = dest[j:]
	}

	if target, ok := plan.NotePaths[id]; ok {
		writeLink(b, isImage, text, relRef(notePath, target)+anchor)
		return closeParen + 1, true
	}
	if target, ok := plan.ResourcePaths[id]; ok {
		writeLink(b, isImage, text, relRef(notePath, target)+anchor)
		return closeParen + 1, true
	}

	// Target did not survive filtering (or never existed): degrade to
	// the link text so one stale reference cannot block the export.
	res.Broken = append(res.Broken, &export.BrokenLinkError{NoteID: noteID, TargetID: id})
	b.WriteString(text)
	return closeParen + 1, true
}

func writeLink(b *strings.Builder, isImage bool, text, dest string) {
	if isImage {
		b.WriteByte('!')
	}
	b.WriteByte('[')
	b.WriteString(text)
	b.WriteString("](")
	b.WriteString(dest)
	b.WriteByte(')')
}

// fenceMarker reports a code fence delimiter at a line start: up to
// three leading spaces, then a run of at least three backticks or
// tildes.
func fenceMarker(s string, from int) (byte, int, bool) {
	i := from
	for i < len(s) && i-from < 3 && s[i] == ' ' {
		i++
	}
	if i >= len(s) || (s[i] != '`' && s[i] != '~') {
		return 0, 0, false
	}
	ch := s[i]
	n := 0
	for i < len(s) && s[i] == ch {
		n++
		i++
	}
	if n < 3 {
		return 0, 0, false
	}
	return ch, n, true
}

// copyLine copies through the end of the current line, newline
// included, and returns the next position.
func copyLine(b *strings.Builder, s string, from int) int {
	end := len(s)
	if j := strings.IndexByte(s[from:], '\n'); j >= 0 {
		end = from + j + 1
	}
	b.WriteString(s[from:end])
	return end
}

// codeSpanEnd finds the end of the inline code span opened by the
// backtick run at from: the next run of exactly the same length. A
// span may wrap a line but not a blank line.
func codeSpanEnd(s string, from int) (int, bool) {
	open := 0
	i := from
	for i < len(s) && s[i] == '`' {
		open++
		i++
	}
	for i < len(s) {
		switch s[i] {
		case '`':
			run := 0
			for i < len(s) && s[i] == '`' {
				run++
				i++
			}
			if run == open {
				return i, true
			}
		case '\n':
			if i+1 < len(s) && s[i+1] == '\n' {
				return 0, false
			}
			i++
		default:
			i++
		}
	}
	return 0, false
}

// findClosingBracket finds the ']' matching nested '[' pairs.
func findClosingBracket(s string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return i
			}
			depth--
		case '\n':
			if i+1 < len(s) && s[i+1] == '\n' {
				return -1 // links do not span blank lines
			}
		}
	}
	return -1
}

// findClosingParen finds the ')' matching nested '(' pairs.
func findClosingParen(s string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return i
			}
			depth--
		case '\n':
			return -1
		}
	}
	return -1
}

// relRef computes the relative reference from one site-relative file
// to another, both using forward slashes.
func relRef(fromFile, toFile string) string {
	fromDir := path.Dir(fromFile)
	if fromDir == "." {
		return toFile
	}
	fromParts := strings.Split(fromDir, "/")
	toParts := strings.Split(toFile, "/")

	common := 0
	for common < len(fromParts) && common < len(toParts)-1 && fromParts[common] == toParts[common] {
		common++
	}
	parts := make([]string, 0, len(fromParts)-common+len(toParts)-common)
	for range fromParts[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[common:]...)
	return strings.Join(parts, "/")
}
