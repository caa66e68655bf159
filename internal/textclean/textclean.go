// Package textclean turns HTML fragments from feeds and APIs into plain text.
package textclean

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// StripTags removes all HTML tags, unescapes entities and collapses whitespace.
func StripTags(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return Collapse(html.UnescapeString(strict.Sanitize(raw)))
}

// Collapse replaces runs of whitespace with a single space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Summary strips tags and cuts the result to at most n runes on a word boundary.
func Summary(raw string, n int) string {
	s := StripTags(raw)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
