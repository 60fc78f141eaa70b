// Package slug derives URL-safe identifiers from project titles.
package slug

import (
	"regexp"
	"strings"
)

// Fallback is returned when the input contains no usable characters.
const Fallback = "untitled-project"

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Make converts a title into a lowercase slug containing only alphanumerics
// and single hyphens. Runs of punctuation or whitespace collapse to one
// hyphen, and leading/trailing hyphens are trimmed. An empty or
// all-punctuation title yields Fallback. The result is deterministic.
func Make(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonAlnumRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}
