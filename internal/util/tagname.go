// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
)

// Matches runs of whitespace for collapsing.
var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeTagName converts raw user input to the canonical stored tag name.
// Tags are per-user display names, so normalization is deliberately light:
// trim the edges and collapse interior whitespace. "reading  list " and
// "reading list" are the same tag; "Reading List" and "reading list" are not.
func NormalizeTagName(input string) string {
	s := strings.TrimSpace(input)
	return whitespaceRe.ReplaceAllString(s, " ")
}

// NormalizeTagNames normalizes a slice of raw names, dropping empties and
// duplicates while preserving first-seen order.
func NormalizeTagNames(inputs []string) []string {
	seen := make(map[string]bool, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, raw := range inputs {
		name := NormalizeTagName(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
