// Package htmlutil provides text cleanup helpers for search-engine result pages.
package htmlutil

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// StripTags removes HTML tags from a string.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// CollapseSpace replaces runs of whitespace with a single space and trims the ends.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// Clean strips tags, decodes HTML entities, and collapses whitespace.
// Search engines occasionally return titles and snippets with inline markup.
func Clean(s string) string {
	return CollapseSpace(html.UnescapeString(StripTags(s)))
}

// Truncate shortens s to at most n runes. It never splits a multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
