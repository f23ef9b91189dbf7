// Package sanitize normalizes free-text todo fields before validation.
// Every function is pure and idempotent.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	markupPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripMarkup removes anything that looks like an angle-bracket tag.
func StripMarkup(s string) string {
	return markupPattern.ReplaceAllString(s, "")
}

// Normalize trims the string and collapses internal whitespace runs to a
// single space.
func Normalize(s string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Title sanitizes a todo title.
func Title(s string) string {
	return Normalize(StripMarkup(s))
}

// Description sanitizes a todo description.
func Description(s string) string {
	return Normalize(StripMarkup(s))
}

// Category sanitizes and case-folds a category name.
func Category(s string) string {
	return strings.ToLower(Normalize(StripMarkup(s)))
}

// Tag sanitizes and case-folds a single tag.
func Tag(s string) string {
	return strings.ToLower(Normalize(StripMarkup(s)))
}

// Tags sanitizes each tag and drops the ones that end up empty.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if clean := Tag(t); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
