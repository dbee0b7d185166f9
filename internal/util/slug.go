// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
)

// maxSlugLen bounds book slugs so catalog URLs stay readable even for
// titles with long subtitles.
const maxSlugLen = 80

var (
	wordSeparatorRe   = regexp.MustCompile(`[\s_/]+`)
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	multipleDashRe    = regexp.MustCompile(`-+`)
)

// Slug converts a book title to a canonical URL-safe slug: lowercased,
// separators collapsed to single dashes, everything outside [a-z0-9-]
// dropped, and the result truncated to maxSlugLen without a trailing
// dash.
//
//	"Deep Work"          → "deep-work"
//	"The Expanse #1"     → "the-expanse-1"
//	"  multi   word "    → "multi-word"
func Slug(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}
