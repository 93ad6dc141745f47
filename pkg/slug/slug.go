// Package slug derives URL keys from product and category names.
package slug

import (
	"regexp"
	"strings"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	disallowed = regexp.MustCompile(`[^a-z0-9_-]`)
	hyphenRuns = regexp.MustCompile(`-{2,}`)
)

// Generate normalizes name into a slug: lowercase, whitespace runs become a
// single hyphen, anything outside [a-z0-9_-] is dropped, repeated hyphens are
// collapsed and leading/trailing hyphens trimmed. Non-ASCII letters are
// dropped, not transliterated.
//
//	"Red  Shirt"        -> "red-shirt"
//	"Yoga Mat (6mm)!"   -> "yoga-mat-6mm"
//	"  --Foo -- Bar--"  -> "foo-bar"
func Generate(name string) string {
	s := strings.ToLower(name)
	s = whitespace.ReplaceAllString(s, "-")
	s = disallowed.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
