// Package normalize holds the one string normalization rule shared by
// reference-table resolution and description matching. Every normalized
// comparison in the reconciler goes through Normalize so the two sides
// can never drift apart.
package normalize

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Normalize lowercases s, removes every character that is not a letter,
// digit or whitespace, and trims surrounding whitespace.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(nonAlphanumeric.ReplaceAllString(s, "")))
}
