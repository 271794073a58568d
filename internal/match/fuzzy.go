// Package match implements reference-table resolution and candidate
// matching for statement records: which table a record's customer maps
// to, and which rows of that table line up with the record.
package match

import (
	"math"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Ratio scores the similarity of two strings on a 0..100 scale: 100 for
// equal strings, 0 for nothing in common. It is the classic indel ratio
// over runes. Callers treat it as a black box; only the scale and the
// symmetry are contractual.
func Ratio(a, b string) int {
	if len(a) == 0 && len(b) == 0 {
		return 100
	}
	r := levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return int(math.Round(r * 100))
}
