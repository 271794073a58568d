package match

import (
	"context"
	"regexp"

	"github.com/avlasov/pdfrecon/internal/logger"
	"github.com/avlasov/pdfrecon/internal/normalize"
)

// fuzzyThreshold is the score a table name must strictly exceed to be a
// fuzzy resolution candidate.
const fuzzyThreshold = 80

// Reference exports are often suffixed with a revision or year, e.g.
// "Acme Corp 2". The suffix is ignored for the second fuzzy pass.
var trailingNumber = regexp.MustCompile(`\s*\d+$`)

// ResolveTable picks the reference table for an entity name out of the
// table base names, in enumeration order. An exact match on normalized
// names wins immediately. Otherwise any name whose fuzzy score against
// the entity clears the threshold, with or without a trailing number,
// becomes a candidate; the first candidate wins and more than one logs
// a warning. ok is false when nothing qualifies, which is a normal
// outcome for customers without a reference export.
func ResolveTable(ctx context.Context, entity string, names []string) (string, bool) {
	log := logger.FromContext(ctx)

	want := normalize.Normalize(entity)
	log.Debug().Str("entity", entity).Str("normalized", want).Msg("resolving reference table")

	var candidates []string
	for _, name := range names {
		got := normalize.Normalize(name)
		if want == got {
			log.Debug().Str("table", name).Msg("exact table name match")
			return name, true
		}

		bare := trailingNumber.ReplaceAllString(got, "")
		if Ratio(want, got) > fuzzyThreshold || Ratio(want, bare) > fuzzyThreshold {
			candidates = append(candidates, name)
		}
	}

	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) > 1 {
		log.Warn().
			Str("entity", entity).
			Strs("tables", candidates).
			Msg("multiple reference tables matched, keeping the first")
	}
	return candidates[0], true
}
