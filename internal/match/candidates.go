package match

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avlasov/pdfrecon/internal/domain"
	"github.com/avlasov/pdfrecon/internal/normalize"
)

// Labels the candidate projection reads by exact name.
const (
	labelDescription   = "Description"
	labelUnitCost      = "Unit Cost"
	labelTotalQuantity = "Total Quantity"
	labelAgreementName = "Agreement Name"
)

// defaultDescription is scored when a table has no Description column.
const defaultDescription = "No Description Found"

// FindColumn returns the first header label containing needle,
// case-insensitively. Reference exports name their columns
// inconsistently ("Unit Cost", "cost per seat", "Total Quantity"), so
// the cost and quantity columns are inferred by substring rather than
// by exact label.
func FindColumn(labels []string, needle string) (string, bool) {
	needle = strings.ToLower(needle)
	for _, label := range labels {
		if strings.Contains(strings.ToLower(label), needle) {
			return label, true
		}
	}
	return "", false
}

// Candidates gates the table rows on exact cost and quantity equality
// against the record and ranks the survivors by description similarity,
// best first. The sort is stable so equal scores keep table order. A
// table without a cost or quantity column contributes 0 for that side
// of the gate rather than being skipped.
func Candidates(rec domain.TransactionRecord, rows []domain.ReferenceRow) []domain.MatchCandidate {
	wantDescription := normalize.Normalize(rec.Description)

	var out []domain.MatchCandidate
	for _, row := range rows {
		costLabel, _ := FindColumn(row.Labels, "cost")
		quantityLabel, _ := FindColumn(row.Labels, "quantity")

		cost := amountValue(row, costLabel)
		quantity := quantityValue(row, quantityLabel)

		if !cost.Equal(rec.NetUnitPrice) || quantity != rec.Quantity {
			continue
		}

		description, ok := row.Get(labelDescription)
		if !ok {
			description = defaultDescription
		}
		score := Ratio(wantDescription, normalize.Normalize(description))

		out = append(out, domain.MatchCandidate{
			Description:   projected(row, labelDescription),
			UnitCost:      projected(row, labelUnitCost),
			TotalQuantity: projected(row, labelTotalQuantity),
			AgreementName: projected(row, labelAgreementName),
			Score:         score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// projected returns the raw cell for label, or empty when the table
// does not carry it.
func projected(row domain.ReferenceRow, label string) string {
	v, _ := row.Get(label)
	return v
}

// amountValue reads an exact decimal from the labeled cell. A missing
// label or an unparseable cell is worth 0.
func amountValue(row domain.ReferenceRow, label string) decimal.Decimal {
	if label == "" {
		return decimal.Zero
	}
	raw, _ := row.Get(label)
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// quantityValue reads a whole unit count from the labeled cell. A
// missing label or an unparseable cell is worth 0.
func quantityValue(row domain.ReferenceRow, label string) int {
	if label == "" {
		return 0
	}
	raw, _ := row.Get(label)
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
