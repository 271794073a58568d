package tables

import (
	"github.com/avlasov/pdfrecon/internal/domain"
	"github.com/avlasov/pdfrecon/internal/match"
)

// TableProfile summarizes whether a reference table carries the columns
// the matcher relies on. A table with no cost and no quantity column
// gates every comparison against zeros, which usually means the export
// is malformed; the CLI surfaces these profiles for diagnosis.
type TableProfile struct {
	Name           string
	RowCount       int
	CostColumn     string
	QuantityColumn string
	HasDescription bool
}

// Inspect profiles the loaded rows of one table.
func Inspect(name string, rows []domain.ReferenceRow) TableProfile {
	profile := TableProfile{Name: name, RowCount: len(rows)}
	if len(rows) == 0 {
		return profile
	}

	labels := rows[0].Labels
	profile.CostColumn, _ = match.FindColumn(labels, "cost")
	profile.QuantityColumn, _ = match.FindColumn(labels, "quantity")
	_, profile.HasDescription = rows[0].Get("Description")
	return profile
}
