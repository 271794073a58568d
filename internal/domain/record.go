package domain

import (
	"github.com/shopspring/decimal"
)

// TransactionRecord represents one cleaned line item from a vendor
// statement. This is a domain struct, not a BigQuery row; the results
// writer maps it into the reconciliation_results table schema.
type TransactionRecord struct {
	Number       string          // record id, cell 0
	EndCustomer  string          // cell 1, numeric prefix stripped and line breaks collapsed
	Description  string          // cell 4, subscription prefix stripped
	Quantity     int             // cell 8, truncated to a whole unit count
	NetUnitPrice decimal.Decimal // cell 9, exact decimal
	TotalAmount  decimal.Decimal // cell 10, exact decimal
	SOPONumber   string          // cell 5, sales or purchase order number
}

// ReferenceRow is one data row of a reference table. Labels preserves
// the header order of the source file so column inference stays
// deterministic; Values is keyed by the trimmed header labels.
type ReferenceRow struct {
	Labels []string
	Values map[string]string
}

// Get returns the raw cell value for an exact header label.
func (r ReferenceRow) Get(label string) (string, bool) {
	v, ok := r.Values[label]
	return v, ok
}

// MatchCandidate is one reference row that survived the cost and
// quantity gate, projected down to the reportable fields. The field
// values are the raw table cells; absent labels leave empty strings.
type MatchCandidate struct {
	Description   string
	UnitCost      string
	TotalQuantity string
	AgreementName string
	Score         int // description similarity, 0..100
}

// RecordMatches pairs a statement record with its ranked candidates.
// An empty Candidates slice means the record is unmatched.
type RecordMatches struct {
	Record     TransactionRecord
	Candidates []MatchCandidate
}
