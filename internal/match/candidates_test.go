package match

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/avlasov/pdfrecon/internal/domain"
)

func makeRow(labels []string, cells ...string) domain.ReferenceRow {
	values := make(map[string]string, len(labels))
	for i, label := range labels {
		if i < len(cells) {
			values[label] = cells[i]
		}
	}
	return domain.ReferenceRow{Labels: labels, Values: values}
}

func makeRecord(description, price string, quantity int) domain.TransactionRecord {
	return domain.TransactionRecord{
		Description:  description,
		NetUnitPrice: decimal.RequireFromString(price),
		Quantity:     quantity,
	}
}

func TestFindColumn(t *testing.T) {
	labels := []string{"Agreement Name", "Description", "Cost per Seat", "Licensed Quantity", "Total Cost"}

	tests := []struct {
		name   string
		needle string
		want   string
		wantOK bool
	}{
		// First label containing the needle wins, case-insensitively
		{name: "cost", needle: "cost", want: "Cost per Seat", wantOK: true},
		{name: "quantity", needle: "quantity", want: "Licensed Quantity", wantOK: true},
		{name: "uppercase needle", needle: "COST", want: "Cost per Seat", wantOK: true},
		// Absent columns report ok = false
		{name: "missing", needle: "discount", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindColumn(labels, tt.needle)
			if ok != tt.wantOK {
				t.Fatalf("FindColumn(%q) ok = %v, want %v", tt.needle, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("FindColumn(%q) = %q, want %q", tt.needle, got, tt.want)
			}
		})
	}
}

func TestCandidatesGate(t *testing.T) {
	labels := []string{"Description", "Unit Cost", "Total Quantity", "Agreement Name"}
	rec := makeRecord("Widget Pro", "25.00", 10)

	tests := []struct {
		name      string
		row       domain.ReferenceRow
		wantMatch bool
	}{
		// Exact cost and quantity pass the gate
		{name: "exact", row: makeRow(labels, "Widget Pro", "25.00", "10", "A-1"), wantMatch: true},
		// Decimal equality ignores the printed scale
		{name: "bare integer cost", row: makeRow(labels, "Widget Pro", "25", "10", "A-1"), wantMatch: true},
		{name: "one decimal place", row: makeRow(labels, "Widget Pro", "25.0", "10", "A-1"), wantMatch: true},
		// Thousands separators are tolerated
		{name: "separator in quantity", row: makeRow(labels, "Widget Pro", "25.00", "1,0", "A-1"), wantMatch: true},
		// A cent of difference fails the gate
		{name: "near-miss cost", row: makeRow(labels, "Widget Pro", "25.01", "10", "A-1"), wantMatch: false},
		// Quantity compares as whole units
		{name: "wrong quantity", row: makeRow(labels, "Widget Pro", "25.00", "11", "A-1"), wantMatch: false},
		// Unparseable cost degrades to zero and fails a nonzero record
		{name: "garbage cost", row: makeRow(labels, "Widget Pro", "call us", "10", "A-1"), wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Candidates(rec, []domain.ReferenceRow{tt.row})
			if (len(got) == 1) != tt.wantMatch {
				t.Errorf("Candidates returned %d rows, want match = %v", len(got), tt.wantMatch)
			}
		})
	}
}

func TestCandidatesZeroValueGate(t *testing.T) {
	// A table with neither a cost nor a quantity column contributes zeros
	// to the gate, so a zero-price zero-quantity record matches every row.
	labels := []string{"Description", "Agreement Name"}
	rows := []domain.ReferenceRow{
		makeRow(labels, "Widget Pro", "A-1"),
		makeRow(labels, "Widget Lite", "A-2"),
	}

	zero := makeRecord("Widget Pro", "0", 0)
	if got := Candidates(zero, rows); len(got) != 2 {
		t.Errorf("zero record against column-less table: %d candidates, want 2", len(got))
	}

	nonzero := makeRecord("Widget Pro", "25.00", 10)
	if got := Candidates(nonzero, rows); len(got) != 0 {
		t.Errorf("nonzero record against column-less table: %d candidates, want 0", len(got))
	}
}

func TestCandidatesRanking(t *testing.T) {
	labels := []string{"Description", "Unit Cost", "Total Quantity", "Agreement Name"}
	rec := makeRecord("Widget Pro", "25.00", 10)

	rows := []domain.ReferenceRow{
		makeRow(labels, "Widget Professional", "25.00", "10", "A-1"),
		makeRow(labels, "Widget Pro", "25.00", "10", "A-2"),
		makeRow(labels, "Widget Pro", "25.00", "10", "A-3"),
	}

	got := Candidates(rec, rows)
	if len(got) != 3 {
		t.Fatalf("Candidates returned %d rows, want 3", len(got))
	}

	// Best score first, and the two perfect scores keep their table order.
	wantAgreements := []string{"A-2", "A-3", "A-1"}
	for i, want := range wantAgreements {
		if got[i].AgreementName != want {
			t.Errorf("candidate %d agreement = %q, want %q (scores %v)", i, got[i].AgreementName, want,
				[]int{got[0].Score, got[1].Score, got[2].Score})
		}
	}
	if got[0].Score != 100 || got[1].Score != 100 {
		t.Errorf("perfect matches scored %d and %d, want 100", got[0].Score, got[1].Score)
	}
	if got[2].Score >= 100 {
		t.Errorf("partial match scored %d, want below 100", got[2].Score)
	}
}

func TestCandidatesMissingDescription(t *testing.T) {
	// Without a Description column the sentinel text is scored and the
	// projected description stays empty.
	labels := []string{"Unit Cost", "Total Quantity"}
	rec := makeRecord("Widget Pro", "25.00", 10)

	got := Candidates(rec, []domain.ReferenceRow{makeRow(labels, "25.00", "10")})
	if len(got) != 1 {
		t.Fatalf("Candidates returned %d rows, want 1", len(got))
	}
	if got[0].Description != "" {
		t.Errorf("projected description = %q, want empty", got[0].Description)
	}
	want := Ratio("widget pro", "no description found")
	if got[0].Score != want {
		t.Errorf("score = %d, want %d (scored against the sentinel)", got[0].Score, want)
	}
}

func TestCandidatesProjection(t *testing.T) {
	// Only the four report fields are carried, by exact label, raw values
	// untouched. The inferred gate column does not leak into the output.
	labels := []string{"Description", "Cost per Seat", "Licensed Quantity", "Agreement Name", "Internal Notes"}
	rec := makeRecord("Widget Pro", "1234.56", 1250)

	row := makeRow(labels, "Widget Pro", "1,234.56", "1,250", "ENT-2024", "do not ship")
	got := Candidates(rec, []domain.ReferenceRow{row})
	if len(got) != 1 {
		t.Fatalf("Candidates returned %d rows, want 1", len(got))
	}

	c := got[0]
	if c.Description != "Widget Pro" {
		t.Errorf("Description = %q, want %q", c.Description, "Widget Pro")
	}
	if c.UnitCost != "" {
		t.Errorf("UnitCost = %q, want empty (no exact Unit Cost label)", c.UnitCost)
	}
	if c.TotalQuantity != "" {
		t.Errorf("TotalQuantity = %q, want empty (no exact Total Quantity label)", c.TotalQuantity)
	}
	if c.AgreementName != "ENT-2024" {
		t.Errorf("AgreementName = %q, want %q", c.AgreementName, "ENT-2024")
	}
}
