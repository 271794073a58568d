// Package report renders reconciliation results as the flat CSV the
// finance team consumes: one row per record/candidate pair, or a single
// blank-match row for records nothing matched.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/avlasov/pdfrecon/internal/domain"
)

// Headers is the column layout of the reconciliation report. Column
// names and order are a contract with downstream spreadsheets; do not
// reorder.
var Headers = []string{
	"Number",
	"End-Customer",
	"Description",
	"Qty",
	"Net Unit Price",
	"Total Amount",
	"SO/PO Number",
	"Match Description",
	"Match Cost",
	"Match Quantity",
	"Agreement Name",
	"Match Score",
}

// matchColumns is how many trailing columns describe the matched side.
const matchColumns = 5

// Rows flattens results into report cells. Every row is full width;
// unmatched records carry blanks in the match columns. Money renders
// with two decimal places, quantities as plain integers, and the
// match-side cells repeat the raw table values verbatim.
func Rows(results []domain.RecordMatches) [][]string {
	out := make([][]string, 0, len(results))
	for _, result := range results {
		base := recordCells(result.Record)

		if len(result.Candidates) == 0 {
			row := append(append([]string{}, base...), make([]string, matchColumns)...)
			out = append(out, row)
			continue
		}

		for _, c := range result.Candidates {
			row := append(append([]string{}, base...),
				c.Description,
				c.UnitCost,
				c.TotalQuantity,
				c.AgreementName,
				strconv.Itoa(c.Score),
			)
			out = append(out, row)
		}
	}
	return out
}

func recordCells(rec domain.TransactionRecord) []string {
	return []string{
		rec.Number,
		rec.EndCustomer,
		rec.Description,
		strconv.Itoa(rec.Quantity),
		rec.NetUnitPrice.StringFixed(2),
		rec.TotalAmount.StringFixed(2),
		rec.SOPONumber,
	}
}

// Write renders the report to w, header row first.
func Write(w io.Writer, results []domain.RecordMatches) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Headers); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, row := range Rows(results) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// WriteFile writes the report to path, replacing any previous report.
func WriteFile(path string, results []domain.RecordMatches) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}

	if err := Write(f, results); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	return nil
}
