package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
)

const resultColumns = "run_id, record_number, end_customer, description, quantity, " +
	"net_unit_price, total_amount, so_po_number, matched, match_description, " +
	"match_cost, match_quantity, agreement_name, match_score, created_at"

// InsertResults streams per-record results. Results are append-only so
// the streaming inserter is fine here, unlike runs and documents.
func (r *BigQueryRunRepository) InsertResults(ctx context.Context, rows []*bq.ResultRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.client.Dataset(DatasetID()).Table(TableResults).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	return nil
}

// ResultsForRun retrieves the per-record results of a run in insertion
// order. With onlyUnmatched set it returns just the records that found
// no reference candidate.
func (r *BigQueryRunRepository) ResultsForRun(ctx context.Context, runID string, onlyUnmatched bool) ([]*bq.ResultRow, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE run_id = @run_id`,
		resultColumns, tableRef(TableResults))
	if onlyUnmatched {
		query += " AND matched = FALSE"
	}
	query += " ORDER BY created_at"

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("results for run %s: %w", runID, err)
	}

	var rows []*bq.ResultRow
	for {
		var row bq.ResultRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("results for run %s: %w", runID, err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
