package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
	"github.com/avlasov/pdfrecon/internal/logger"
)

const runColumns = "run_id, document_id, document_uri, tables_dir, status, error_message, " +
	"record_count, matched_count, unmatched_count, duplicate_count, skipped_rows, " +
	"report_uri, started_at, finished_at"

// BigQueryRunRepository stores reconciliation runs and their per-record
// results.
type BigQueryRunRepository struct {
	client *bigquery.Client
}

// NewBigQueryRunRepository creates a repository with its own BigQuery
// client.
func NewBigQueryRunRepository(ctx context.Context) (*BigQueryRunRepository, error) {
	client, err := newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &BigQueryRunRepository{client: client}, nil
}

// Close releases the underlying client.
func (r *BigQueryRunRepository) Close() error {
	return r.client.Close()
}

// InsertRun records the start of a run. Counters begin at zero and the
// finish columns stay NULL until CompleteRun or FailRun fills them.
func (r *BigQueryRunRepository) InsertRun(ctx context.Context, row *bq.RunRow) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s (run_id, document_id, document_uri, tables_dir, status,
			record_count, matched_count, unmatched_count, duplicate_count, skipped_rows, started_at)
		VALUES (@run_id, @document_id, @document_uri, @tables_dir, @status,
			0, 0, 0, 0, 0, @started_at)`,
		tableRef(TableRuns)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "document_uri", Value: row.DocumentURI},
		{Name: "tables_dir", Value: row.TablesDir},
		{Name: "status", Value: row.Status},
		{Name: "started_at", Value: row.StartedAt},
	}
	return runDML(ctx, q, "insert run")
}

// CompleteRun marks a run as finished and stores its counters.
func (r *BigQueryRunRepository) CompleteRun(ctx context.Context, runID string, counts bq.RunCounts, reportURI string) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s SET
			status = @status,
			record_count = @record_count,
			matched_count = @matched_count,
			unmatched_count = @unmatched_count,
			duplicate_count = @duplicate_count,
			skipped_rows = @skipped_rows,
			report_uri = @report_uri,
			finished_at = CURRENT_TIMESTAMP()
		WHERE run_id = @run_id`,
		tableRef(TableRuns)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusCompleted},
		{Name: "record_count", Value: int64(counts.Records)},
		{Name: "matched_count", Value: int64(counts.Matched)},
		{Name: "unmatched_count", Value: int64(counts.Unmatched)},
		{Name: "duplicate_count", Value: int64(counts.Duplicates)},
		{Name: "skipped_rows", Value: int64(counts.Skipped)},
		{Name: "report_uri", Value: bigquery.NullString{StringVal: reportURI, Valid: reportURI != ""}},
		{Name: "run_id", Value: runID},
	}
	return runDML(ctx, q, "complete run")
}

// FailRun marks a run as failed. Storage errors are logged rather than
// returned so the original failure keeps propagating to the caller.
func (r *BigQueryRunRepository) FailRun(ctx context.Context, runID string, cause error) {
	log := logger.FromContext(ctx)

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s SET
			status = @status,
			error_message = @error_message,
			finished_at = CURRENT_TIMESTAMP()
		WHERE run_id = @run_id`,
		tableRef(TableRuns)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusFailed},
		{Name: "error_message", Value: cause.Error()},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q, "fail run"); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to mark run as failed")
	}
}

// GetRun retrieves one run by its id.
func (r *BigQueryRunRepository) GetRun(ctx context.Context, runID string) (*bq.RunRow, error) {
	q := r.client.Query(fmt.Sprintf(
		`SELECT %s FROM %s WHERE run_id = @run_id LIMIT 1`,
		runColumns, tableRef(TableRuns)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var row bq.RunRow
	err = it.Next(&row)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &row, nil
}

// ListRuns retrieves runs, newest first.
func (r *BigQueryRunRepository) ListRuns(ctx context.Context, limit int) ([]*bq.RunRow, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := r.client.Query(fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY started_at DESC LIMIT @limit`,
		runColumns, tableRef(TableRuns)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var rows []*bq.RunRow
	for {
		var row bq.RunRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
