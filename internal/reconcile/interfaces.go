package reconcile

import (
	"context"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
	"github.com/avlasov/pdfrecon/internal/domain"
)

// DocumentFetcher retrieves statement bytes from a local path or a
// gs:// URI.
type DocumentFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Extractor pulls per-page tables out of a statement PDF. Each table
// starts with that page's header row.
type Extractor interface {
	ExtractTables(ctx context.Context, pdfBytes []byte) ([][][]string, error)
}

// TableSource lists the reference tables and loads their rows.
type TableSource interface {
	// Tables returns the entity names that have a reference table.
	Tables(ctx context.Context) ([]string, error)
	// Rows loads one table's label/value rows.
	Rows(ctx context.Context, name string) ([]domain.ReferenceRow, error)
}

// ResultStore is the minimal view of the run repository the pipeline
// needs. Runs without persistence pass a nil store.
type ResultStore interface {
	InsertRun(ctx context.Context, row *bq.RunRow) error
	CompleteRun(ctx context.Context, runID string, counts bq.RunCounts, reportURI string) error
	FailRun(ctx context.Context, runID string, cause error)
	InsertResults(ctx context.Context, rows []*bq.ResultRow) error
}
