// Package bigquery defines the BigQuery row shapes and repository
// contracts for persisted reconciliation data. The implementations
// live in internal/infra/bigquery.
package bigquery

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
)

// Document lifecycle statuses.
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusQueued     = "queued"
	DocumentStatusReconciled = "reconciled"
	DocumentStatusFailed     = "failed"
)

// Run lifecycle statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// DocumentRepository provides document-related database operations.
type DocumentRepository interface {
	// InsertDocument registers an uploaded document.
	InsertDocument(ctx context.Context, row *DocumentRow) error

	// GetDocument retrieves one document by its id.
	GetDocument(ctx context.Context, documentID string) (*DocumentRow, error)

	// ListDocuments retrieves documents ordered by upload time, newest
	// first. limit <= 0 applies the repository default.
	ListDocuments(ctx context.Context, limit int) ([]*DocumentRow, error)

	// UpdateDocumentStatus moves a document through its lifecycle.
	UpdateDocumentStatus(ctx context.Context, documentID, status string) error
}

// RunRepository provides reconciliation run and result operations.
type RunRepository interface {
	// InsertRun registers a started run with status=running and zeroed
	// counters.
	InsertRun(ctx context.Context, row *RunRow) error

	// CompleteRun sets status=completed, finished_at, the closing
	// counters and the report location for a run.
	CompleteRun(ctx context.Context, runID string, counts RunCounts, reportURI string) error

	// FailRun sets status=failed, finished_at and error_message for a
	// run. Storage errors are logged rather than returned so the run's
	// original failure survives.
	FailRun(ctx context.Context, runID string, cause error)

	// InsertResults inserts a batch of ResultRow for a run.
	InsertResults(ctx context.Context, rows []*ResultRow) error

	// GetRun retrieves one run by its id.
	GetRun(ctx context.Context, runID string) (*RunRow, error)

	// ListRuns retrieves runs ordered by start time, newest first.
	// limit <= 0 applies the repository default.
	ListRuns(ctx context.Context, limit int) ([]*RunRow, error)

	// ResultsForRun retrieves a run's result rows; onlyUnmatched
	// restricts to records that matched nothing.
	ResultsForRun(ctx context.Context, runID string, onlyUnmatched bool) ([]*ResultRow, error)
}

// RunCounts are the closing counters of a completed run.
type RunCounts struct {
	Records    int
	Matched    int
	Unmatched  int
	Duplicates int
	Skipped    int
}

// DocumentRow represents a statement document record in BigQuery.
type DocumentRow struct {
	DocumentID   string            `bigquery:"document_id" json:"document_id"`
	FileName     string            `bigquery:"file_name" json:"file_name"`
	GCSURI       string            `bigquery:"gcs_uri" json:"gcs_uri"`
	ContentType  string            `bigquery:"content_type" json:"content_type"`
	SizeBytes    int64             `bigquery:"size_bytes" json:"size_bytes"`
	Status       string            `bigquery:"status" json:"status"`
	DocumentDate bigquery.NullDate `bigquery:"document_date" json:"document_date,omitempty"`
	UploadedAt   time.Time         `bigquery:"uploaded_at" json:"uploaded_at"`
}

// RunRow represents a reconciliation run record in BigQuery. Counters
// stay zero until the run completes.
type RunRow struct {
	RunID          string                 `bigquery:"run_id" json:"run_id"`
	DocumentID     bigquery.NullString    `bigquery:"document_id" json:"document_id,omitempty"`
	DocumentURI    string                 `bigquery:"document_uri" json:"document_uri"`
	TablesDir      string                 `bigquery:"tables_dir" json:"tables_dir"`
	Status         string                 `bigquery:"status" json:"status"`
	ErrorMessage   bigquery.NullString    `bigquery:"error_message" json:"error_message,omitempty"`
	RecordCount    int64                  `bigquery:"record_count" json:"record_count"`
	MatchedCount   int64                  `bigquery:"matched_count" json:"matched_count"`
	UnmatchedCount int64                  `bigquery:"unmatched_count" json:"unmatched_count"`
	DuplicateCount int64                  `bigquery:"duplicate_count" json:"duplicate_count"`
	SkippedRows    int64                  `bigquery:"skipped_rows" json:"skipped_rows"`
	ReportURI      bigquery.NullString    `bigquery:"report_uri" json:"report_uri,omitempty"`
	StartedAt      time.Time              `bigquery:"started_at" json:"started_at"`
	FinishedAt     bigquery.NullTimestamp `bigquery:"finished_at" json:"finished_at,omitempty"`
}

// ResultRow represents one record/candidate pair of a run, or one
// unmatched record with null match fields. Money lands in NUMERIC
// columns, hence *big.Rat.
type ResultRow struct {
	RunID            string              `bigquery:"run_id" json:"run_id"`
	RecordNumber     string              `bigquery:"record_number" json:"record_number"`
	EndCustomer      string              `bigquery:"end_customer" json:"end_customer"`
	Description      string              `bigquery:"description" json:"description"`
	Quantity         int64               `bigquery:"quantity" json:"quantity"`
	NetUnitPrice     *big.Rat            `bigquery:"net_unit_price" json:"net_unit_price"`
	TotalAmount      *big.Rat            `bigquery:"total_amount" json:"total_amount"`
	SOPONumber       string              `bigquery:"so_po_number" json:"so_po_number"`
	Matched          bool                `bigquery:"matched" json:"matched"`
	MatchDescription bigquery.NullString `bigquery:"match_description" json:"match_description,omitempty"`
	MatchCost        bigquery.NullString `bigquery:"match_cost" json:"match_cost,omitempty"`
	MatchQuantity    bigquery.NullString `bigquery:"match_quantity" json:"match_quantity,omitempty"`
	AgreementName    bigquery.NullString `bigquery:"agreement_name" json:"agreement_name,omitempty"`
	MatchScore       bigquery.NullInt64  `bigquery:"match_score" json:"match_score,omitempty"`
	CreatedAt        time.Time           `bigquery:"created_at" json:"created_at"`
}

// MarshalJSON renders the NUMERIC amounts as fixed-point strings
// instead of big.Rat fraction text.
func (r ResultRow) MarshalJSON() ([]byte, error) {
	type Alias ResultRow
	return json.Marshal(struct {
		Alias
		NetUnitPrice string `json:"net_unit_price"`
		TotalAmount  string `json:"total_amount"`
	}{
		Alias:        Alias(r),
		NetUnitPrice: ratString(r.NetUnitPrice),
		TotalAmount:  ratString(r.TotalAmount),
	})
}

func ratString(r *big.Rat) string {
	if r == nil {
		return ""
	}
	return r.FloatString(2)
}
