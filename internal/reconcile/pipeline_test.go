package reconcile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
	"github.com/avlasov/pdfrecon/internal/domain"
	"github.com/avlasov/pdfrecon/internal/reconcile"
)

// MockFetcher is a mock implementation of DocumentFetcher for testing.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, uri string) ([]byte, error)
}

func (m *MockFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, uri)
	}
	return []byte("mock pdf data"), nil
}

// MockExtractor is a mock implementation of Extractor for testing.
type MockExtractor struct {
	ExtractTablesFunc func(ctx context.Context, pdfBytes []byte) ([][][]string, error)
}

func (m *MockExtractor) ExtractTables(ctx context.Context, pdfBytes []byte) ([][][]string, error) {
	if m.ExtractTablesFunc != nil {
		return m.ExtractTablesFunc(ctx, pdfBytes)
	}
	return nil, nil
}

// MockResultStore is a mock implementation of ResultStore for testing.
type MockResultStore struct {
	InsertRunFunc     func(ctx context.Context, row *bq.RunRow) error
	CompleteRunFunc   func(ctx context.Context, runID string, counts bq.RunCounts, reportURI string) error
	FailRunFunc       func(ctx context.Context, runID string, cause error)
	InsertResultsFunc func(ctx context.Context, rows []*bq.ResultRow) error
}

func (m *MockResultStore) InsertRun(ctx context.Context, row *bq.RunRow) error {
	if m.InsertRunFunc != nil {
		return m.InsertRunFunc(ctx, row)
	}
	return nil
}

func (m *MockResultStore) CompleteRun(ctx context.Context, runID string, counts bq.RunCounts, reportURI string) error {
	if m.CompleteRunFunc != nil {
		return m.CompleteRunFunc(ctx, runID, counts, reportURI)
	}
	return nil
}

func (m *MockResultStore) FailRun(ctx context.Context, runID string, cause error) {
	if m.FailRunFunc != nil {
		m.FailRunFunc(ctx, runID, cause)
	}
}

func (m *MockResultStore) InsertResults(ctx context.Context, rows []*bq.ResultRow) error {
	if m.InsertResultsFunc != nil {
		return m.InsertResultsFunc(ctx, rows)
	}
	return nil
}

func statementHeader() []string {
	return []string{"Number", "End-Customer", "", "", "Description", "SO/PO Number", "", "", "Qty", "Net Unit Price", "Total Amount"}
}

func TestRunReconciliation(t *testing.T) {
	cfg := &reconcile.Config{
		DocumentURI: "gs://statements/2024-01.pdf",
		TablesDir:   "testdata/tables",
		ReportPath:  filepath.Join(t.TempDir(), "report.csv"),
		DocumentID:  "doc-1",
	}

	fetcher := &MockFetcher{
		FetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			if uri != cfg.DocumentURI {
				t.Errorf("Fetch called with %q, want %q", uri, cfg.DocumentURI)
			}
			return []byte("%PDF-1.4 mock"), nil
		},
	}

	extractor := &MockExtractor{
		ExtractTablesFunc: func(ctx context.Context, pdfBytes []byte) ([][][]string, error) {
			return [][][]string{
				{
					statementHeader(),
					{"1001", "Acme Corp", "", "", "Widget Pro", "PO-55", "", "", "10", "25.00", "250.00"},
					// Duplicate number, dropped from the report.
					{"1001", "Acme Corp", "", "", "Widget Pro Again", "PO-55", "", "", "10", "25.00", "250.00"},
					// Too short for the statement layout, skipped.
					{"9999", "too", "short"},
				},
				{
					statementHeader(),
					{"2002", "Beta LLC", "", "", "Gadget", "PO-56", "", "", "1", "5.00", "5.00"},
				},
			}, nil
		},
	}

	source := &MockTableSource{
		TablesFunc: func(ctx context.Context) ([]string, error) {
			return []string{"Acme Corp"}, nil
		},
		RowsFunc: func(ctx context.Context, name string) ([]domain.ReferenceRow, error) {
			return []domain.ReferenceRow{testReferenceRow("Widget Pro", "25.00", "10")}, nil
		},
	}

	var insertedRun *bq.RunRow
	var insertedResults []*bq.ResultRow
	var completedCounts bq.RunCounts
	var completedReport string
	completed := false
	failed := false

	store := &MockResultStore{
		InsertRunFunc: func(ctx context.Context, row *bq.RunRow) error {
			insertedRun = row
			return nil
		},
		InsertResultsFunc: func(ctx context.Context, rows []*bq.ResultRow) error {
			insertedResults = rows
			return nil
		},
		CompleteRunFunc: func(ctx context.Context, runID string, counts bq.RunCounts, reportURI string) error {
			completed = true
			completedCounts = counts
			completedReport = reportURI
			return nil
		},
		FailRunFunc: func(ctx context.Context, runID string, cause error) {
			failed = true
		},
	}

	state, err := reconcile.RunReconciliation(context.Background(), cfg, fetcher, extractor, source, store)
	if err != nil {
		t.Fatalf("RunReconciliation returned error: %v", err)
	}
	if failed {
		t.Error("FailRun should not be called on a successful run")
	}

	if insertedRun == nil {
		t.Fatal("expected the run to be recorded up front")
	}
	if insertedRun.RunID != state.RunID {
		t.Errorf("recorded run id = %q, want %q", insertedRun.RunID, state.RunID)
	}
	if insertedRun.Status != bq.RunStatusRunning {
		t.Errorf("recorded run status = %q, want %q", insertedRun.Status, bq.RunStatusRunning)
	}
	if !insertedRun.DocumentID.Valid || insertedRun.DocumentID.StringVal != "doc-1" {
		t.Errorf("recorded document id = %+v, want doc-1", insertedRun.DocumentID)
	}

	counts := state.Counts()
	if counts.Records != 3 {
		t.Errorf("records = %d, want 3", counts.Records)
	}
	if counts.Matched != 1 {
		t.Errorf("matched = %d, want 1", counts.Matched)
	}
	if counts.Unmatched != 1 {
		t.Errorf("unmatched = %d, want 1", counts.Unmatched)
	}
	if counts.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", counts.Duplicates)
	}
	if counts.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", counts.Skipped)
	}

	// One row for the matched record's candidate, one for the
	// unmatched record.
	if len(insertedResults) != 2 {
		t.Fatalf("expected 2 result rows, got %d", len(insertedResults))
	}
	if !insertedResults[0].Matched || insertedResults[0].RecordNumber != "1001" {
		t.Errorf("first result row = %+v, want matched 1001", insertedResults[0])
	}
	if insertedResults[0].MatchScore.Int64 != 100 {
		t.Errorf("match score = %d, want 100", insertedResults[0].MatchScore.Int64)
	}
	if insertedResults[1].Matched || insertedResults[1].RecordNumber != "2002" {
		t.Errorf("second result row = %+v, want unmatched 2002", insertedResults[1])
	}

	if !completed {
		t.Fatal("expected CompleteRun to be called")
	}
	if completedCounts != counts {
		t.Errorf("completed counts = %+v, want %+v", completedCounts, counts)
	}
	if completedReport != cfg.ReportPath {
		t.Errorf("completed report = %q, want %q", completedReport, cfg.ReportPath)
	}

	data, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !strings.Contains(string(data), "Widget Pro") {
		t.Error("report should contain the matched record")
	}
	if !strings.Contains(string(data), "2002") {
		t.Error("report should contain the unmatched record")
	}
}

func TestRunReconciliationPipelineFailure(t *testing.T) {
	cfg := &reconcile.Config{
		DocumentURI: "statement.pdf",
		TablesDir:   "tables",
		ReportPath:  filepath.Join(t.TempDir(), "report.csv"),
	}

	extractor := &MockExtractor{
		ExtractTablesFunc: func(ctx context.Context, pdfBytes []byte) ([][][]string, error) {
			return nil, errors.New("model unavailable")
		},
	}

	var failedRunID string
	var failCause error
	completed := false

	store := &MockResultStore{
		CompleteRunFunc: func(ctx context.Context, runID string, counts bq.RunCounts, reportURI string) error {
			completed = true
			return nil
		},
		FailRunFunc: func(ctx context.Context, runID string, cause error) {
			failedRunID = runID
			failCause = cause
		},
	}

	state, err := reconcile.RunReconciliation(context.Background(), cfg, &MockFetcher{}, extractor, &MockTableSource{}, store)
	if err == nil {
		t.Fatal("expected the run to fail")
	}
	if !strings.Contains(err.Error(), "pipeline step 2 (extract tables) failed") {
		t.Errorf("error = %q, want it to name the failing step", err)
	}
	if failedRunID != state.RunID {
		t.Errorf("failed run id = %q, want %q", failedRunID, state.RunID)
	}
	if failCause == nil || !strings.Contains(failCause.Error(), "model unavailable") {
		t.Errorf("fail cause = %v, want the extraction error", failCause)
	}
	if completed {
		t.Error("CompleteRun should not be called on a failed run")
	}
}

func TestRunReconciliationWithoutStore(t *testing.T) {
	cfg := &reconcile.Config{
		DocumentURI: "statement.pdf",
		TablesDir:   "tables",
		ReportPath:  filepath.Join(t.TempDir(), "report.csv"),
	}

	extractor := &MockExtractor{
		ExtractTablesFunc: func(ctx context.Context, pdfBytes []byte) ([][][]string, error) {
			return [][][]string{{statementHeader()}}, nil
		},
	}

	state, err := reconcile.RunReconciliation(context.Background(), cfg, &MockFetcher{}, extractor, &MockTableSource{}, nil)
	if err != nil {
		t.Fatalf("RunReconciliation returned error: %v", err)
	}
	if len(state.Records) != 0 {
		t.Errorf("a header-only page should produce no records, got %d", len(state.Records))
	}

	if _, err := os.Stat(cfg.ReportPath); err != nil {
		t.Errorf("report should be written even without a store: %v", err)
	}
}

func TestRunReconciliationInvalidConfig(t *testing.T) {
	cfg := &reconcile.Config{DocumentURI: "statement.pdf"}

	inserted := false
	store := &MockResultStore{
		InsertRunFunc: func(ctx context.Context, row *bq.RunRow) error {
			inserted = true
			return nil
		},
	}

	_, err := reconcile.RunReconciliation(context.Background(), cfg, &MockFetcher{}, &MockExtractor{}, &MockTableSource{}, store)
	if err == nil {
		t.Fatal("expected a config validation error")
	}
	if !strings.Contains(err.Error(), "tables directory") {
		t.Errorf("error = %q, want a tables directory complaint", err)
	}
	if inserted {
		t.Error("no run should be recorded for an invalid config")
	}
}
