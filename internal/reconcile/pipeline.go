// Package reconcile drives a statement PDF through extraction,
// cleaning, matching and reporting as one pipeline run.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
	"github.com/avlasov/pdfrecon/internal/domain"
	"github.com/avlasov/pdfrecon/internal/logger"
	"github.com/avlasov/pdfrecon/internal/records"
	"github.com/avlasov/pdfrecon/internal/report"
)

// PipelineStep represents a single step in a reconciliation run.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Config      *Config
	RunID       string
	PDFBytes    []byte
	RawTables   [][][]string
	Records     []domain.TransactionRecord
	Results     []domain.RecordMatches
	Unmatched   []domain.RecordMatches
	SkippedRows int
	ReportPath  string
}

// Counts summarizes a finished run. Duplicates counts the records the
// driver dropped because their number had already appeared.
func (s *PipelineState) Counts() bq.RunCounts {
	matched := 0
	for _, res := range s.Results {
		if len(res.Candidates) > 0 {
			matched++
		}
	}
	return bq.RunCounts{
		Records:    len(s.Records),
		Matched:    matched,
		Unmatched:  len(s.Unmatched),
		Duplicates: len(s.Records) - len(s.Results),
		Skipped:    s.SkippedRows,
	}
}

// Step 1: FetchDocumentStep loads the statement bytes from the
// configured URI.
type FetchDocumentStep struct {
	Fetcher DocumentFetcher
}

func (s *FetchDocumentStep) Name() string { return "fetch document" }

func (s *FetchDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	pdfBytes, err := s.Fetcher.Fetch(ctx, state.Config.DocumentURI)
	if err != nil {
		return err
	}
	state.PDFBytes = pdfBytes
	return nil
}

// Step 2: ExtractTablesStep pulls the per-page line-item tables out of
// the PDF.
type ExtractTablesStep struct {
	Extractor Extractor
}

func (s *ExtractTablesStep) Name() string { return "extract tables" }

func (s *ExtractTablesStep) Execute(ctx context.Context, state *PipelineState) error {
	tables, err := s.Extractor.ExtractTables(ctx, state.PDFBytes)
	if err != nil {
		return err
	}
	state.RawTables = tables
	return nil
}

// Step 3: CleanRecordsStep turns raw page tables into statement
// records. The first row of every page is its header and is discarded;
// rows too short for the statement layout are counted and skipped.
type CleanRecordsStep struct{}

func (s *CleanRecordsStep) Name() string { return "clean records" }

func (s *CleanRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	var recs []domain.TransactionRecord
	for _, page := range state.RawTables {
		if len(page) == 0 {
			continue
		}
		for _, row := range page[1:] {
			rec, err := records.CleanRow(row)
			if err != nil {
				state.SkippedRows++
				log.Debug().Int("cells", len(row)).Msg("skipping short row")
				continue
			}
			recs = append(recs, rec)
		}
	}
	state.Records = recs

	log.Info().Int("records", len(recs)).Int("skipped_rows", state.SkippedRows).Msg("cleaned statement records")
	return nil
}

// Step 4: MatchRecordsStep runs the records against the reference
// tables, once with number dedup for the report and once without to
// collect the unmatched lines.
type MatchRecordsStep struct {
	Driver *Driver
}

func (s *MatchRecordsStep) Name() string { return "match records" }

func (s *MatchRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	results, err := s.Driver.Reconcile(ctx, state.Records)
	if err != nil {
		return err
	}
	state.Results = results

	unmatched, err := s.Driver.FindUnmatched(ctx, state.Records)
	if err != nil {
		return err
	}
	state.Unmatched = unmatched
	return nil
}

// Step 5: WriteReportStep writes the reconciliation CSV.
type WriteReportStep struct{}

func (s *WriteReportStep) Name() string { return "write report" }

func (s *WriteReportStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := report.WriteFile(state.Config.ReportPath, state.Results); err != nil {
		return err
	}
	state.ReportPath = state.Config.ReportPath

	log := logger.FromContext(ctx)
	log.Info().Str("path", state.ReportPath).Msg("wrote reconciliation report")
	return nil
}

// Step 6: PersistResultsStep streams the per-record results. A nil
// store turns this into a no-op.
type PersistResultsStep struct {
	Store ResultStore
}

func (s *PersistResultsStep) Name() string { return "persist results" }

func (s *PersistResultsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Store == nil {
		return nil
	}
	return s.Store.InsertResults(ctx, resultRows(state))
}

// Step 7: CompleteRunStep marks the run finished with its counters. A
// nil store turns this into a no-op.
type CompleteRunStep struct {
	Store ResultStore
}

func (s *CompleteRunStep) Name() string { return "complete run" }

func (s *CompleteRunStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Store == nil {
		return nil
	}
	return s.Store.CompleteRun(ctx, state.RunID, state.Counts(), state.ReportPath)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// NewReconciliationPipeline creates the standard seven-step run.
func NewReconciliationPipeline(fetcher DocumentFetcher, extractor Extractor, source TableSource, store ResultStore) *Pipeline {
	return NewPipeline(
		&FetchDocumentStep{Fetcher: fetcher},
		&ExtractTablesStep{Extractor: extractor},
		&CleanRecordsStep{},
		&MatchRecordsStep{Driver: NewDriver(source)},
		&WriteReportStep{},
		&PersistResultsStep{Store: store},
		&CompleteRunStep{Store: store},
	)
}

// RunReconciliation drives one reconciliation run end to end. With a
// store the run is recorded up front and marked completed or failed;
// without one the pipeline just writes the report.
func RunReconciliation(ctx context.Context, cfg *Config, fetcher DocumentFetcher, extractor Extractor, source TableSource, store ResultStore) (*PipelineState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state := &PipelineState{Config: cfg, RunID: uuid.NewString()}

	log := logger.FromContext(ctx).With().Str("run_id", state.RunID).Logger()
	ctx = logger.WithContext(ctx, log)
	log.Info().Str("document", cfg.DocumentURI).Str("tables_dir", cfg.TablesDir).Msg("starting reconciliation run")

	if store != nil {
		row := &bq.RunRow{
			RunID:       state.RunID,
			DocumentID:  bigquery.NullString{StringVal: cfg.DocumentID, Valid: cfg.DocumentID != ""},
			DocumentURI: cfg.DocumentURI,
			TablesDir:   cfg.TablesDir,
			Status:      bq.RunStatusRunning,
			StartedAt:   time.Now(),
		}
		if err := store.InsertRun(ctx, row); err != nil {
			return nil, fmt.Errorf("insert run: %w", err)
		}
	}

	pipeline := NewReconciliationPipeline(fetcher, extractor, source, store)
	if err := pipeline.Execute(ctx, state); err != nil {
		if store != nil {
			store.FailRun(ctx, state.RunID, err)
		}
		return state, err
	}

	counts := state.Counts()
	log.Info().
		Int("records", counts.Records).
		Int("matched", counts.Matched).
		Int("unmatched", counts.Unmatched).
		Int("duplicates", counts.Duplicates).
		Int("skipped_rows", counts.Skipped).
		Msg("reconciliation run finished")
	return state, nil
}

// resultRows flattens match results into storable rows, one per
// candidate and a single unmatched row for records with none.
func resultRows(state *PipelineState) []*bq.ResultRow {
	now := time.Now()

	var rows []*bq.ResultRow
	for _, res := range state.Results {
		rec := res.Record
		base := bq.ResultRow{
			RunID:        state.RunID,
			RecordNumber: rec.Number,
			EndCustomer:  rec.EndCustomer,
			Description:  rec.Description,
			Quantity:     int64(rec.Quantity),
			NetUnitPrice: rec.NetUnitPrice.Rat(),
			TotalAmount:  rec.TotalAmount.Rat(),
			SOPONumber:   rec.SOPONumber,
			CreatedAt:    now,
		}

		if len(res.Candidates) == 0 {
			row := base
			rows = append(rows, &row)
			continue
		}

		for _, c := range res.Candidates {
			row := base
			row.Matched = true
			row.MatchDescription = bigquery.NullString{StringVal: c.Description, Valid: true}
			row.MatchCost = bigquery.NullString{StringVal: c.UnitCost, Valid: true}
			row.MatchQuantity = bigquery.NullString{StringVal: c.TotalQuantity, Valid: true}
			row.AgreementName = bigquery.NullString{StringVal: c.AgreementName, Valid: true}
			row.MatchScore = bigquery.NullInt64{Int64: int64(c.Score), Valid: true}
			rows = append(rows, &row)
		}
	}
	return rows
}
