package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/avlasov/pdfrecon/internal/docstore"
	"github.com/avlasov/pdfrecon/internal/extract"
	infraBQ "github.com/avlasov/pdfrecon/internal/infra/bigquery"
	"github.com/avlasov/pdfrecon/internal/logger"
	"github.com/avlasov/pdfrecon/internal/reconcile"
	"github.com/avlasov/pdfrecon/internal/tables"
)

func main() {
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on process env")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "reconcile":
		runReconcile(log)
	case "unmatched":
		runUnmatched(log)
	case "tables":
		runTables(log)
	case "runs":
		runRuns(log)
	case "report":
		runReport(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Reconciliation CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  reconcile  Reconcile a vendor statement against the reference tables")
	fmt.Println("  unmatched  List the unmatched records of a stored run")
	fmt.Println("  tables     Profile the reference tables in a directory")
	fmt.Println("  runs       List recent reconciliation runs")
	fmt.Println("  report     Download the report CSV of a stored run")
	fmt.Println("  upload     Upload a statement PDF to GCS")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runReconcile(log zerolog.Logger) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	documentURI := fs.String("document", "", "Statement PDF (gs:// URI or local path)")
	tablesDir := fs.String("tables", "", "Directory holding the reference tables")
	reportPath := fs.String("report", "", "Where to write the reconciliation report CSV")
	model := fs.String("model", "", "Gemini model for table extraction")
	persist := fs.Bool("store", false, "Persist the run and its results to BigQuery")
	fs.Parse(os.Args[2:])

	cfg := &reconcile.Config{
		DocumentURI: *documentURI,
		TablesDir:   *tablesDir,
		ReportPath:  *reportPath,
		Model:       *model,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var store reconcile.ResultStore
	if *persist {
		repo, err := infraBQ.NewBigQueryRunRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create run repository")
		}
		defer repo.Close()
		store = repo
	}

	log.Info().Str("document", cfg.DocumentURI).Msg("Starting reconciliation")

	state, err := reconcile.RunReconciliation(ctx, cfg,
		docstore.GCS{},
		extract.NewGeminiExtractorWithModel(cfg.Model),
		tables.NewDirStore(cfg.TablesDir),
		store,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Reconciliation failed")
	}

	counts := state.Counts()
	fmt.Printf("Reconciliation completed: %d records, %d matched, %d unmatched.\n",
		counts.Records, counts.Matched, counts.Unmatched)
	fmt.Printf("Report written to %s\n", state.ReportPath)
}

func runUnmatched(log zerolog.Logger) {
	fs := flag.NewFlagSet("unmatched", flag.ExitOnError)
	runID := fs.String("run-id", "", "Run ID to list unmatched records for")
	fs.Parse(os.Args[2:])

	if *runID == "" {
		log.Fatal().Msg("Error: --run-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQueryRunRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create run repository")
	}
	defer repo.Close()

	results, err := repo.ResultsForRun(ctx, *runID, true)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query unmatched results")
	}

	fmt.Printf("\n=== Unmatched Records (%d) ===\n", len(results))
	for i, row := range results {
		fmt.Printf("\n%d. %s\n", i+1, row.RecordNumber)
		fmt.Printf("   Customer:    %s\n", row.EndCustomer)
		fmt.Printf("   Description: %s\n", row.Description)
		fmt.Printf("   Quantity:    %d\n", row.Quantity)
		if row.NetUnitPrice != nil {
			fmt.Printf("   Unit Price:  %s\n", row.NetUnitPrice.FloatString(2))
		}
		if row.SOPONumber != "" {
			fmt.Printf("   SO/PO:       %s\n", row.SOPONumber)
		}
	}
	fmt.Println()
}

func runTables(log zerolog.Logger) {
	fs := flag.NewFlagSet("tables", flag.ExitOnError)
	dir := fs.String("dir", "", "Directory holding the reference tables")
	fs.Parse(os.Args[2:])

	if *dir == "" {
		log.Fatal().Msg("Error: --dir is required")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	store := tables.NewDirStore(*dir)
	names, err := store.Tables(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list reference tables")
	}

	fmt.Printf("\n=== Reference Tables (%d) ===\n", len(names))
	for _, name := range names {
		rows, err := store.Rows(ctx, name)
		if err != nil {
			fmt.Printf("\n%s: failed to load: %v\n", name, err)
			continue
		}

		profile := tables.Inspect(name, rows)
		fmt.Printf("\n%s\n", profile.Name)
		fmt.Printf("   Rows:        %d\n", profile.RowCount)
		fmt.Printf("   Cost col:    %s\n", orNone(profile.CostColumn))
		fmt.Printf("   Qty col:     %s\n", orNone(profile.QuantityColumn))
		fmt.Printf("   Description: %v\n", profile.HasDescription)
	}
	fmt.Println()
}

func runRuns(log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQueryRunRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create run repository")
	}
	defer repo.Close()

	runs, err := repo.ListRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list runs")
	}

	fmt.Printf("\n=== Runs (%d) ===\n", len(runs))
	for i, run := range runs {
		fmt.Printf("\n%d. %s\n", i+1, run.RunID)
		fmt.Printf("   Status:    %s\n", run.Status)
		fmt.Printf("   Document:  %s\n", run.DocumentURI)
		fmt.Printf("   Started:   %s\n", run.StartedAt.Format(time.RFC3339))
		fmt.Printf("   Records:   %d (%d matched, %d unmatched)\n",
			run.RecordCount, run.MatchedCount, run.UnmatchedCount)
		if run.ReportURI.Valid {
			fmt.Printf("   Report:    %s\n", run.ReportURI.StringVal)
		}
		if run.ErrorMessage.Valid {
			fmt.Printf("   Error:     %s\n", run.ErrorMessage.StringVal)
		}
	}
	fmt.Println()
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	runID := fs.String("run-id", "", "Run ID to download the report for")
	outPath := fs.String("out", "", "Where to write the report CSV (defaults to the report file name)")
	fs.Parse(os.Args[2:])

	if *runID == "" {
		log.Fatal().Msg("Error: --run-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQueryRunRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create run repository")
	}
	defer repo.Close()

	run, err := repo.GetRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get run")
	}
	if !run.ReportURI.Valid || run.ReportURI.StringVal == "" {
		log.Fatal().Str("run_id", *runID).Msg("Run has no report")
	}

	dest := *outPath
	if dest == "" {
		dest = docstore.Filename(run.ReportURI.StringVal)
	}

	if err := docstore.Download(ctx, run.ReportURI.StringVal, dest); err != nil {
		log.Fatal().Err(err).Msg("Failed to download report")
	}

	fmt.Printf("Report for run %s written to %s\n", *runID, dest)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local PDF file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	uri, err := docstore.Upload(ctx, *filePath, *bucketName, *objectName)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
