package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/avlasov/pdfrecon/internal/docstore"
	"github.com/avlasov/pdfrecon/internal/extract"
	infraBQ "github.com/avlasov/pdfrecon/internal/infra/bigquery"
	"github.com/avlasov/pdfrecon/internal/logger"
	"github.com/avlasov/pdfrecon/internal/reconcile"
	"github.com/avlasov/pdfrecon/internal/tables"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on process env")
	}

	// Parse CLI flags
	configPath := flag.String("config", "", "Path to a YAML run config (flags override its values)")
	documentURI := flag.String("document", "", "Statement PDF to reconcile (gs://bucket/file.pdf or a local path)")
	tablesDir := flag.String("tables", "", "Directory holding the reference tables")
	reportPath := flag.String("report", "", "Where to write the reconciliation report CSV")
	model := flag.String("model", "", "Gemini model for table extraction")
	persist := flag.Bool("store", false, "Persist the run and its results to BigQuery")
	flag.Parse()

	cfg := &reconcile.Config{}
	if *configPath != "" {
		loaded, err := reconcile.LoadConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load config")
		}
		cfg = loaded
	}
	if *documentURI != "" {
		cfg.DocumentURI = *documentURI
	}
	if *tablesDir != "" {
		cfg.TablesDir = *tablesDir
	}
	if *reportPath != "" {
		cfg.ReportPath = *reportPath
	}
	if *model != "" {
		cfg.Model = *model
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
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
