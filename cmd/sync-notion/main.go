package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	infraBQ "github.com/avlasov/pdfrecon/internal/infra/bigquery"
	"github.com/avlasov/pdfrecon/internal/logger"
	"github.com/avlasov/pdfrecon/internal/notionsync"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on process env")
	}

	// Parse CLI flags
	runID := flag.String("run", "", "Run ID whose unmatched records to publish (required)")
	notionToken := flag.String("notion-token", os.Getenv("NOTION_API_TOKEN"), "Notion API token (or set NOTION_API_TOKEN env)")
	notionDBID := flag.String("notion-db-id", os.Getenv("NOTION_DATABASE_ID"), "Notion database ID (or set NOTION_DATABASE_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *runID == "" {
		log.Fatal().Msg("Error: --run is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_API_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_DATABASE_ID is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("run_id", *runID).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	// Initialize BigQuery repository
	repo, err := infraBQ.NewBigQueryRunRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	// Publish unmatched records
	if err := notionsync.SyncUnmatched(ctx, repo, notionClient, *notionDBID, *runID, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
