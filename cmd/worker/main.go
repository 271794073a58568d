package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
	"github.com/avlasov/pdfrecon/internal/docstore"
	"github.com/avlasov/pdfrecon/internal/extract"
	infraBQ "github.com/avlasov/pdfrecon/internal/infra/bigquery"
	"github.com/avlasov/pdfrecon/internal/jobs"
	"github.com/avlasov/pdfrecon/internal/jobs/inmemory"
	"github.com/avlasov/pdfrecon/internal/logger"
	"github.com/avlasov/pdfrecon/internal/reconcile"
	"github.com/avlasov/pdfrecon/internal/tables"
)

func main() {
	// Initialize logger
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on process env")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	docRepo, err := infraBQ.NewBigQueryDocumentRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create document repository")
	}
	defer docRepo.Close()

	runRepo, err := infraBQ.NewBigQueryRunRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create run repository")
	}
	defer runRepo.Close()

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting worker service")

	// Start consuming jobs
	handlerLog := logger.WithComponent(log, "worker")
	if err := jobQueue.Start(ctx, reconcileJobHandler(handlerLog, docRepo, runRepo)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Close the queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}

// reconcileJobHandler runs the reconciliation pipeline for each queued
// job and moves the source document through its status lifecycle.
func reconcileJobHandler(log zerolog.Logger, docRepo bq.DocumentRepository, runRepo bq.RunRepository) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		reconJob, ok := job.(*jobs.ReconcileDocumentJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", reconJob.JobID).
			Str("document_id", reconJob.DocumentID).
			Str("gcs_uri", reconJob.GCSURI).
			Msg("Processing reconciliation job")

		reportPath := reconJob.ReportPath
		if reportPath == "" {
			reportPath = fmt.Sprintf("reconciliation_report_%s.csv", reconJob.DocumentID)
		}

		cfg := &reconcile.Config{
			DocumentURI: reconJob.GCSURI,
			TablesDir:   reconJob.TablesDir,
			ReportPath:  reportPath,
			DocumentID:  reconJob.DocumentID,
		}

		ctx = logger.WithContext(ctx, log)

		state, err := reconcile.RunReconciliation(ctx, cfg,
			docstore.GCS{},
			extract.NewGeminiExtractor(),
			tables.NewDirStore(cfg.TablesDir),
			runRepo,
		)
		if state != nil {
			reconJob.RunID = state.RunID
		}
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", reconJob.JobID).
				Str("document_id", reconJob.DocumentID).
				Msg("Pipeline execution failed")
			markDocument(ctx, log, docRepo, reconJob.DocumentID, bq.DocumentStatusFailed)
			return err
		}

		markDocument(ctx, log, docRepo, reconJob.DocumentID, bq.DocumentStatusReconciled)

		log.Info().
			Str("job_id", reconJob.JobID).
			Str("document_id", reconJob.DocumentID).
			Str("run_id", reconJob.RunID).
			Msg("Pipeline execution completed successfully")

		return nil
	}
}

// markDocument is best effort; runs triggered for a raw gs:// URI have
// no document row to update.
func markDocument(ctx context.Context, log zerolog.Logger, repo bq.DocumentRepository, documentID, status string) {
	if documentID == "" {
		return
	}
	if err := repo.UpdateDocumentStatus(ctx, documentID, status); err != nil {
		log.Warn().
			Err(err).
			Str("document_id", documentID).
			Str("status", status).
			Msg("Failed to update document status")
	}
}
