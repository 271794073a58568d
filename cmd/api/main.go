package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/avlasov/pdfrecon/internal/api/handlers"
	"github.com/avlasov/pdfrecon/internal/api/middleware"
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
	// Parse command-line flags
	var (
		port      = flag.String("port", "8080", "HTTP server port")
		bucket    = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name for document uploads (or set GCS_BUCKET env)")
		tablesDir = flag.String("tables", os.Getenv("REFERENCE_TABLES_DIR"), "Default reference tables directory for enqueued runs (or set REFERENCE_TABLES_DIR env)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on process env")
	}

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - document uploads will be disabled")
	}

	// Initialize repositories
	ctx := context.Background()

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

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Start job consumer in background
	handlerLog := logger.WithComponent(log, "worker")
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, reconcileJobHandler(handlerLog, docRepo, runRepo)); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	documentsHandler := handlers.NewDocumentsHandler(docRepo, jobQueue, *bucket, *tablesDir, log)
	runsHandler := handlers.NewRunsHandler(runRepo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Documents endpoints
	mux.HandleFunc("/api/documents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			documentsHandler.ListDocuments(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/documents/upload-url", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			documentsHandler.CreateUploadURL(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/documents/upload/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			// Extract document ID from path
			documentID := strings.TrimPrefix(r.URL.Path, "/api/documents/upload/")
			if documentID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Document ID is required")
				return
			}
			documentsHandler.UploadDocument(w, r, documentID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/documents/reconcile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			documentsHandler.EnqueueReconciliation(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/documents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract document ID from path
			documentID := strings.TrimPrefix(r.URL.Path, "/api/documents/")
			if documentID == "" || strings.Contains(documentID, "/") {
				middleware.WriteError(w, http.StatusNotFound, "Not found")
				return
			}
			documentsHandler.GetDocument(w, r, documentID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Runs endpoints
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runsHandler.ListRuns(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Extract run ID and optional sub-resource from path
		rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		if rest == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Run ID is required")
			return
		}
		switch {
		case strings.HasSuffix(rest, "/results"):
			runsHandler.GetRunResults(w, r, strings.TrimSuffix(rest, "/results"))
		case strings.HasSuffix(rest, "/report"):
			runsHandler.GetRunReport(w, r, strings.TrimSuffix(rest, "/report"))
		case strings.Contains(rest, "/"):
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		default:
			runsHandler.GetRun(w, r, rest)
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
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
