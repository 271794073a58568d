package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avlasov/pdfrecon/internal/api/middleware"
	bq "github.com/avlasov/pdfrecon/internal/bigquery"
	"github.com/avlasov/pdfrecon/internal/docstore"
	"github.com/avlasov/pdfrecon/internal/jobs"
)

// DocumentsHandler handles document-related endpoints.
type DocumentsHandler struct {
	repo      bq.DocumentRepository
	publisher jobs.Publisher
	bucket    string
	tablesDir string
	log       zerolog.Logger
}

// NewDocumentsHandler creates a new documents handler. tablesDir is
// the default reference table directory for enqueued runs.
func NewDocumentsHandler(repo bq.DocumentRepository, publisher jobs.Publisher, bucket, tablesDir string, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		repo:      repo,
		publisher: publisher,
		bucket:    bucket,
		tablesDir: tablesDir,
		log:       log,
	}
}

// ListDocuments handles GET /api/documents
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	documents, err := h.repo.ListDocuments(ctx, queryInt(r, "limit"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list documents")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
		"count":     len(documents),
	})
}

// GetDocument handles GET /api/documents/{id}
func (h *DocumentsHandler) GetDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	doc, err := h.repo.GetDocument(r.Context(), documentID)
	if err != nil {
		h.log.Error().Err(err).Str("document_id", documentID).Msg("Failed to get document")
		middleware.WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, doc)
}

// CreateUploadURL handles POST /api/documents/upload-url
func (h *DocumentsHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	// Generate unique object name
	objectName := fmt.Sprintf("uploads/%s/%s", time.Now().Format("2006/01/02"), uuid.NewString()+"-"+req.Filename)
	gcsURI := fmt.Sprintf("gs://%s/%s", h.bucket, objectName)
	documentID := uuid.NewString()

	// The API proxies the upload itself. With service accounts this
	// would hand out a signed URL instead.
	uploadURL := fmt.Sprintf("/api/documents/upload/%s?object_name=%s&filename=%s",
		documentID, url.QueryEscape(objectName), url.QueryEscape(req.Filename))

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"upload_url":  uploadURL,
		"gcs_uri":     gcsURI,
		"object_name": objectName,
		"document_id": documentID,
	})
}

// UploadDocument handles POST /api/documents/upload/{id}
func (h *DocumentsHandler) UploadDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	ctx := r.Context()

	// Object name comes back from CreateUploadURL.
	objectName := r.URL.Query().Get("object_name")
	if objectName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "object_name is required")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", h.bucket, objectName)

	client, err := storage.NewClient(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create storage client")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}
	defer client.Close()

	wc := client.Bucket(h.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType

	written, err := io.Copy(wc, r.Body)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to write to GCS")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	if err := wc.Close(); err != nil {
		h.log.Error().Err(err).Msg("Failed to close GCS writer")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	h.log.Info().
		Str("document_id", documentID).
		Str("gcs_uri", gcsURI).
		Int64("bytes", written).
		Msg("File uploaded")

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "document.pdf"
	}
	if idx := strings.Index(filename, "?"); idx > 0 {
		filename = filename[:idx]
	}
	filename = docstore.Filename(filename)

	// Optional statement date, YYYY-MM-DD.
	var documentDate bigquery.NullDate
	if raw := r.URL.Query().Get("document_date"); raw != "" {
		d, err := civil.ParseDate(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "document_date must be YYYY-MM-DD")
			return
		}
		documentDate = bigquery.NullDate{Date: d, Valid: true}
	}

	doc := &bq.DocumentRow{
		DocumentID:   documentID,
		FileName:     filename,
		GCSURI:       gcsURI,
		ContentType:  contentType,
		SizeBytes:    written,
		Status:       bq.DocumentStatusUploaded,
		DocumentDate: documentDate,
		UploadedAt:   time.Now(),
	}

	if err := h.repo.InsertDocument(ctx, doc); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert document metadata")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save document metadata")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"document_id": documentID,
		"gcs_uri":     gcsURI,
		"status":      bq.DocumentStatusUploaded,
	})
}

// EnqueueReconciliation handles POST /api/documents/reconcile
func (h *DocumentsHandler) EnqueueReconciliation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID string `json:"document_id"`
		GCSURI     string `json:"gcs_uri"`
		TablesDir  string `json:"tables_dir"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DocumentID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "document_id is required")
		return
	}

	ctx := r.Context()

	if req.GCSURI == "" {
		doc, err := h.repo.GetDocument(ctx, req.DocumentID)
		if err != nil {
			h.log.Error().Err(err).Str("document_id", req.DocumentID).Msg("Failed to get document")
			middleware.WriteError(w, http.StatusNotFound, "Document not found")
			return
		}
		req.GCSURI = doc.GCSURI
	}

	tablesDir := req.TablesDir
	if tablesDir == "" {
		tablesDir = h.tablesDir
	}

	job := &jobs.ReconcileDocumentJob{
		DocumentID: req.DocumentID,
		GCSURI:     req.GCSURI,
		TablesDir:  tablesDir,
	}

	if err := h.publisher.PublishReconcileDocument(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue reconciliation job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue reconciliation job")
		return
	}

	// Best effort; the run itself does not depend on this status.
	if err := h.repo.UpdateDocumentStatus(ctx, req.DocumentID, bq.DocumentStatusQueued); err != nil {
		h.log.Warn().Err(err).Str("document_id", req.DocumentID).Msg("Failed to mark document queued")
	}

	h.log.Info().Str("job_id", job.JobID).Str("document_id", req.DocumentID).Msg("Reconciliation job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.JobID,
		"document_id": req.DocumentID,
		"status":      string(job.Status),
	})
}

// RunsHandler handles reconciliation run endpoints.
type RunsHandler struct {
	repo bq.RunRepository
	log  zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo bq.RunRepository, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		repo: repo,
		log:  log,
	}
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repo.ListRuns(r.Context(), queryInt(r, "limit"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.repo.GetRun(r.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}

// GetRunResults handles GET /api/runs/{id}/results
func (h *RunsHandler) GetRunResults(w http.ResponseWriter, r *http.Request, runID string) {
	onlyUnmatched, _ := strconv.ParseBool(r.URL.Query().Get("unmatched"))

	results, err := h.repo.ResultsForRun(r.Context(), runID, onlyUnmatched)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to list run results")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list run results")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// GetRunReport handles GET /api/runs/{id}/report
func (h *RunsHandler) GetRunReport(w http.ResponseWriter, r *http.Request, runID string) {
	ctx := r.Context()

	run, err := h.repo.GetRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}

	if !run.ReportURI.Valid || run.ReportURI.StringVal == "" {
		middleware.WriteError(w, http.StatusNotFound, "Run has no report")
		return
	}

	data, err := docstore.Fetch(ctx, run.ReportURI.StringVal)
	if err != nil {
		h.log.Error().Err(err).Str("report_uri", run.ReportURI.StringVal).Msg("Failed to fetch report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to fetch report")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=reconciliation-%s.csv", runID))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentID: query.Get("document_id"),
		Status:     jobs.JobStatus(query.Get("status")),
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// queryInt reads an integer query parameter, zero when absent or
// malformed.
func queryInt(r *http.Request, name string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
