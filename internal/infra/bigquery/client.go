// Package bigquery implements the reconciliation repositories on
// Google BigQuery.
package bigquery

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
)

// Defaults for the sandbox project; override with BQ_PROJECT_ID and
// BQ_DATASET_ID.
const (
	defaultProjectID = "recon-sandbox"
	defaultDatasetID = "reconciliation"
)

// Table names inside the dataset.
const (
	TableDocuments = "documents"
	TableRuns      = "reconciliation_runs"
	TableResults   = "reconciliation_results"
)

// ProjectID returns the active BigQuery project.
func ProjectID() string {
	return envOr("BQ_PROJECT_ID", defaultProjectID)
}

// DatasetID returns the active BigQuery dataset.
func DatasetID() string {
	return envOr("BQ_DATASET_ID", defaultDatasetID)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient(ctx context.Context) (*bigquery.Client, error) {
	client, err := bigquery.NewClient(ctx, ProjectID())
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return client, nil
}

// tableRef renders a fully qualified table name for query text.
func tableRef(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", ProjectID(), DatasetID(), table)
}

// runDML executes a DML statement and surfaces the job error.
func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: run query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: wait for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job failed: %w", op, err)
	}
	return nil
}
