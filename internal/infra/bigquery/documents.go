package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
)

// defaultListLimit bounds unpaginated listings.
const defaultListLimit = 100

const documentColumns = "document_id, file_name, gcs_uri, content_type, size_bytes, status, document_date, uploaded_at"

// BigQueryDocumentRepository stores statement documents in the
// documents table.
type BigQueryDocumentRepository struct {
	client *bigquery.Client
}

// NewBigQueryDocumentRepository creates a repository with its own
// BigQuery client.
func NewBigQueryDocumentRepository(ctx context.Context) (*BigQueryDocumentRepository, error) {
	client, err := newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &BigQueryDocumentRepository{client: client}, nil
}

// Close releases the underlying client.
func (r *BigQueryDocumentRepository) Close() error {
	return r.client.Close()
}

// InsertDocument registers an uploaded document. The insert goes
// through DML rather than the streaming inserter so that later status
// updates are not rejected by the streaming buffer.
func (r *BigQueryDocumentRepository) InsertDocument(ctx context.Context, row *bq.DocumentRow) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (@document_id, @file_name, @gcs_uri, @content_type, @size_bytes, @status, @document_date, @uploaded_at)`,
		tableRef(TableDocuments), documentColumns))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: row.DocumentID},
		{Name: "file_name", Value: row.FileName},
		{Name: "gcs_uri", Value: row.GCSURI},
		{Name: "content_type", Value: row.ContentType},
		{Name: "size_bytes", Value: row.SizeBytes},
		{Name: "status", Value: row.Status},
		{Name: "document_date", Value: row.DocumentDate},
		{Name: "uploaded_at", Value: row.UploadedAt},
	}
	return runDML(ctx, q, "insert document")
}

// GetDocument retrieves one document by its id.
func (r *BigQueryDocumentRepository) GetDocument(ctx context.Context, documentID string) (*bq.DocumentRow, error) {
	q := r.client.Query(fmt.Sprintf(
		`SELECT %s FROM %s WHERE document_id = @document_id LIMIT 1`,
		documentColumns, tableRef(TableDocuments)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}

	var row bq.DocumentRow
	err = it.Next(&row)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("document %s not found", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	return &row, nil
}

// ListDocuments retrieves documents, newest first.
func (r *BigQueryDocumentRepository) ListDocuments(ctx context.Context, limit int) ([]*bq.DocumentRow, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := r.client.Query(fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY uploaded_at DESC LIMIT @limit`,
		documentColumns, tableRef(TableDocuments)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var rows []*bq.DocumentRow
	for {
		var row bq.DocumentRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

// UpdateDocumentStatus moves a document through its lifecycle.
func (r *BigQueryDocumentRepository) UpdateDocumentStatus(ctx context.Context, documentID, status string) error {
	q := r.client.Query(fmt.Sprintf(
		`UPDATE %s SET status = @status WHERE document_id = @document_id`,
		tableRef(TableDocuments)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "document_id", Value: documentID},
	}
	return runDML(ctx, q, "update document status")
}
