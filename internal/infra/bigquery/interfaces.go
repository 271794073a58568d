package bigquery

import (
	bq "github.com/avlasov/pdfrecon/internal/bigquery"
)

// Re-export interfaces from shared package so callers can depend on
// this package alone.
type DocumentRepository = bq.DocumentRepository
type RunRepository = bq.RunRepository

var _ DocumentRepository = (*BigQueryDocumentRepository)(nil)
var _ RunRepository = (*BigQueryRunRepository)(nil)
