package notionsync

import (
	"context"

	"github.com/jomei/notionapi"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
)

// NotionService defines the interface for interacting with the Notion
// API. It exists so the sync logic can be tested against a mock.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// UpdatePage updates an existing Notion page with the given properties.
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase queries a Notion database with the given filter.
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// DeletePage archives a Notion page.
	DeletePage(ctx context.Context, pageID string) error
}

// ResultSource is the minimal view of the run repository the sync
// needs.
type ResultSource interface {
	ResultsForRun(ctx context.Context, runID string, onlyUnmatched bool) ([]*bq.ResultRow, error)
}
