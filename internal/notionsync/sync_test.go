package notionsync_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/jomei/notionapi"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
	"github.com/avlasov/pdfrecon/internal/notionsync"
)

type MockResultSource struct {
	ResultsForRunFunc func(ctx context.Context, runID string, onlyUnmatched bool) ([]*bq.ResultRow, error)
}

func (m *MockResultSource) ResultsForRun(ctx context.Context, runID string, onlyUnmatched bool) ([]*bq.ResultRow, error) {
	if m.ResultsForRunFunc != nil {
		return m.ResultsForRunFunc(ctx, runID, onlyUnmatched)
	}
	return nil, nil
}

type MockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePageFunc    func(ctx context.Context, pageID string) error
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	return &notionapi.Page{}, nil
}

func (m *MockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.UpdatePageFunc != nil {
		return m.UpdatePageFunc(ctx, pageID, properties)
	}
	return &notionapi.Page{}, nil
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.QueryDatabaseFunc != nil {
		return m.QueryDatabaseFunc(ctx, databaseID, req)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (m *MockNotionService) DeletePage(ctx context.Context, pageID string) error {
	if m.DeletePageFunc != nil {
		return m.DeletePageFunc(ctx, pageID)
	}
	return nil
}

func unmatchedRow(runID, number string) *bq.ResultRow {
	return &bq.ResultRow{
		RunID:        runID,
		RecordNumber: number,
		EndCustomer:  "Acme Corp",
		Description:  "Widget Pro Enterprise License",
		Quantity:     2,
		NetUnitPrice: big.NewRat(2500, 100),
		TotalAmount:  big.NewRat(5000, 100),
		SOPONumber:   "SO-1",
	}
}

func notionPage(id, number string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			"Record Number": &notionapi.TitleProperty{
				Title: []notionapi.RichText{
					{PlainText: number},
				},
			},
		},
	}
}

func TestSyncUnmatchedCreatesMissingPages(t *testing.T) {
	store := &MockResultSource{
		ResultsForRunFunc: func(ctx context.Context, runID string, onlyUnmatched bool) ([]*bq.ResultRow, error) {
			if !onlyUnmatched {
				t.Error("expected the sync to request unmatched results only")
			}
			return []*bq.ResultRow{
				unmatchedRow(runID, "1001"),
				unmatchedRow(runID, "2002"),
			}, nil
		},
	}

	var created []notionapi.Properties
	client := &MockNotionService{
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			created = append(created, properties)
			return &notionapi.Page{}, nil
		},
	}

	if err := notionsync.SyncUnmatched(context.Background(), store, client, "db-1", "run-1", false); err != nil {
		t.Fatalf("SyncUnmatched() error = %v", err)
	}

	if len(created) != 2 {
		t.Fatalf("created %d pages, want 2", len(created))
	}

	title, ok := created[0]["Record Number"].(notionapi.TitleProperty)
	if !ok {
		t.Fatal("first page has no Record Number title property")
	}
	if got := title.Title[0].Text.Content; got != "1001" {
		t.Errorf("first page record number = %q, want %q", got, "1001")
	}

	status, ok := created[0]["Status"].(notionapi.SelectProperty)
	if !ok {
		t.Fatal("first page has no Status property")
	}
	if status.Select.Name != "Needs Review" {
		t.Errorf("status = %q, want %q", status.Select.Name, "Needs Review")
	}
}

func TestSyncUnmatchedArchivesStalePages(t *testing.T) {
	store := &MockResultSource{
		ResultsForRunFunc: func(ctx context.Context, runID string, onlyUnmatched bool) ([]*bq.ResultRow, error) {
			return []*bq.ResultRow{unmatchedRow(runID, "1001")}, nil
		},
	}

	var createdCount int
	var updatedPages []string
	var deleted []string
	client := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{
					notionPage("page-1", "1001"),
					notionPage("page-2", "9999"),
				},
			}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			createdCount++
			return &notionapi.Page{}, nil
		},
		UpdatePageFunc: func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
			updatedPages = append(updatedPages, pageID)
			return &notionapi.Page{}, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			deleted = append(deleted, pageID)
			return nil
		},
	}

	if err := notionsync.SyncUnmatched(context.Background(), store, client, "db-1", "run-1", false); err != nil {
		t.Fatalf("SyncUnmatched() error = %v", err)
	}

	if len(deleted) != 1 || deleted[0] != "page-2" {
		t.Errorf("deleted = %v, want [page-2]", deleted)
	}
	if createdCount != 0 {
		t.Errorf("created %d pages for records that already have one, want 0", createdCount)
	}
	if len(updatedPages) != 1 || updatedPages[0] != "page-1" {
		t.Errorf("updated = %v, want [page-1]", updatedPages)
	}
}

func TestSyncUnmatchedDryRun(t *testing.T) {
	store := &MockResultSource{
		ResultsForRunFunc: func(ctx context.Context, runID string, onlyUnmatched bool) ([]*bq.ResultRow, error) {
			return []*bq.ResultRow{unmatchedRow(runID, "1001")}, nil
		},
	}

	client := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{notionPage("page-2", "9999")},
			}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Error("CreatePage called during dry run")
			return &notionapi.Page{}, nil
		},
		UpdatePageFunc: func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Error("UpdatePage called during dry run")
			return &notionapi.Page{}, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			t.Error("DeletePage called during dry run")
			return nil
		},
	}

	if err := notionsync.SyncUnmatched(context.Background(), store, client, "db-1", "run-1", true); err != nil {
		t.Fatalf("SyncUnmatched() error = %v", err)
	}
}

func TestSyncUnmatchedPaginatesDatabase(t *testing.T) {
	store := &MockResultSource{}

	var queries int
	client := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			queries++
			if queries == 1 {
				if req.StartCursor != "" {
					t.Errorf("first query cursor = %q, want empty", req.StartCursor)
				}
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{notionPage("page-1", "1001")},
					HasMore:    true,
					NextCursor: "cursor-1",
				}, nil
			}
			if req.StartCursor != "cursor-1" {
				t.Errorf("second query cursor = %q, want %q", req.StartCursor, "cursor-1")
			}
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{notionPage("page-2", "2002")},
			}, nil
		},
	}

	if err := notionsync.SyncUnmatched(context.Background(), store, client, "db-1", "run-1", true); err != nil {
		t.Fatalf("SyncUnmatched() error = %v", err)
	}

	if queries != 2 {
		t.Errorf("queried the database %d times, want 2", queries)
	}
}
