package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/avlasov/pdfrecon/internal/logger"
)

// SyncUnmatched mirrors the unmatched results of a reconciliation run
// into a Notion database so the finance team can work through them.
// Pages for records that are no longer unmatched are archived, and
// missing records get a new page. With dryRun set the sync only logs
// what it would change.
func SyncUnmatched(ctx context.Context, store ResultSource, client NotionService, databaseID, runID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	// Step 1: Fetch the unmatched results for the run.
	results, err := store.ResultsForRun(ctx, runID, true)
	if err != nil {
		return fmt.Errorf("fetch unmatched results: %w", err)
	}
	log.Info().
		Str("run_id", runID).
		Int("count", len(results)).
		Msg("Fetched unmatched results")

	// Step 2: Build the set of record numbers that should exist.
	valid := make(map[string]*notionapi.Properties, len(results))
	order := make([]string, 0, len(results))
	for _, row := range results {
		if row.RecordNumber == "" {
			continue
		}
		if _, ok := valid[row.RecordNumber]; ok {
			continue
		}
		props := ResultToNotionProperties(row)
		valid[row.RecordNumber] = &props
		order = append(order, row.RecordNumber)
	}

	// Step 3: Query every page currently in the database.
	pages, err := queryAllNotionPages(ctx, client, databaseID)
	if err != nil {
		return fmt.Errorf("query notion database: %w", err)
	}
	log.Info().
		Int("count", len(pages)).
		Msg("Fetched existing Notion pages")

	// Step 4: Archive pages whose record is no longer unmatched.
	existing := make(map[string]string, len(pages))
	deleted := 0
	for _, page := range pages {
		number := extractRecordNumber(page)
		if number == "" {
			log.Warn().
				Str("page_id", string(page.ID)).
				Msg("Page has no record number, skipping")
			continue
		}
		if _, ok := valid[number]; ok {
			existing[number] = string(page.ID)
			continue
		}

		if dryRun {
			log.Info().
				Str("record_number", number).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale page")
			deleted++
			continue
		}

		if err := client.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("record_number", number).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale page")
			continue
		}
		log.Info().
			Str("record_number", number).
			Msg("Archived stale page")
		deleted++
	}

	// Step 5: Create missing pages and refresh the ones that remain.
	created := 0
	updated := 0
	for _, number := range order {
		pageID, ok := existing[number]

		if dryRun {
			if ok {
				log.Info().
					Str("record_number", number).
					Msg("[DRY RUN] Would update page")
				updated++
			} else {
				log.Info().
					Str("record_number", number).
					Msg("[DRY RUN] Would create page")
				created++
			}
			continue
		}

		if ok {
			if _, err := client.UpdatePage(ctx, pageID, *valid[number]); err != nil {
				log.Warn().
					Err(err).
					Str("record_number", number).
					Str("page_id", pageID).
					Msg("Failed to update page")
				continue
			}
			updated++
			continue
		}

		if _, err := client.CreatePage(ctx, databaseID, *valid[number]); err != nil {
			log.Warn().
				Err(err).
				Str("record_number", number).
				Msg("Failed to create page")
			continue
		}
		log.Info().
			Str("record_number", number).
			Msg("Created page")
		created++
	}

	log.Info().
		Str("run_id", runID).
		Int("unmatched", len(valid)).
		Int("created", created).
		Int("updated", updated).
		Int("archived", deleted).
		Bool("dry_run", dryRun).
		Msg("Notion sync complete")

	return nil
}

// queryAllNotionPages pages through the database 100 pages at a time
// until Notion reports no more results.
func queryAllNotionPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}

		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return pages, nil
}

// extractRecordNumber reads the title property a synced page was
// created with. Pages made by hand without one are skipped upstream.
func extractRecordNumber(page notionapi.Page) string {
	prop, ok := page.Properties["Record Number"]
	if !ok {
		return ""
	}
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok {
		return ""
	}
	for _, rt := range title.Title {
		if rt.PlainText != "" {
			return rt.PlainText
		}
		if rt.Text != nil && rt.Text.Content != "" {
			return rt.Text.Content
		}
	}
	return ""
}
