package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/avlasov/pdfrecon/internal/docstore"
	"github.com/avlasov/pdfrecon/internal/domain"
	"github.com/avlasov/pdfrecon/internal/extract"
	"github.com/avlasov/pdfrecon/internal/records"
)

// Debug tool for iterating on the extraction prompt. Runs extraction
// and cleaning only, no matching, and dumps the cleaned records.
func main() {
	if err := run(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func run() error {
	uri := flag.String("uri", "", "Statement PDF to extract (gs:// URI or local path)")
	model := flag.String("model", "", "Gemini model (defaults to "+extract.DefaultModelName+")")
	raw := flag.Bool("raw", false, "Dump the raw page tables instead of cleaned records")
	flag.Parse()

	if *uri == "" {
		return fmt.Errorf("-uri is required")
	}

	ctx := context.Background()

	pdfBytes, err := docstore.Fetch(ctx, *uri)
	if err != nil {
		return err
	}

	extractor := extract.NewGeminiExtractorWithModel(*model)
	pages, err := extractor.ExtractTables(ctx, pdfBytes)
	if err != nil {
		return err
	}

	if *raw {
		return dump(pages)
	}

	var cleaned []domain.TransactionRecord
	skipped := 0
	for _, page := range pages {
		if len(page) == 0 {
			continue
		}
		// First row of every page table is the header.
		for _, row := range page[1:] {
			rec, err := records.CleanRow(row)
			if errors.Is(err, records.ErrTooFewCells) {
				skipped++
				continue
			}
			if err != nil {
				return err
			}
			cleaned = append(cleaned, rec)
		}
	}

	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "skipped %d short rows\n", skipped)
	}

	return dump(cleaned)
}

func dump(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	os.Stdout.Write(out)
	fmt.Println()
	return nil
}
