// Package extract pulls line-item tables out of statement PDFs using
// Gemini. The model sees the raw PDF bytes and answers with strict
// JSON; no OCR or layout analysis happens locally.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/avlasov/pdfrecon/internal/logger"
)

// DefaultModelName is the Gemini model used for table extraction.
const DefaultModelName = "gemini-2.5-flash"

// GeminiExtractor extracts statement tables through the Gemini API.
// The zero value is not usable; construct with NewGeminiExtractor.
type GeminiExtractor struct {
	model string
}

// NewGeminiExtractor creates an extractor on the default model.
func NewGeminiExtractor() *GeminiExtractor {
	return &GeminiExtractor{model: DefaultModelName}
}

// NewGeminiExtractorWithModel creates an extractor on a specific model.
// An empty model name falls back to the default.
func NewGeminiExtractorWithModel(model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{model: model}
}

// ExtractTables returns one table per PDF page that has one, as rows of
// string cells. The first row of every table is that page's header row;
// callers discard it before cleaning.
func (g *GeminiExtractor) ExtractTables(ctx context.Context, pdfBytes []byte) ([][][]string, error) {
	log := logger.FromContext(ctx)
	log.Debug().Int("pdf_bytes", len(pdfBytes)).Str("model", g.model).Msg("extracting statement tables")

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt},
				{InlineData: &genai.Blob{
					MIMEType: "application/pdf",
					Data:     pdfBytes,
				}},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("model returned an empty response")
	}

	cleaned := cleanResponseJSON(raw)

	var tables [][][]string
	if err := json.Unmarshal([]byte(cleaned), &tables); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}

	log.Debug().Int("tables", len(tables)).Msg("extracted statement tables")
	return tables, nil
}

// cleanResponseJSON strips the markdown fences the model sometimes adds
// despite instructions, then clamps to the outermost JSON array.
func cleanResponseJSON(raw string) string {
	s := strings.TrimSpace(raw)

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
