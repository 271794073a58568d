package notionsync

import (
	"math/big"

	"github.com/jomei/notionapi"

	bq "github.com/avlasov/pdfrecon/internal/bigquery"
)

// reviewStatus is the initial status every synced record gets on the
// review board.
const reviewStatus = "Needs Review"

// ResultToNotionProperties converts an unmatched result row to the
// properties of the review database. Record Number is the title and
// the identity key the sync deduplicates on.
func ResultToNotionProperties(row *bq.ResultRow) notionapi.Properties {
	props := notionapi.Properties{
		"Record Number": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: row.RecordNumber,
					},
				},
			},
		},
	}

	// End Customer
	if row.EndCustomer != "" {
		props["End Customer"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: row.EndCustomer,
					},
				},
			},
		}
	}

	// Description
	if row.Description != "" {
		props["Description"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: row.Description,
					},
				},
			},
		}
	}

	// Quantity
	props["Quantity"] = notionapi.NumberProperty{
		Number: float64(row.Quantity),
	}

	// Net Unit Price
	props["Net Unit Price"] = notionapi.NumberProperty{
		Number: ratFloat(row.NetUnitPrice),
	}

	// Total Amount
	props["Total Amount"] = notionapi.NumberProperty{
		Number: ratFloat(row.TotalAmount),
	}

	// SO/PO Number
	if row.SOPONumber != "" {
		props["SO/PO Number"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: row.SOPONumber,
					},
				},
			},
		}
	}

	// Run ID, for tracing a card back to its reconciliation run.
	if row.RunID != "" {
		props["Run ID"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: row.RunID,
					},
				},
			},
		}
	}

	// Status
	props["Status"] = notionapi.SelectProperty{
		Select: notionapi.Option{
			Name: reviewStatus,
		},
	}

	return props
}

// ratFloat converts a NUMERIC value to the float64 Notion number
// properties want. Review cards are informational, so the loss of
// exactness is acceptable here.
func ratFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
