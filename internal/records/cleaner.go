// Package records turns raw statement table rows into clean
// TransactionRecord values. The statement layout is fixed: eleven or
// more cells per row, with the fields the reconciler cares about at
// known positions.
package records

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avlasov/pdfrecon/internal/domain"
)

// ErrTooFewCells marks a row that is too short to be a statement line
// item. Callers skip these rows rather than failing the run.
var ErrTooFewCells = errors.New("row has fewer cells than the statement layout requires")

// minCells is the number of cells a statement row must have.
const minCells = 11

// Cell positions in the statement layout.
const (
	cellNumber      = 0
	cellEndCustomer = 1
	cellDescription = 4
	cellSOPONumber  = 5
	cellQuantity    = 8
	cellUnitPrice   = 9
	cellTotalAmount = 10
)

var (
	// A 10-digit customer account prefix in front of the customer name.
	customerPrefix = regexp.MustCompile(`^\d{10}\s*`)
	// Line breaks inside a customer name, collapsed to one space.
	lineBreaks = regexp.MustCompile(`[\n\r]+`)
	// The billing system prefixes descriptions with a date and a
	// subscription reference, e.g. "20180101 Subscription #1234567: ".
	descriptionPrefix = regexp.MustCompile(`^\d{8}\s+Subscription\s+#\d{7}:\s+`)
	// Everything that is not part of a plain decimal number.
	nonNumeric = regexp.MustCompile(`[^\d.]`)
)

// CleanRow converts one raw statement row into a TransactionRecord.
// Rows shorter than the statement layout return ErrTooFewCells.
// Malformed numeric cells degrade to zero values, never to an error;
// a statement with a few broken cells should still reconcile.
func CleanRow(cells []string) (domain.TransactionRecord, error) {
	if len(cells) < minCells {
		return domain.TransactionRecord{}, ErrTooFewCells
	}

	return domain.TransactionRecord{
		Number:       strings.TrimSpace(cells[cellNumber]),
		EndCustomer:  cleanCustomer(cells[cellEndCustomer]),
		Description:  cleanDescription(cells[cellDescription]),
		SOPONumber:   strings.TrimSpace(cells[cellSOPONumber]),
		Quantity:     parseQuantity(cells[cellQuantity]),
		NetUnitPrice: parseAmount(cells[cellUnitPrice]),
		TotalAmount:  parseAmount(cells[cellTotalAmount]),
	}, nil
}

// cleanCustomer strips the numeric account prefix and collapses line
// breaks that PDF extraction leaves inside wrapped customer names.
func cleanCustomer(raw string) string {
	s := strings.TrimSpace(raw)
	s = customerPrefix.ReplaceAllString(s, "")
	s = lineBreaks.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// cleanDescription strips the subscription billing prefix.
func cleanDescription(raw string) string {
	s := strings.TrimSpace(raw)
	return descriptionPrefix.ReplaceAllString(s, "")
}

// parseQuantity reads a whole unit count from a cell that may carry
// unit suffixes or separators. Empty or unparseable cells become 0.
func parseQuantity(raw string) int {
	s := nonNumeric.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// parseAmount reads an exact decimal amount. Blank cells mean 0.00 and
// thousands separators are tolerated; anything unparseable becomes 0.
func parseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
