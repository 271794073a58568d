package bigquery

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"
)

func TestResultRowMarshalJSON(t *testing.T) {
	row := ResultRow{
		RunID:        "run-1",
		RecordNumber: "1001",
		EndCustomer:  "Acme Corp",
		Quantity:     5,
		NetUnitPrice: big.NewRat(2500, 100),
		TotalAmount:  big.NewRat(12500, 100),
		Matched:      false,
		CreatedAt:    time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	body := string(data)

	// Money renders as fixed-point strings, not big.Rat fraction text.
	if !strings.Contains(body, `"net_unit_price":"25.00"`) {
		t.Errorf("net_unit_price not rendered as fixed-point: %s", body)
	}
	if !strings.Contains(body, `"total_amount":"125.00"`) {
		t.Errorf("total_amount not rendered as fixed-point: %s", body)
	}
	if strings.Contains(body, "25/1") || strings.Contains(body, "125/1") {
		t.Errorf("fraction text leaked into JSON: %s", body)
	}
	if strings.Count(body, "net_unit_price") != 1 {
		t.Errorf("net_unit_price appears more than once: %s", body)
	}
}

func TestResultRowMarshalJSONNilAmounts(t *testing.T) {
	row := ResultRow{RunID: "run-1", RecordNumber: "1001"}

	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"net_unit_price":""`) {
		t.Errorf("nil amount should render empty, got %s", data)
	}
}
