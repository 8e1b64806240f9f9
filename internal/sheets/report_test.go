package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tripledger/internal/core"
)

func sampleReport() TripReport {
	settings := core.TripSettings{
		TripID:                  "kyoto",
		HomeCurrencyCode:        "TWD",
		LocalCurrencyCode:       "JPY",
		ExchangeRateLocalToHome: decimal.RequireFromString("0.22"),
	}
	instruments := []core.PaymentInstrument{
		{ID: "cash", Name: "Cash", Kind: core.KindCash, CurrencyCode: "TWD", Order: 0},
		{ID: "visa", Name: "Visa", Kind: core.KindCredit, CurrencyCode: "JPY", CreditLimit: decimal.NewFromInt(1000), Order: 1},
	}
	items := []core.LedgerItem{
		{ID: "1", PaymentInstrumentID: "visa", Title: "Ramen", Amount: decimal.NewFromInt(1000), CurrencyCode: "JPY",
			Category: core.CategoryFood, ExpenseDate: core.NewDate(2025, 4, 2), CreatorUserID: "A", SplitWith: []string{"B"}},
		{ID: "2", PaymentInstrumentID: "cash", Title: "Hostel", Amount: decimal.NewFromInt(500), CurrencyCode: "TWD",
			Category: core.CategoryStay, ExpenseDate: core.NewDate(2025, 4, 3), CreatorUserID: "A"},
	}
	return NewTripReport(settings, instruments, items, time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC))
}

func TestReportRows(t *testing.T) {
	rows := sampleReport().Rows()

	find := func(label string) []any {
		for _, r := range rows {
			if len(r) > 0 && r[0] == label {
				return r
			}
		}
		t.Fatalf("row %q not found", label)
		return nil
	}

	if got := find("Trip")[1]; got != "kyoto" {
		t.Errorf("trip = %v", got)
	}
	if got := find("Total spend")[1]; got != "NT$720.00" {
		t.Errorf("total spend = %v", got)
	}
	if got := find("Generated")[1]; got != "2025-04-05T10:00:00Z" {
		t.Errorf("generated = %v", got)
	}

	ramen := find("2025-04-02")
	if ramen[3] != "Visa" || ramen[6] != "220" || ramen[7] != "A, B" {
		t.Errorf("ramen row = %v", ramen)
	}
	hostel := find("2025-04-03")
	if hostel[6] != "500" || hostel[7] != "A" {
		t.Errorf("hostel row = %v", hostel)
	}

	if got := find("Total")[1]; got != "720" {
		t.Errorf("total = %v", got)
	}
	if food := find("food"); food[1] != "220" || food[2] != int64(31) {
		t.Errorf("food row = %v", food)
	}

	if cash := find("Cash"); cash[3] != "" || cash[4] != "∞" {
		t.Errorf("cash row = %v", cash)
	}
	if visa := find("Visa"); visa[2] != "220" || visa[3] != "1000" || visa[4] != "22%" {
		t.Errorf("visa row = %v", visa)
	}
}

func TestReportRowsUnknownInstrument(t *testing.T) {
	r := sampleReport()
	r.Items[0].PaymentInstrumentID = "gone"
	for _, row := range r.Rows() {
		if len(row) > 0 && row[0] == "2025-04-02" {
			if row[3] != "gone" {
				t.Fatalf("instrument column = %v", row[3])
			}
			return
		}
	}
	t.Fatal("item row missing")
}
