package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleInstruments() []PaymentInstrument {
	return []PaymentInstrument{
		{ID: "cash", Name: "Cash", Kind: KindCash, CurrencyCode: "TWD", Order: 0},
		{ID: "c1", Name: "Visa", Kind: KindCredit, CurrencyCode: "JPY", CreditLimit: amt("1000"), Order: 1},
		{ID: "d1", Name: "Debit", Kind: KindDebit, CurrencyCode: "TWD", Order: 2},
	}
}

func sampleItems() []LedgerItem {
	return []LedgerItem{
		{ID: "1", PaymentInstrumentID: "cash", Amount: amt("1000"), CurrencyCode: "JPY", Category: CategoryFood},
		{ID: "2", PaymentInstrumentID: "c1", Amount: amt("300"), CurrencyCode: "TWD", Category: CategoryStay},
		{ID: "3", PaymentInstrumentID: "c1", Amount: amt("2000"), CurrencyCode: "JPY", Category: CategoryFood},
	}
}

func TestTotalSpendHome(t *testing.T) {
	// 220 + 300 + 440
	got := TotalSpendHome(sampleItems(), twdJpy())
	if !got.Equal(amt("960")) {
		t.Fatalf("total = %s, want 960", got)
	}
	if !TotalSpendHome(nil, twdJpy()).IsZero() {
		t.Fatal("empty total must be zero")
	}
}

func subtotal(b Breakdown, cat Category) (decimal.Decimal, bool) {
	for _, s := range b.Shares {
		if s.Category == cat {
			return s.Amount, true
		}
	}
	return decimal.Zero, false
}

func TestCategoryBreakdown(t *testing.T) {
	b := CategoryBreakdown(sampleItems(), twdJpy())
	if len(b.Shares) != 2 {
		t.Fatalf("expected only present categories, got %+v", b.Shares)
	}
	if b.Shares[0].Category != CategoryStay || b.Shares[1].Category != CategoryFood {
		t.Fatalf("unexpected order %+v", b.Shares)
	}
	food, ok := subtotal(b, CategoryFood)
	if !ok || !food.Equal(amt("660")) {
		t.Fatalf("food = %s", food)
	}
	if _, ok := subtotal(b, CategoryTicket); ok {
		t.Fatal("absent category must be omitted")
	}
	// 300/960 = 31.25%, 660/960 = 68.75%
	if b.Shares[0].Percent != 31 || b.Shares[1].Percent != 69 {
		t.Fatalf("percents = %d, %d", b.Shares[0].Percent, b.Shares[1].Percent)
	}
}

func TestCategoryBreakdownUnknownCategory(t *testing.T) {
	items := []LedgerItem{
		{Amount: amt("10"), CurrencyCode: "TWD", Category: "zoo"},
		{Amount: amt("10"), CurrencyCode: "TWD", Category: "bar"},
		{Amount: amt("10"), CurrencyCode: "TWD", Category: CategoryOther},
	}
	b := CategoryBreakdown(items, twdJpy())
	want := []Category{CategoryOther, "bar", "zoo"}
	for i, c := range want {
		if b.Shares[i].Category != c {
			t.Fatalf("share %d = %s, want %s", i, b.Shares[i].Category, c)
		}
	}
}

func TestInstrumentUsage(t *testing.T) {
	insts := sampleInstruments()
	items := append(sampleItems(), LedgerItem{PaymentInstrumentID: "gone", Amount: amt("50"), CurrencyCode: "TWD", Category: CategoryOther})

	usage := InstrumentUsage(items, insts, twdJpy())
	if len(usage) != len(insts) {
		t.Fatalf("expected an entry per instrument, got %v", usage)
	}
	if v, ok := usage["d1"]; !ok || !v.IsZero() {
		t.Fatalf("unused instrument must report zero, got %v (present=%v)", v, ok)
	}
	if _, ok := usage["gone"]; ok {
		t.Fatal("unknown instrument must be skipped")
	}
	if !usage["c1"].Equal(amt("740")) {
		t.Fatalf("c1 = %s", usage["c1"])
	}
}

func TestInstrumentUsageSumsToTotal(t *testing.T) {
	items := sampleItems()
	usage := InstrumentUsage(items, sampleInstruments(), twdJpy())
	sum := decimal.Zero
	for _, v := range usage {
		sum = sum.Add(v)
	}
	if total := TotalSpendHome(items, twdJpy()); !sum.Equal(total) {
		t.Fatalf("usage sum %s != total %s", sum, total)
	}
}

func TestUtilizationPercent(t *testing.T) {
	u := UtilizationPercent(amt("500"), decimal.Zero)
	if !u.Unlimited || !u.Percent.Equal(amt("100")) || u.Label != "∞" {
		t.Fatalf("unlimited = %+v", u)
	}
	u = UtilizationPercent(amt("250"), amt("1000"))
	if u.Unlimited || !u.Percent.Equal(amt("25")) || u.Label != "25%" {
		t.Fatalf("quarter = %+v", u)
	}
	u = UtilizationPercent(amt("2500"), amt("1000"))
	if !u.Percent.Equal(amt("100")) {
		t.Fatalf("over limit must cap at 100, got %s", u.Percent)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(twdJpy(), sampleInstruments(), sampleItems())
	if s.ItemCount != 3 || !s.Total.Equal(amt("960")) {
		t.Fatalf("summary = %+v", s)
	}
	if s.TotalDisplay != "NT$960.00" {
		t.Fatalf("total display = %q", s.TotalDisplay)
	}
	if len(s.Instruments) != 3 || s.Instruments[0].Instrument.ID != "cash" {
		t.Fatalf("instruments out of order: %+v", s.Instruments)
	}
	if s.Instruments[1].Utilization.Label != "74%" {
		t.Fatalf("c1 utilization = %+v", s.Instruments[1].Utilization)
	}
}
