package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryShare is one category's converted subtotal and its share of the total.
type CategoryShare struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  int64           `json:"percent"`
}

// Breakdown is the per-category view of a trip's spend in home currency.
// Only categories that appear in the items are present.
type Breakdown struct {
	Total  decimal.Decimal `json:"total"`
	Shares []CategoryShare `json:"shares"`
}

// Utilization is an instrument's spend measured against its credit limit.
// Unlimited instruments render fully filled.
type Utilization struct {
	Unlimited bool            `json:"unlimited"`
	Percent   decimal.Decimal `json:"percent"`
	Label     string          `json:"label"`
}

// InstrumentSummary pairs an instrument with its converted usage.
type InstrumentSummary struct {
	Instrument  PaymentInstrument `json:"instrument"`
	Used        decimal.Decimal   `json:"used"`
	Utilization Utilization       `json:"utilization"`
}

// TripSummary is everything a dashboard needs, computed from one snapshot.
type TripSummary struct {
	TripID       string              `json:"tripId"`
	HomeCurrency string              `json:"homeCurrencyCode"`
	ItemCount    int                 `json:"itemCount"`
	Total        decimal.Decimal     `json:"total"`
	TotalDisplay string              `json:"totalDisplay"`
	Categories   Breakdown           `json:"categories"`
	Instruments  []InstrumentSummary `json:"instruments"`
}

// TotalSpendHome sums every item converted to home currency.
func TotalSpendHome(items []LedgerItem, settings TripSettings) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(Convert(it.Amount, it.CurrencyCode, settings))
	}
	return total
}

// CategoryBreakdown groups converted amounts by category. Percentages are
// rounded for display and are zero when the total is zero.
func CategoryBreakdown(items []LedgerItem, settings TripSettings) Breakdown {
	subtotals := make(map[Category]decimal.Decimal)
	total := decimal.Zero
	for _, it := range items {
		amt := Convert(it.Amount, it.CurrencyCode, settings)
		subtotals[it.Category] = subtotals[it.Category].Add(amt)
		total = total.Add(amt)
	}

	out := Breakdown{Total: total, Shares: make([]CategoryShare, 0, len(subtotals))}
	add := func(cat Category, amt decimal.Decimal) {
		share := CategoryShare{Category: cat, Amount: amt}
		if !total.IsZero() {
			share.Percent = roundHalfUp(amt.Div(total).Mul(hundred)).IntPart()
		}
		out.Shares = append(out.Shares, share)
	}
	for _, cat := range Categories {
		if amt, ok := subtotals[cat]; ok {
			add(cat, amt)
			delete(subtotals, cat)
		}
	}
	// Persisted rows can carry categories this build does not know about.
	rest := make([]Category, 0, len(subtotals))
	for cat := range subtotals {
		rest = append(rest, cat)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, cat := range rest {
		add(cat, subtotals[cat])
	}
	return out
}

// InstrumentUsage returns the converted spend per instrument id. Every known
// instrument is present, with zero when unused; items that reference an
// unknown instrument are skipped.
func InstrumentUsage(items []LedgerItem, instruments []PaymentInstrument, settings TripSettings) map[string]decimal.Decimal {
	usage := make(map[string]decimal.Decimal, len(instruments))
	for _, in := range instruments {
		usage[in.ID] = decimal.Zero
	}
	for _, it := range items {
		cur, ok := usage[it.PaymentInstrumentID]
		if !ok {
			continue
		}
		usage[it.PaymentInstrumentID] = cur.Add(Convert(it.Amount, it.CurrencyCode, settings))
	}
	return usage
}

// UtilizationPercent measures usage against creditLimit, capped at 100.
// A zero limit means unlimited.
func UtilizationPercent(usage, creditLimit decimal.Decimal) Utilization {
	if creditLimit.IsZero() {
		return Utilization{Unlimited: true, Percent: hundred, Label: "∞"}
	}
	pct := decimal.Min(usage.Div(creditLimit).Mul(hundred), hundred)
	return Utilization{Percent: pct, Label: roundHalfUp(pct).String() + "%"}
}

// Summarize aggregates one snapshot of a trip. Instruments keep their given order.
func Summarize(settings TripSettings, instruments []PaymentInstrument, items []LedgerItem) TripSummary {
	usage := InstrumentUsage(items, instruments, settings)
	breakdown := CategoryBreakdown(items, settings)

	summary := TripSummary{
		TripID:       settings.TripID,
		HomeCurrency: settings.HomeCurrencyCode,
		ItemCount:    len(items),
		Total:        breakdown.Total,
		TotalDisplay: FormatAmount(breakdown.Total, settings.HomeCurrencyCode),
		Categories:   breakdown,
		Instruments:  make([]InstrumentSummary, 0, len(instruments)),
	}
	for _, in := range instruments {
		used := usage[in.ID]
		summary.Instruments = append(summary.Instruments, InstrumentSummary{
			Instrument:  in,
			Used:        used,
			Utilization: UtilizationPercent(used, in.CreditLimit),
		})
	}
	return summary
}
