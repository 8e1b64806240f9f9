// Package sheets defines the spreadsheet export of trip reports and the
// tabular layout shared by every exporter.
package sheets

import (
	"strings"
	"time"

	"tripledger/internal/core"
)

// TripReport is one consistent snapshot of a trip, ready to export.
type TripReport struct {
	Settings    core.TripSettings
	Summary     core.TripSummary
	Items       []core.LedgerItem
	GeneratedAt time.Time
}

// NewTripReport aggregates a trip snapshot. Items are exported in the
// given order.
func NewTripReport(settings core.TripSettings, instruments []core.PaymentInstrument, items []core.LedgerItem, now time.Time) TripReport {
	return TripReport{
		Settings:    settings,
		Summary:     core.Summarize(settings, instruments, items),
		Items:       items,
		GeneratedAt: now.UTC(),
	}
}

// Section headers of the exported layout.
var (
	ItemsHeader       = []any{"Date", "Title", "Category", "Instrument", "Amount", "Currency", "Home amount", "Split"}
	CategoriesHeader  = []any{"Category", "Home amount", "Percent"}
	InstrumentsHeader = []any{"Instrument", "Kind", "Used", "Limit", "Utilization"}
)

// Rows renders the report as a values matrix: a header block, the item
// table, the category breakdown and the instrument usage, separated by
// blank rows. Table amounts are plain decimal strings; the header block
// carries the total formatted in the home currency.
func (r TripReport) Rows() [][]any {
	names := make(map[string]string, len(r.Summary.Instruments))
	for _, in := range r.Summary.Instruments {
		names[in.Instrument.ID] = in.Instrument.Name
	}

	rows := [][]any{
		{"Trip", r.Settings.TripID},
		{"Home currency", r.Settings.HomeCurrencyCode},
		{"Local currency", r.Settings.LocalCurrencyCode},
		{"Exchange rate", r.Settings.ExchangeRateLocalToHome.String()},
		{"Total spend", r.Summary.TotalDisplay},
		{"Generated", r.GeneratedAt.Format(time.RFC3339)},
		{},
		ItemsHeader,
	}
	for _, it := range r.Items {
		instrument, ok := names[it.PaymentInstrumentID]
		if !ok {
			instrument = it.PaymentInstrumentID
		}
		rows = append(rows, []any{
			it.ExpenseDate.String(),
			it.Title,
			string(it.Category),
			instrument,
			it.Amount.String(),
			it.CurrencyCode,
			core.Convert(it.Amount, it.CurrencyCode, r.Settings).String(),
			strings.Join(core.Participants(it), ", "),
		})
	}

	rows = append(rows, []any{}, CategoriesHeader)
	for _, s := range r.Summary.Categories.Shares {
		rows = append(rows, []any{string(s.Category), s.Amount.String(), s.Percent})
	}
	rows = append(rows, []any{"Total", r.Summary.Total.String(), ""})

	rows = append(rows, []any{}, InstrumentsHeader)
	for _, in := range r.Summary.Instruments {
		limit := in.Instrument.CreditLimit.String()
		if in.Utilization.Unlimited {
			limit = ""
		}
		rows = append(rows, []any{
			in.Instrument.Name,
			string(in.Instrument.Kind),
			in.Used.String(),
			limit,
			in.Utilization.Label,
		})
	}
	return rows
}
