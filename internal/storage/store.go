// Package storage defines the persistence contract of the ledger and its
// SQLite implementation.
//
// Get methods return nil, nil when the row does not exist. Deletes of
// missing rows succeed. Lists are sorted: ledger items by expense date
// desc, updated at desc, category asc; instruments by order asc.
package storage

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tripledger/internal/core"
)

// TripStore persists trip settings.
type TripStore interface {
	GetSettings(ctx context.Context, tripID string) (*core.TripSettings, error)
	ListTrips(ctx context.Context) ([]core.TripSettings, error)
	UpsertSettings(ctx context.Context, settings core.TripSettings) (core.TripSettings, error)
}

// InstrumentStore persists payment instruments.
type InstrumentStore interface {
	GetInstrument(ctx context.Context, id string) (*core.PaymentInstrument, error)
	ListInstruments(ctx context.Context, tripID string) ([]core.PaymentInstrument, error)
	InsertInstrument(ctx context.Context, in core.PaymentInstrument) (core.PaymentInstrument, error)
	UpdateInstrument(ctx context.Context, id string, patch InstrumentPatch) (core.PaymentInstrument, error)
	UpsertInstrument(ctx context.Context, in core.PaymentInstrument) (core.PaymentInstrument, error)
	DeleteInstrument(ctx context.Context, id string) error
}

// ItemStore persists ledger items.
type ItemStore interface {
	GetItem(ctx context.Context, id string) (*core.LedgerItem, error)
	ListItems(ctx context.Context, tripID string) ([]core.LedgerItem, error)
	InsertItem(ctx context.Context, item core.LedgerItem) (core.LedgerItem, error)
	UpdateItem(ctx context.Context, id string, patch core.LedgerItemPatch) (core.LedgerItem, error)
	UpsertItem(ctx context.Context, item core.LedgerItem) (core.LedgerItem, error)
	DeleteItem(ctx context.Context, id string) error
}

// Store is the full backing store.
type Store interface {
	TripStore
	InstrumentStore
	ItemStore
	Ping(ctx context.Context) error
	Close() error
}

// InstrumentPatch is a partial instrument update; nil fields are left untouched.
type InstrumentPatch struct {
	Name         *string
	Kind         *core.InstrumentKind
	CurrencyCode *string
	CreditLimit  *decimal.Decimal
	Order        *int
}

// Apply returns a copy of in with every non-nil patch field applied.
func (p InstrumentPatch) Apply(in core.PaymentInstrument) core.PaymentInstrument {
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Kind != nil {
		in.Kind = *p.Kind
	}
	if p.CurrencyCode != nil {
		in.CurrencyCode = *p.CurrencyCode
	}
	if p.CreditLimit != nil {
		in.CreditLimit = *p.CreditLimit
	}
	if p.Order != nil {
		in.Order = *p.Order
	}
	return in
}

// TimeLayout is the fixed width UTC layout used for stored timestamps, so
// that text ordering matches time ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// SortItems applies the canonical ledger item order in place.
func SortItems(items []core.LedgerItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.ExpenseDate.Equal(b.ExpenseDate.Time) {
			return a.ExpenseDate.After(b.ExpenseDate.Time)
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.Category < b.Category
	})
}

// SortInstruments applies the canonical instrument order in place.
func SortInstruments(list []core.PaymentInstrument) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Order < list[j].Order })
}
