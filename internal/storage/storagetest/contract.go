// Package storagetest holds the behavior every storage.Store must show.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

// Run exercises newStore against the persistence contract.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("instruments", func(t *testing.T) { testInstruments(t, newStore(t)) })
	t.Run("items", func(t *testing.T) { testItems(t, newStore(t)) })
	t.Run("item order", func(t *testing.T) { testItemOrder(t, newStore(t)) })
}

func testSettings(t *testing.T, s storage.Store) {
	ctx := context.Background()

	got, err := s.GetSettings(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, got)

	ts := core.TripSettings{
		TripID:                  "trip-1",
		HomeCurrencyCode:        "TWD",
		LocalCurrencyCode:       "JPY",
		ExchangeRateLocalToHome: decimal.RequireFromString("0.22"),
		Info:                    map[string]any{"theme": "sakura"},
	}
	_, err = s.UpsertSettings(ctx, ts)
	require.NoError(t, err)

	ts.ExchangeRateLocalToHome = decimal.RequireFromString("0.21")
	_, err = s.UpsertSettings(ctx, ts)
	require.NoError(t, err)

	got, err = s.GetSettings(ctx, "trip-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.ExchangeRateLocalToHome.Equal(decimal.RequireFromString("0.21")))
	require.Equal(t, "sakura", got.Info["theme"])

	trips, err := s.ListTrips(ctx)
	require.NoError(t, err)
	require.Len(t, trips, 1)
}

func testInstruments(t *testing.T, s storage.Store) {
	ctx := context.Background()

	cash := core.PaymentInstrument{ID: "cash", TripID: "trip-1", Name: "Cash", Kind: core.KindCash, CurrencyCode: "TWD", Order: 1}
	visa := core.PaymentInstrument{ID: "visa", TripID: "trip-1", Name: "Visa", Kind: core.KindCredit, CurrencyCode: "JPY", CreditLimit: decimal.NewFromInt(50000), Order: 0}
	other := core.PaymentInstrument{ID: "other", TripID: "trip-2", Name: "Cash", Kind: core.KindCash, CurrencyCode: "EUR"}

	_, err := s.InsertInstrument(ctx, cash)
	require.NoError(t, err)
	_, err = s.UpsertInstrument(ctx, visa)
	require.NoError(t, err)
	_, err = s.UpsertInstrument(ctx, other)
	require.NoError(t, err)

	list, err := s.ListInstruments(ctx, "trip-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "visa", list[0].ID)
	require.Equal(t, "cash", list[1].ID)
	require.True(t, list[0].CreditLimit.Equal(decimal.NewFromInt(50000)))

	name := "Mastercard"
	order := 5
	updated, err := s.UpdateInstrument(ctx, "visa", storage.InstrumentPatch{Name: &name, Order: &order})
	require.NoError(t, err)
	require.Equal(t, "Mastercard", updated.Name)
	require.Equal(t, core.KindCredit, updated.Kind)

	_, err = s.UpdateInstrument(ctx, "missing", storage.InstrumentPatch{Name: &name})
	require.True(t, core.IsNotFound(err))

	require.NoError(t, s.DeleteInstrument(ctx, "visa"))
	require.NoError(t, s.DeleteInstrument(ctx, "visa"))
	got, err := s.GetInstrument(ctx, "visa")
	require.NoError(t, err)
	require.Nil(t, got)
}

func newItem(id, date string) core.LedgerItem {
	d, _ := core.ParseDate(date)
	return core.LedgerItem{
		ID:                  id,
		TripID:              "trip-1",
		PaymentInstrumentID: "cash",
		Title:               "Item " + id,
		Amount:              decimal.RequireFromString("1200.50"),
		CurrencyCode:        "JPY",
		Category:            core.CategoryFood,
		ExpenseDate:         d,
		CreatorUserID:       "A",
		SplitWith:           []string{"B"},
	}
}

func testItems(t *testing.T, s storage.Store) {
	ctx := context.Background()

	got, err := s.GetItem(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, got)

	created, err := s.InsertItem(ctx, newItem("", "2025-04-01"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())

	got, err = s.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Item ", got.Title)
	require.True(t, got.Amount.Equal(decimal.RequireFromString("1200.5")))
	require.Equal(t, []string{"B"}, got.SplitWith)
	require.Equal(t, "2025-04-01", got.ExpenseDate.String())

	title := "Dinner"
	with := []string{"B", "C"}
	updated, err := s.UpdateItem(ctx, created.ID, core.LedgerItemPatch{Title: &title, SplitWith: &with})
	require.NoError(t, err)
	require.Equal(t, "Dinner", updated.Title)
	require.Equal(t, "JPY", updated.CurrencyCode)

	got, err = s.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C"}, got.SplitWith)
	require.True(t, got.CreatedAt.Equal(created.CreatedAt))

	replay := *got
	replay.CreatedAt = time.Time{}
	replay.Title = "Dinner again"
	upserted, err := s.UpsertItem(ctx, replay)
	require.NoError(t, err)
	require.True(t, upserted.CreatedAt.Equal(created.CreatedAt), "upsert returned created_at %v, want %v", upserted.CreatedAt, created.CreatedAt)
	got, err = s.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, got.CreatedAt.Equal(created.CreatedAt))
	require.Equal(t, "Dinner again", got.Title)

	_, err = s.UpdateItem(ctx, "missing", core.LedgerItemPatch{Title: &title})
	require.True(t, core.IsNotFound(err))

	require.NoError(t, s.DeleteItem(ctx, created.ID))
	require.NoError(t, s.DeleteItem(ctx, created.ID))
	list, err := s.ListItems(ctx, "trip-1")
	require.NoError(t, err)
	require.Empty(t, list)
}

func testItemOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()

	a := newItem("a", "2025-04-01")
	a.Category = core.CategoryStay
	b := newItem("b", "2025-04-03")
	c := newItem("c", "2025-04-01")
	c.Category = core.CategoryFood
	d := newItem("d", "2025-04-01")
	d.Category = core.CategoryTransport

	for _, it := range []core.LedgerItem{a, b, c} {
		_, err := s.UpsertItem(ctx, it)
		require.NoError(t, err)
	}
	time.Sleep(2 * time.Millisecond)
	_, err := s.UpsertItem(ctx, d)
	require.NoError(t, err)

	list, err := s.ListItems(ctx, "trip-1")
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, it := range list {
		ids[i] = it.ID
	}
	// b is newest by date, d was updated last; a and c may share a timestamp.
	require.Equal(t, "b", ids[0])
	require.Equal(t, "d", ids[1])
	require.ElementsMatch(t, []string{"a", "c"}, ids[2:])
}
