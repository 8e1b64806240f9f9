package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"tripledger/internal/core"
)

func TestReaderSeesWritesImmediately(t *testing.T) {
	f := newFixture(t)
	cash := f.createTrip(t)[0]
	ctx := context.Background()

	v, err := f.reader.Items(ctx, "trip-1")
	if err != nil || len(v.Data) != 0 {
		t.Fatalf("items = %+v, %v", v, err)
	}

	created, err := f.svc.AddLedgerItem(ctx, item(cash.ID))
	if err != nil {
		t.Fatal(err)
	}
	v, _ = f.reader.Items(ctx, "trip-1")
	if len(v.Data) != 1 || v.Stale {
		t.Fatalf("expected fresh list with the new item, got %+v", v)
	}

	title := "Udon"
	if _, err := f.svc.EditLedgerItem(ctx, created.ID, core.LedgerItemPatch{Title: &title}); err != nil {
		t.Fatal(err)
	}
	one, err := f.reader.Item(ctx, created.ID)
	if err != nil || one.Data.Title != "Udon" {
		t.Fatalf("item = %+v, %v", one, err)
	}

	if err := f.svc.DeleteLedgerItem(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reader.Item(ctx, created.ID); !core.IsNotFound(err) {
		t.Fatalf("deleted item read err = %v, want not found", err)
	}
}

func TestReaderSummary(t *testing.T) {
	f := newFixture(t)
	cash := f.createTrip(t)[0]
	ctx := context.Background()

	if _, err := f.svc.AddLedgerItem(ctx, item(cash.ID)); err != nil {
		t.Fatal(err)
	}
	twd := item(cash.ID)
	twd.CurrencyCode = "TWD"
	twd.Amount = decimal.NewFromInt(500)
	twd.Category = core.CategoryStay
	if _, err := f.svc.AddLedgerItem(ctx, twd); err != nil {
		t.Fatal(err)
	}

	s, err := f.reader.Summary(ctx, "trip-1")
	if err != nil {
		t.Fatal(err)
	}
	if !s.Data.Total.Equal(decimal.NewFromInt(720)) {
		t.Fatalf("total = %s, want 720", s.Data.Total)
	}
	if len(s.Data.Instruments) != 1 || !s.Data.Instruments[0].Used.Equal(decimal.NewFromInt(720)) {
		t.Fatalf("instruments = %+v", s.Data.Instruments)
	}
	if !s.Data.Instruments[0].Utilization.Unlimited {
		t.Fatal("cash has no limit")
	}
}

func TestReaderSplit(t *testing.T) {
	f := newFixture(t)
	cash := f.createTrip(t)[0]
	it := item(cash.ID)
	it.Amount = decimal.NewFromInt(900)
	created, err := f.svc.AddLedgerItem(context.Background(), it)
	if err != nil {
		t.Fatal(err)
	}
	sp, err := f.reader.Split(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !sp.Data.Share.Equal(decimal.NewFromInt(300)) || !sp.Data.ShareHome.Equal(decimal.NewFromInt(66)) {
		t.Fatalf("split = %+v", sp.Data)
	}
	if _, err := f.reader.Split(context.Background(), "missing"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReaderServesSnapshotOnFailure(t *testing.T) {
	f := newFixture(t)
	cash := f.createTrip(t)[0]
	ctx := context.Background()

	if _, err := f.svc.AddLedgerItem(ctx, item(cash.ID)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reader.Items(ctx, "trip-1"); err != nil {
		t.Fatal(err)
	}

	f.registry.Invalidate(ItemsKey("trip-1"))
	f.store.set(func(fs *flakyStore) { fs.failList = true })

	v, err := f.reader.Items(ctx, "trip-1")
	if err != nil {
		t.Fatalf("expected stale snapshot, got %v", err)
	}
	if !v.Stale || len(v.Warnings) == 0 || len(v.Data) != 1 {
		t.Fatalf("view = %+v", v)
	}
}

func TestReaderUnknownTrip(t *testing.T) {
	f := newFixture(t)
	if _, err := f.reader.Summary(context.Background(), "nope"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
