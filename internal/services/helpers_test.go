package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tripledger/internal/amqp"
	"tripledger/internal/cache"
	"tripledger/internal/core"
	"tripledger/internal/storage"
	"tripledger/internal/storage/memory"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerChangeMessage
	err  error
}

func (f *fakePublisher) PublishLedgerChange(_ context.Context, msg *amqp.LedgerChangeMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func (f *fakePublisher) last() *amqp.LedgerChangeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		return nil
	}
	return f.msgs[len(f.msgs)-1]
}

// flakyStore fails selected operations.
type flakyStore struct {
	storage.Store
	mu       sync.Mutex
	failUp   map[string]bool
	failList bool
}

var errBackend = errors.New("backend unavailable")

func (f *flakyStore) UpsertInstrument(ctx context.Context, in core.PaymentInstrument) (core.PaymentInstrument, error) {
	f.mu.Lock()
	fail := f.failUp[in.ID]
	f.mu.Unlock()
	if fail {
		return core.PaymentInstrument{}, errBackend
	}
	return f.Store.UpsertInstrument(ctx, in)
}

func (f *flakyStore) ListItems(ctx context.Context, tripID string) ([]core.LedgerItem, error) {
	f.mu.Lock()
	fail := f.failList
	f.mu.Unlock()
	if fail {
		return nil, errBackend
	}
	return f.Store.ListItems(ctx, tripID)
}

func (f *flakyStore) set(fn func(f *flakyStore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type fixture struct {
	store     *flakyStore
	registry  *cache.Registry
	publisher *fakePublisher
	svc       *BudgetService
	reader    *LedgerReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &flakyStore{Store: memory.New(), failUp: map[string]bool{}}
	reg := cache.NewRegistry()
	pub := &fakePublisher{}
	f := &fixture{
		store:     store,
		registry:  reg,
		publisher: pub,
		svc:       NewBudgetService(store, reg, pub, NewBusyTracker(), nil),
		reader:    NewLedgerReader(store, reg, cache.Options{Freshness: time.Minute, MaxStale: time.Hour}),
	}
	t.Cleanup(f.reader.Wait)
	return f
}

func tripSettings() core.TripSettings {
	return core.TripSettings{
		TripID:                  "trip-1",
		HomeCurrencyCode:        "twd",
		LocalCurrencyCode:       "jpy",
		ExchangeRateLocalToHome: decimal.RequireFromString("0.22"),
	}
}

func (f *fixture) createTrip(t *testing.T) []core.PaymentInstrument {
	t.Helper()
	_, list, err := f.svc.CreateTrip(context.Background(), tripSettings())
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	return list
}

func item(instrumentID string) core.LedgerItem {
	return core.LedgerItem{
		TripID:              "trip-1",
		PaymentInstrumentID: instrumentID,
		Title:               " Ramen ",
		Amount:              decimal.NewFromInt(1000),
		CurrencyCode:        "jpy",
		Category:            core.CategoryFood,
		ExpenseDate:         core.NewDate(2025, 4, 2),
		CreatorUserID:       "A",
		SplitWith:           []string{"B", "C"},
	}
}
