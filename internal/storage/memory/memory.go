// Package memory is an in-process Store used by tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	trips       map[string]core.TripSettings
	instruments map[string]core.PaymentInstrument
	items       map[string]core.LedgerItem
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:         time.Now,
		trips:       make(map[string]core.TripSettings),
		instruments: make(map[string]core.PaymentInstrument),
		items:       make(map[string]core.LedgerItem),
	}
}

// SetClock replaces the time source used for item timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) GetSettings(_ context.Context, tripID string) (*core.TripSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.trips[tripID]
	if !ok {
		return nil, nil
	}
	out := ts.Clone()
	return &out, nil
}

func (s *Store) ListTrips(context.Context) ([]core.TripSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TripSettings, 0, len(s.trips))
	for _, ts := range s.trips {
		out = append(out, ts.Clone())
	}
	sortTrips(out)
	return out, nil
}

func (s *Store) UpsertSettings(_ context.Context, ts core.TripSettings) (core.TripSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[ts.TripID] = ts.Clone()
	return ts.Clone(), nil
}

func (s *Store) GetInstrument(_ context.Context, id string) (*core.PaymentInstrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.instruments[id]
	if !ok {
		return nil, nil
	}
	return &in, nil
}

func (s *Store) ListInstruments(_ context.Context, tripID string) ([]core.PaymentInstrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.PaymentInstrument{}
	for _, in := range s.instruments {
		if in.TripID == tripID {
			out = append(out, in)
		}
	}
	storage.SortInstruments(out)
	return out, nil
}

func (s *Store) InsertInstrument(_ context.Context, in core.PaymentInstrument) (core.PaymentInstrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if _, exists := s.instruments[in.ID]; exists {
		return core.PaymentInstrument{}, &core.PersistenceError{Op: "insert", Entity: "payment instrument", ID: in.ID, Err: errDuplicate}
	}
	s.instruments[in.ID] = in
	return in, nil
}

func (s *Store) UpdateInstrument(_ context.Context, id string, patch storage.InstrumentPatch) (core.PaymentInstrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.instruments[id]
	if !ok {
		return core.PaymentInstrument{}, &core.NotFoundError{Entity: "payment instrument", ID: id}
	}
	next := patch.Apply(cur)
	s.instruments[id] = next
	return next, nil
}

func (s *Store) UpsertInstrument(_ context.Context, in core.PaymentInstrument) (core.PaymentInstrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments[in.ID] = in
	return in, nil
}

func (s *Store) DeleteInstrument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instruments, id)
	return nil
}

func (s *Store) GetItem(_ context.Context, id string) (*core.LedgerItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	it = cloneItem(it)
	return &it, nil
}

func (s *Store) ListItems(_ context.Context, tripID string) ([]core.LedgerItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.LedgerItem{}
	for _, it := range s.items {
		if it.TripID == tripID {
			out = append(out, cloneItem(it))
		}
	}
	storage.SortItems(out)
	return out, nil
}

func (s *Store) InsertItem(_ context.Context, it core.LedgerItem) (core.LedgerItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if _, exists := s.items[it.ID]; exists {
		return core.LedgerItem{}, &core.PersistenceError{Op: "insert", Entity: "ledger item", ID: it.ID, Err: errDuplicate}
	}
	now := s.now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now
	it = cloneItem(it)
	s.items[it.ID] = it
	return cloneItem(it), nil
}

func (s *Store) UpdateItem(_ context.Context, id string, patch core.LedgerItemPatch) (core.LedgerItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return core.LedgerItem{}, &core.NotFoundError{Entity: "ledger item", ID: id}
	}
	next := cloneItem(cur.Apply(patch))
	next.UpdatedAt = s.now().UTC()
	s.items[id] = next
	return cloneItem(next), nil
}

func (s *Store) UpsertItem(_ context.Context, it core.LedgerItem) (core.LedgerItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if prev, ok := s.items[it.ID]; ok {
		it.CreatedAt = prev.CreatedAt
	} else if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
	it = cloneItem(it)
	s.items[it.ID] = it
	return cloneItem(it), nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func cloneItem(it core.LedgerItem) core.LedgerItem {
	it.SplitWith = append([]string{}, it.SplitWith...)
	return it
}
