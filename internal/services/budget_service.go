// Package services orchestrates ledger writes and cached reads on top of
// the storage layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"tripledger/internal/amqp"
	"tripledger/internal/cache"
	"tripledger/internal/core"
	"tripledger/internal/log"
	"tripledger/internal/reconcile"
	"tripledger/internal/storage"
)

// CashInstrumentName is the name of the instrument seeded for every trip.
const CashInstrumentName = "Cash"

// BudgetService persists ledger items, instruments and trip settings.
// Every successful write invalidates the affected cache keys and publishes
// a change message; publishing failures are logged and never fail the write.
type BudgetService struct {
	store     storage.Store
	registry  *cache.Registry
	publisher Publisher
	busy      *BusyTracker
	logger    *log.Logger

	createMu sync.Mutex
}

// NewBudgetService wires the service. publisher may be nil.
func NewBudgetService(store storage.Store, registry *cache.Registry, publisher Publisher, busy *BusyTracker, logger *log.Logger) *BudgetService {
	if busy == nil {
		busy = NewBusyTracker()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetService{
		store:     store,
		registry:  registry,
		publisher: publisher,
		busy:      busy,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// Busy returns the tracker of in-flight mutations.
func (s *BudgetService) Busy() *BusyTracker { return s.busy }

// CreateTrip saves the settings of a new trip and seeds a cash instrument in
// the home currency at the front of the list. It returns core.ErrTripExists
// when the trip already has settings; later changes go through an edit session.
func (s *BudgetService) CreateTrip(ctx context.Context, settings core.TripSettings) (core.TripSettings, []core.PaymentInstrument, error) {
	settings.TripID = strings.TrimSpace(settings.TripID)
	settings.HomeCurrencyCode = core.NormalizeCurrency(settings.HomeCurrencyCode)
	settings.LocalCurrencyCode = core.NormalizeCurrency(settings.LocalCurrencyCode)
	if err := settings.Validate(); err != nil {
		return core.TripSettings{}, nil, err
	}

	defer s.busy.Begin(settings.TripID)()

	s.createMu.Lock()
	defer s.createMu.Unlock()

	existing, err := s.store.GetSettings(ctx, settings.TripID)
	if err != nil {
		return core.TripSettings{}, nil, persistence("get", "trip settings", settings.TripID, err)
	}
	if existing != nil {
		return core.TripSettings{}, nil, fmt.Errorf("%w: %s", core.ErrTripExists, settings.TripID)
	}

	saved, err := s.store.UpsertSettings(ctx, settings)
	if err != nil {
		return core.TripSettings{}, nil, persistence("upsert", "trip settings", settings.TripID, err)
	}

	list, err := s.store.ListInstruments(ctx, settings.TripID)
	if err != nil {
		return core.TripSettings{}, nil, persistence("list", "payment instruments", settings.TripID, err)
	}
	if !hasCash(list) {
		cash := core.PaymentInstrument{
			TripID:       settings.TripID,
			Name:         CashInstrumentName,
			Kind:         core.KindCash,
			CurrencyCode: settings.HomeCurrencyCode,
			CreditLimit:  decimal.Zero,
		}
		list = append([]core.PaymentInstrument{cash}, list...)
		for i := range list {
			list[i].Order = i
			if list[i].ID == "" {
				inserted, err := s.store.InsertInstrument(ctx, list[i])
				if err != nil {
					return core.TripSettings{}, nil, persistence("insert", "payment instrument", "", err)
				}
				list[i] = inserted
				continue
			}
			if _, err := s.store.UpsertInstrument(ctx, list[i]); err != nil {
				return core.TripSettings{}, nil, persistence("upsert", "payment instrument", list[i].ID, err)
			}
		}
	}

	s.invalidate(ctx, MutationTripSave, settings.TripID, "")
	s.publish(ctx, amqp.NewLedgerChangeMessage(settings.TripID, amqp.EntitySettings, amqp.OperationCreate, ""))
	s.logger.InfoContext(ctx, "Trip created", log.NewFields().WithTrip(settings.TripID).WithOperation(log.OpCreate).ToSlice()...)
	return saved, list, nil
}

func hasCash(list []core.PaymentInstrument) bool {
	for _, in := range list {
		if in.Kind == core.KindCash {
			return true
		}
	}
	return false
}

// AddLedgerItem validates and inserts item.
func (s *BudgetService) AddLedgerItem(ctx context.Context, item core.LedgerItem) (core.LedgerItem, error) {
	item = normalizeItem(item)
	if err := item.Validate(); err != nil {
		return core.LedgerItem{}, err
	}
	if err := s.checkTrip(ctx, item.TripID); err != nil {
		return core.LedgerItem{}, err
	}
	if err := s.checkInstrument(ctx, item.TripID, item.PaymentInstrumentID); err != nil {
		return core.LedgerItem{}, err
	}

	defer s.busy.Begin(item.TripID)()

	created, err := s.store.InsertItem(ctx, item)
	if err != nil {
		return core.LedgerItem{}, persistence("insert", "ledger item", item.ID, err)
	}

	s.invalidate(ctx, MutationItemCreate, created.TripID, created.ID)
	s.publish(ctx, amqp.NewLedgerChangeMessage(created.TripID, amqp.EntityItem, amqp.OperationCreate, created.ID))
	s.logger.InfoContext(ctx, "Ledger item added", log.NewFields().
		WithTrip(created.TripID).
		WithItem(created.ID, created.Amount, created.CurrencyCode, string(created.Category)).
		WithOperation(log.OpCreate).ToSlice()...)
	return created, nil
}

// EditLedgerItem applies patch to the item with id after validating the merged result.
func (s *BudgetService) EditLedgerItem(ctx context.Context, id string, patch core.LedgerItemPatch) (core.LedgerItem, error) {
	cur, err := s.store.GetItem(ctx, id)
	if err != nil {
		return core.LedgerItem{}, persistence("get", "ledger item", id, err)
	}
	if cur == nil {
		return core.LedgerItem{}, &core.NotFoundError{Entity: "ledger item", ID: id}
	}

	patch = normalizePatch(patch)
	merged := cur.Apply(patch)
	if err := merged.Validate(); err != nil {
		return core.LedgerItem{}, err
	}
	if patch.PaymentInstrumentID != nil {
		if err := s.checkInstrument(ctx, merged.TripID, merged.PaymentInstrumentID); err != nil {
			return core.LedgerItem{}, err
		}
	}

	defer s.busy.Begin(cur.TripID)()

	updated, err := s.store.UpdateItem(ctx, id, patch)
	if err != nil {
		return core.LedgerItem{}, persistence("update", "ledger item", id, err)
	}

	s.invalidate(ctx, MutationItemUpdate, updated.TripID, id)
	s.publish(ctx, amqp.NewLedgerChangeMessage(updated.TripID, amqp.EntityItem, amqp.OperationUpdate, id))
	s.logger.InfoContext(ctx, "Ledger item updated", log.NewFields().
		WithTrip(updated.TripID).
		WithItem(id, updated.Amount, updated.CurrencyCode, string(updated.Category)).
		WithOperation(log.OpUpdate).ToSlice()...)
	return updated, nil
}

// DeleteLedgerItem removes the item with id.
func (s *BudgetService) DeleteLedgerItem(ctx context.Context, id string) error {
	cur, err := s.store.GetItem(ctx, id)
	if err != nil {
		return persistence("get", "ledger item", id, err)
	}
	if cur == nil {
		return &core.NotFoundError{Entity: "ledger item", ID: id}
	}

	defer s.busy.Begin(cur.TripID)()

	if err := s.store.DeleteItem(ctx, id); err != nil {
		return persistence("delete", "ledger item", id, err)
	}

	s.invalidate(ctx, MutationItemDelete, cur.TripID, id)
	s.publish(ctx, amqp.NewLedgerChangeMessage(cur.TripID, amqp.EntityItem, amqp.OperationDelete, id))
	s.logger.InfoContext(ctx, "Ledger item deleted", log.NewFields().
		WithTrip(cur.TripID).
		WithOperation(log.OpDelete).ToSlice()...)
	return nil
}

// BeginInstrumentEdit opens a staging session from the persisted settings and instruments.
func (s *BudgetService) BeginInstrumentEdit(ctx context.Context, tripID string) (*reconcile.Session, error) {
	settings, err := s.store.GetSettings(ctx, tripID)
	if err != nil {
		return nil, persistence("get", "trip settings", tripID, err)
	}
	if settings == nil {
		return nil, &core.NotFoundError{Entity: "trip", ID: tripID}
	}
	list, err := s.store.ListInstruments(ctx, tripID)
	if err != nil {
		return nil, persistence("list", "payment instruments", tripID, err)
	}
	return reconcile.Begin(*settings, list), nil
}

// CommitInstruments runs the session's commit plan against the store.
// It runs to completion or to the first failed write even if ctx is canceled.
func (s *BudgetService) CommitInstruments(ctx context.Context, session *reconcile.Session) (reconcile.Plan, error) {
	tripID := session.TripID()
	defer s.busy.Begin(tripID)()

	plan, err := session.Commit(ctx, storeWriter{store: s.store})
	if err != nil {
		var pc *core.PartialCommitError
		if errors.As(err, &pc) {
			s.logger.ErrorContext(ctx, "Instrument commit aborted", log.NewFields().
				WithTrip(tripID).
				WithCommit(session.ID(), pc.Completed, pc.Total).
				WithError(err).
				WithOperation(log.OpCommit).ToSlice()...)
			if pc.Completed > 0 {
				s.invalidate(ctx, MutationInstrumentCommit, tripID, "")
			}
		}
		return plan, err
	}

	s.invalidate(ctx, MutationInstrumentCommit, tripID, "")
	s.publish(ctx, amqp.NewLedgerChangeMessage(tripID, amqp.EntityInstrument, amqp.OperationCommit, session.ID()))
	s.logger.InfoContext(ctx, "Instruments committed", log.NewFields().
		WithTrip(tripID).
		WithCommit(session.ID(), plan.Steps(), plan.Steps()).
		WithOperation(log.OpCommit).ToSlice()...)
	return plan, nil
}

func (s *BudgetService) checkTrip(ctx context.Context, tripID string) error {
	settings, err := s.store.GetSettings(ctx, tripID)
	if err != nil {
		return persistence("get", "trip settings", tripID, err)
	}
	if settings == nil {
		return &core.NotFoundError{Entity: "trip", ID: tripID}
	}
	return nil
}

func (s *BudgetService) checkInstrument(ctx context.Context, tripID, id string) error {
	in, err := s.store.GetInstrument(ctx, id)
	if err != nil {
		return persistence("get", "payment instrument", id, err)
	}
	if in == nil {
		return &core.NotFoundError{Entity: "payment instrument", ID: id}
	}
	if in.TripID != tripID {
		return core.Invalid("paymentInstrumentId", core.ErrInstrumentTrip)
	}
	return nil
}

func (s *BudgetService) invalidate(ctx context.Context, m Mutation, tripID, entityID string) {
	if s.registry == nil {
		return
	}
	keys := s.registry.Invalidate(m.Invalidates(tripID, entityID)...)
	s.logger.DebugContext(ctx, "Cache invalidated", log.FieldTripID, tripID, "mutation", m.String(), "keys", len(keys))
}

func (s *BudgetService) publish(ctx context.Context, msg *amqp.LedgerChangeMessage) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping change message", log.FieldTripID, msg.TripID)
		return
	}
	if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change message", log.NewFields().
			WithTrip(msg.TripID).
			WithError(err).
			WithOperation(log.OpPublish).ToSlice()...)
	}
}

func persistence(op, entity, id string, err error) error {
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	var pe *core.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &core.PersistenceError{Op: op, Entity: entity, ID: id, Err: err}
}

func normalizeItem(it core.LedgerItem) core.LedgerItem {
	it.TripID = strings.TrimSpace(it.TripID)
	it.Title = strings.TrimSpace(it.Title)
	it.CurrencyCode = core.NormalizeCurrency(it.CurrencyCode)
	if it.SplitWith == nil {
		it.SplitWith = []string{}
	}
	return it
}

func normalizePatch(p core.LedgerItemPatch) core.LedgerItemPatch {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	if p.CurrencyCode != nil {
		c := core.NormalizeCurrency(*p.CurrencyCode)
		p.CurrencyCode = &c
	}
	return p
}

// storeWriter adapts a Store to the reconcile commit steps.
type storeWriter struct {
	store storage.Store
}

func (w storeWriter) SaveSettings(ctx context.Context, settings core.TripSettings) error {
	if _, err := w.store.UpsertSettings(ctx, settings); err != nil {
		return persistence("upsert", "trip settings", settings.TripID, err)
	}
	return nil
}

func (w storeWriter) UpsertInstrument(ctx context.Context, in core.PaymentInstrument) error {
	if _, err := w.store.UpsertInstrument(ctx, in); err != nil {
		return persistence("upsert", "payment instrument", in.ID, err)
	}
	return nil
}

func (w storeWriter) DeleteInstrument(ctx context.Context, tripID, id string) error {
	if err := w.store.DeleteInstrument(ctx, id); err != nil {
		return persistence("delete", "payment instrument", id, fmt.Errorf("trip %s: %w", tripID, err))
	}
	return nil
}
