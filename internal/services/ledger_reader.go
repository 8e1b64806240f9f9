package services

import (
	"context"

	"tripledger/internal/cache"
	"tripledger/internal/core"
	"tripledger/internal/storage"
)

// View is a read result. Stale is set when any part was served from an
// outdated snapshot; Warnings explain failed refreshes.
type View[T any] struct {
	Data     T        `json:"data"`
	Stale    bool     `json:"stale"`
	Warnings []string `json:"warnings,omitempty"`
}

func (v *View[T]) absorb(stale bool, warning string) {
	v.Stale = v.Stale || stale
	if warning != "" {
		v.Warnings = append(v.Warnings, warning)
	}
}

// LedgerReader serves cached reads. Aggregates are always recomputed from
// the latest fetched lists.
type LedgerReader struct {
	store       storage.Store
	registry    *cache.Registry
	items       *cache.Loader[[]core.LedgerItem]
	item        *cache.Loader[core.LedgerItem]
	instruments *cache.Loader[[]core.PaymentInstrument]
	settings    *cache.Loader[core.TripSettings]
}

func NewLedgerReader(store storage.Store, registry *cache.Registry, opts cache.Options) *LedgerReader {
	if opts.Permanent == nil {
		opts.Permanent = core.IsNotFound
	}
	return &LedgerReader{
		store:       store,
		registry:    registry,
		items:       cache.NewLoader[[]core.LedgerItem]("items", registry, opts),
		item:        cache.NewLoader[core.LedgerItem]("item", registry, opts),
		instruments: cache.NewLoader[[]core.PaymentInstrument]("instruments", registry, opts),
		settings:    cache.NewLoader[core.TripSettings]("settings", registry, opts),
	}
}

// Cleaners returns the caches a cache.Manager should sweep.
func (r *LedgerReader) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{r.items.LRU(), r.item.LRU(), r.instruments.LRU(), r.settings.LRU()}
}

// Wait blocks until background revalidations finish.
func (r *LedgerReader) Wait() {
	r.items.Wait()
	r.item.Wait()
	r.instruments.Wait()
	r.settings.Wait()
}

func (r *LedgerReader) Settings(ctx context.Context, tripID string) (View[core.TripSettings], error) {
	res, err := r.settings.Get(ctx, SettingsKey(tripID), []string{TripTag(tripID)}, func(ctx context.Context) (core.TripSettings, error) {
		ts, err := r.store.GetSettings(ctx, tripID)
		if err != nil {
			return core.TripSettings{}, persistence("get", "trip settings", tripID, err)
		}
		if ts == nil {
			return core.TripSettings{}, &core.NotFoundError{Entity: "trip", ID: tripID}
		}
		return *ts, nil
	})
	if err != nil {
		return View[core.TripSettings]{}, err
	}
	v := View[core.TripSettings]{Data: res.Value.Clone()}
	v.absorb(res.Stale, res.Warning)
	return v, nil
}

func (r *LedgerReader) Items(ctx context.Context, tripID string) (View[[]core.LedgerItem], error) {
	res, err := r.items.Get(ctx, ItemsKey(tripID), []string{TripTag(tripID)}, func(ctx context.Context) ([]core.LedgerItem, error) {
		list, err := r.store.ListItems(ctx, tripID)
		if err != nil {
			return nil, persistence("list", "ledger items", tripID, err)
		}
		return list, nil
	})
	if err != nil {
		return View[[]core.LedgerItem]{}, err
	}
	v := View[[]core.LedgerItem]{Data: append([]core.LedgerItem{}, res.Value...)}
	v.absorb(res.Stale, res.Warning)
	return v, nil
}

func (r *LedgerReader) Item(ctx context.Context, id string) (View[core.LedgerItem], error) {
	res, err := r.item.Get(ctx, ItemKey(id), nil, func(ctx context.Context) (core.LedgerItem, error) {
		it, err := r.store.GetItem(ctx, id)
		if err != nil {
			return core.LedgerItem{}, persistence("get", "ledger item", id, err)
		}
		if it == nil {
			return core.LedgerItem{}, &core.NotFoundError{Entity: "ledger item", ID: id}
		}
		r.registry.Tag(ItemKey(id), TripTag(it.TripID))
		return *it, nil
	})
	if err != nil {
		return View[core.LedgerItem]{}, err
	}
	v := View[core.LedgerItem]{Data: res.Value}
	v.absorb(res.Stale, res.Warning)
	return v, nil
}

func (r *LedgerReader) Instruments(ctx context.Context, tripID string) (View[[]core.PaymentInstrument], error) {
	res, err := r.instruments.Get(ctx, InstrumentsKey(tripID), []string{TripTag(tripID)}, func(ctx context.Context) ([]core.PaymentInstrument, error) {
		list, err := r.store.ListInstruments(ctx, tripID)
		if err != nil {
			return nil, persistence("list", "payment instruments", tripID, err)
		}
		return list, nil
	})
	if err != nil {
		return View[[]core.PaymentInstrument]{}, err
	}
	v := View[[]core.PaymentInstrument]{Data: append([]core.PaymentInstrument{}, res.Value...)}
	v.absorb(res.Stale, res.Warning)
	return v, nil
}

// Summary aggregates the trip from its cached settings, instruments and items.
func (r *LedgerReader) Summary(ctx context.Context, tripID string) (View[core.TripSummary], error) {
	settings, err := r.Settings(ctx, tripID)
	if err != nil {
		return View[core.TripSummary]{}, err
	}
	instruments, err := r.Instruments(ctx, tripID)
	if err != nil {
		return View[core.TripSummary]{}, err
	}
	items, err := r.Items(ctx, tripID)
	if err != nil {
		return View[core.TripSummary]{}, err
	}

	v := View[core.TripSummary]{Data: core.Summarize(settings.Data, instruments.Data, items.Data)}
	for _, part := range []struct {
		stale    bool
		warnings []string
	}{
		{settings.Stale, settings.Warnings},
		{instruments.Stale, instruments.Warnings},
		{items.Stale, items.Warnings},
	} {
		v.Stale = v.Stale || part.stale
		v.Warnings = append(v.Warnings, part.warnings...)
	}
	return v, nil
}

// Split returns the per-person view of one item.
func (r *LedgerReader) Split(ctx context.Context, itemID string) (View[core.Split], error) {
	item, err := r.Item(ctx, itemID)
	if err != nil {
		return View[core.Split]{}, err
	}
	settings, err := r.Settings(ctx, item.Data.TripID)
	if err != nil {
		return View[core.Split]{}, err
	}
	v := View[core.Split]{
		Data:     core.SplitOf(item.Data, settings.Data),
		Stale:    item.Stale || settings.Stale,
		Warnings: append(append([]string{}, item.Warnings...), settings.Warnings...),
	}
	return v, nil
}
