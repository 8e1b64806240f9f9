package reconcile

import (
	"context"
	"fmt"

	"tripledger/internal/core"
)

// Writer persists the pieces of a commit plan. Every method must be
// idempotent by id so a plan can be replayed after a partial failure.
type Writer interface {
	SaveSettings(ctx context.Context, settings core.TripSettings) error
	UpsertInstrument(ctx context.Context, instrument core.PaymentInstrument) error
	DeleteInstrument(ctx context.Context, tripID, id string) error
}

// Plan is the full set of writes needed to make the store match a staged edit.
type Plan struct {
	Settings core.TripSettings        `json:"settings"`
	Upsert   []core.PaymentInstrument `json:"upsert"`
	Delete   []string                 `json:"delete"`
}

// Reconcile builds the plan that turns persisted into staged. Every staged
// instrument is upserted in staged order; persisted ids missing from staged
// are deleted in persisted order.
func Reconcile(settings core.TripSettings, persisted, staged []core.PaymentInstrument) Plan {
	keep := make(map[string]struct{}, len(staged))
	for _, in := range staged {
		keep[in.ID] = struct{}{}
	}

	p := Plan{
		Settings: settings.Clone(),
		Upsert:   append([]core.PaymentInstrument(nil), staged...),
		Delete:   []string{},
	}
	for _, in := range persisted {
		if _, ok := keep[in.ID]; !ok {
			p.Delete = append(p.Delete, in.ID)
		}
	}
	return p
}

// Steps is the number of writes Execute performs.
func (p Plan) Steps() int {
	return 1 + len(p.Upsert) + len(p.Delete)
}

// Validate checks the plan before any write is attempted.
func (p Plan) Validate() error {
	if err := p.Settings.Validate(); err != nil {
		return err
	}
	cash := 0
	for i, in := range p.Upsert {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("instrument %d: %w", i, err)
		}
		if in.Order != i {
			return core.Invalid("order", core.ErrInvalidOrder)
		}
		if in.Kind == core.KindCash {
			cash++
		}
	}
	if cash != 1 {
		return core.Invalid("kind", fmt.Errorf("trip must have exactly one cash instrument, found %d", cash))
	}
	return nil
}

// Execute applies p one write at a time: settings, then upserts, then deletes.
// The first failure stops the run and is returned as a *core.PartialCommitError.
// Completed writes are not rolled back.
func Execute(ctx context.Context, w Writer, p Plan) error {
	total := p.Steps()
	done := 0
	fail := func(step string, err error) error {
		return &core.PartialCommitError{Completed: done, Total: total, Step: step, Err: err}
	}

	if err := w.SaveSettings(ctx, p.Settings); err != nil {
		return fail("save settings", err)
	}
	done++

	for _, in := range p.Upsert {
		if err := w.UpsertInstrument(ctx, in); err != nil {
			return fail("upsert instrument "+in.ID, err)
		}
		done++
	}

	for _, id := range p.Delete {
		if err := w.DeleteInstrument(ctx, p.Settings.TripID, id); err != nil {
			return fail("delete instrument "+id, err)
		}
		done++
	}
	return nil
}
