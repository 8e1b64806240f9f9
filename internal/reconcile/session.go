// Package reconcile stages edits to a trip's payment instruments and settings
// and turns them into a sequential commit plan.
package reconcile

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tripledger/internal/core"
)

// State is the lifecycle position of a Session.
type State int

const (
	Viewing State = iota
	Editing
	Committing
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	default:
		return "unknown"
	}
}

// Field names an editable instrument attribute.
type Field string

const (
	FieldName        Field = "name"
	FieldKind        Field = "kind"
	FieldCurrency    Field = "currencyCode"
	FieldCreditLimit Field = "creditLimit"
)

// DefaultInstrumentName is given to instruments created by AddInstrument.
const DefaultInstrumentName = "New card"

// Session is a staged, uncommitted edit of one trip's settings and instruments.
// It is safe for concurrent use; all local operations keep Order equal to the
// list position.
type Session struct {
	mu        sync.Mutex
	id        string
	state     State
	settings  core.TripSettings
	persisted []core.PaymentInstrument
	staged    []core.PaymentInstrument
}

// Snapshot is a copy of a session's current content.
type Snapshot struct {
	ID          string                   `json:"id"`
	TripID      string                   `json:"tripId"`
	State       string                   `json:"state"`
	Settings    core.TripSettings        `json:"settings"`
	Instruments []core.PaymentInstrument `json:"instruments"`
}

// Begin opens an editing session cloned from the persisted settings and
// instruments. The persisted slice is expected in order asc.
func Begin(settings core.TripSettings, persisted []core.PaymentInstrument) *Session {
	s := &Session{
		id:        uuid.NewString(),
		state:     Editing,
		settings:  settings.Clone(),
		persisted: clone(persisted),
		staged:    clone(persisted),
	}
	s.reindex()
	return s
}

func clone(in []core.PaymentInstrument) []core.PaymentInstrument {
	return append([]core.PaymentInstrument{}, in...)
}

func (s *Session) ID() string { return s.id }

func (s *Session) TripID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.TripID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Instruments returns a copy of the staged list.
func (s *Session) Instruments() []core.PaymentInstrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.staged)
}

// Settings returns a copy of the staged settings.
func (s *Session) Settings() core.TripSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:          s.id,
		TripID:      s.settings.TripID,
		State:       s.state.String(),
		Settings:    s.settings.Clone(),
		Instruments: clone(s.staged),
	}
}

// AddInstrument appends a credit instrument with no limit in the trip's local currency.
func (s *Session) AddInstrument() (core.PaymentInstrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return core.PaymentInstrument{}, core.ErrSessionClosed
	}
	in := core.PaymentInstrument{
		ID:           uuid.NewString(),
		TripID:       s.settings.TripID,
		Name:         DefaultInstrumentName,
		Kind:         core.KindCredit,
		CurrencyCode: s.settings.LocalCurrencyCode,
		CreditLimit:  decimal.Zero,
		Order:        len(s.staged),
	}
	s.staged = append(s.staged, in)
	s.reindex()
	return in, nil
}

// SetField updates a single attribute of the instrument at index.
func (s *Session) SetField(index int, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return core.ErrSessionClosed
	}
	if err := s.checkIndex("index", index); err != nil {
		return err
	}

	in := &s.staged[index]
	switch field {
	case FieldName:
		in.Name = value
	case FieldKind:
		kind := core.InstrumentKind(value)
		if !kind.Valid() {
			return core.Invalid(string(field), core.ErrInvalidKind)
		}
		if kind != in.Kind && (kind == core.KindCash || in.Kind == core.KindCash) {
			return core.Invalid(string(field), core.ErrCashKindChange)
		}
		in.Kind = kind
	case FieldCurrency:
		code := core.NormalizeCurrency(value)
		if code == "" {
			return core.Invalid(string(field), core.ErrEmptyCurrency)
		}
		in.CurrencyCode = code
	case FieldCreditLimit:
		limit, err := core.ParseAmount(value)
		if err != nil {
			return core.Invalid(string(field), err)
		}
		in.CreditLimit = limit
	default:
		return core.Invalid(string(field), core.ErrUnknownField)
	}
	return nil
}

// RemoveInstrument drops the instrument at index. Cash instruments are
// protected and leave the list unchanged.
func (s *Session) RemoveInstrument(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return core.ErrSessionClosed
	}
	if err := s.checkIndex("index", index); err != nil {
		return err
	}
	if s.staged[index].Protected() {
		return core.Invalid("index", core.ErrProtectedInstrument)
	}
	s.staged = append(s.staged[:index], s.staged[index+1:]...)
	s.reindex()
	return nil
}

// Reorder moves the instrument at from to position to.
func (s *Session) Reorder(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(from, to)
}

// MoveUp swaps the instrument at index with its predecessor. The first
// instrument stays in place.
func (s *Session) MoveUp(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index == 0 && len(s.staged) > 0 {
		return s.move(0, 0)
	}
	return s.move(index, index-1)
}

// MoveDown swaps the instrument at index with its successor. The last
// instrument stays in place.
func (s *Session) MoveDown(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index == len(s.staged)-1 {
		return s.move(index, index)
	}
	return s.move(index, index+1)
}

// DragReorder moves the instrument activeID into the position held by overID.
func (s *Session) DragReorder(activeID, overID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to := s.indexOf(activeID), s.indexOf(overID)
	if from < 0 {
		return &core.NotFoundError{Entity: "payment instrument", ID: activeID}
	}
	if to < 0 {
		return &core.NotFoundError{Entity: "payment instrument", ID: overID}
	}
	return s.move(from, to)
}

// move is the single reorder primitive: remove at from, insert at to, reindex.
// Callers hold mu.
func (s *Session) move(from, to int) error {
	if s.state != Editing {
		return core.ErrSessionClosed
	}
	if err := s.checkIndex("from", from); err != nil {
		return err
	}
	if err := s.checkIndex("to", to); err != nil {
		return err
	}
	if from != to {
		in := s.staged[from]
		s.staged = append(s.staged[:from], s.staged[from+1:]...)
		s.staged = append(s.staged[:to], append([]core.PaymentInstrument{in}, s.staged[to:]...)...)
	}
	s.reindex()
	return nil
}

// SetSettings stages new currency settings for the trip.
func (s *Session) SetSettings(home, local string, rate decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return core.ErrSessionClosed
	}
	next := s.settings.Clone()
	next.HomeCurrencyCode = core.NormalizeCurrency(home)
	next.LocalCurrencyCode = core.NormalizeCurrency(local)
	next.ExchangeRateLocalToHome = rate
	if err := next.Validate(); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// SetInfo stages the free-form info block of the trip settings.
func (s *Session) SetInfo(info map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return core.ErrSessionClosed
	}
	s.settings.Info = info
	s.settings = s.settings.Clone()
	return nil
}

// Plan returns the commit plan for the current staged content.
func (s *Session) Plan() Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Reconcile(s.settings, s.persisted, s.staged)
}

// Commit validates and executes the plan. On success the session moves to
// Viewing and can no longer be edited. On failure it returns to Editing with
// its staged content intact, so Commit can be retried.
//
// Commit ignores cancellation of ctx once the first write starts.
func (s *Session) Commit(ctx context.Context, w Writer) (Plan, error) {
	s.mu.Lock()
	if s.state != Editing {
		s.mu.Unlock()
		return Plan{}, core.ErrSessionClosed
	}
	plan := Reconcile(s.settings, s.persisted, s.staged)
	if err := plan.Validate(); err != nil {
		s.mu.Unlock()
		return plan, err
	}
	s.state = Committing
	s.mu.Unlock()

	err := Execute(context.WithoutCancel(ctx), w, plan)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Editing
		return plan, err
	}
	s.persisted = clone(s.staged)
	s.state = Viewing
	return plan, nil
}

// Discard abandons the session without touching the store.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Committing {
		return
	}
	s.state = Viewing
	s.staged = clone(s.persisted)
}

func (s *Session) reindex() {
	for i := range s.staged {
		s.staged[i].Order = i
		s.staged[i].TripID = s.settings.TripID
	}
}

func (s *Session) checkIndex(field string, i int) error {
	if i < 0 || i >= len(s.staged) {
		return core.Invalid(field, core.ErrIndexOutOfRange)
	}
	return nil
}

func (s *Session) indexOf(id string) int {
	for i, in := range s.staged {
		if in.ID == id {
			return i
		}
	}
	return -1
}
