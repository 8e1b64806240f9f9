package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryTransport Category = "transport"
	CategoryStay      Category = "stay"
	CategoryFood      Category = "food"
	CategoryShopping  Category = "shopping"
	CategoryTicket    Category = "ticket"
	CategoryOther     Category = "other"
)

const (
	KindCash   InstrumentKind = "cash"
	KindCredit InstrumentKind = "credit"
	KindDebit  InstrumentKind = "debit"
)

// DateLayout is the wire and storage format of expense dates.
const DateLayout = "2006-01-02"

// Categories lists every ledger category in display order.
var Categories = []Category{
	CategoryTransport,
	CategoryStay,
	CategoryFood,
	CategoryShopping,
	CategoryTicket,
	CategoryOther,
}

type (
	Category string

	InstrumentKind string

	Date struct {
		time.Time
	}

	// TripSettings holds the currency configuration of a trip.
	TripSettings struct {
		TripID                  string          `json:"tripId"`
		HomeCurrencyCode        string          `json:"homeCurrencyCode"`
		LocalCurrencyCode       string          `json:"localCurrencyCode"`
		ExchangeRateLocalToHome decimal.Decimal `json:"exchangeRateLocalToHome"`
		Info                    map[string]any  `json:"info,omitempty"`
	}

	// PaymentInstrument is a named payment method. A zero CreditLimit means unlimited.
	PaymentInstrument struct {
		ID           string          `json:"id"`
		TripID       string          `json:"tripId"`
		Name         string          `json:"name"`
		Kind         InstrumentKind  `json:"kind"`
		CurrencyCode string          `json:"currencyCode"`
		CreditLimit  decimal.Decimal `json:"creditLimit"`
		Order        int             `json:"order"`
	}

	// LedgerItem is a single expense entry of a trip.
	LedgerItem struct {
		ID                  string          `json:"id"`
		TripID              string          `json:"tripId"`
		PaymentInstrumentID string          `json:"paymentInstrumentId"`
		Title               string          `json:"title"`
		Amount              decimal.Decimal `json:"amount"`
		CurrencyCode        string          `json:"currencyCode"`
		Category            Category        `json:"category"`
		ExpenseDate         Date            `json:"expenseDate"`
		CreatorUserID       string          `json:"creatorUserId"`
		SplitWith           []string        `json:"splitWith"`
		CreatedAt           time.Time       `json:"createdAt"`
		UpdatedAt           time.Time       `json:"updatedAt"`
	}

	// LedgerItemPatch is a partial update; nil fields are left untouched.
	LedgerItemPatch struct {
		PaymentInstrumentID *string          `json:"paymentInstrumentId,omitempty"`
		Title               *string          `json:"title,omitempty"`
		Amount              *decimal.Decimal `json:"amount,omitempty"`
		CurrencyCode        *string          `json:"currencyCode,omitempty"`
		Category            *Category        `json:"category,omitempty"`
		ExpenseDate         *Date            `json:"expenseDate,omitempty"`
		SplitWith           *[]string        `json:"splitWith,omitempty"`
	}
)

const maxTitleLength = 200

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Valid reports whether k is cash, credit or debit.
func (k InstrumentKind) Valid() bool {
	switch k {
	case KindCash, KindCredit, KindDebit:
		return true
	default:
		return false
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NormalizeCurrency trims and upper-cases an ISO currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s TripSettings) Validate() error {
	if strings.TrimSpace(s.TripID) == "" {
		return Invalid("tripId", ErrEmptyTripID)
	}
	if strings.TrimSpace(s.HomeCurrencyCode) == "" {
		return Invalid("homeCurrencyCode", ErrEmptyCurrency)
	}
	if strings.TrimSpace(s.LocalCurrencyCode) == "" {
		return Invalid("localCurrencyCode", ErrEmptyCurrency)
	}
	if !s.ExchangeRateLocalToHome.IsPositive() {
		return Invalid("exchangeRateLocalToHome", ErrInvalidRate)
	}
	return nil
}

// Clone returns a copy that shares no mutable state with s.
func (s TripSettings) Clone() TripSettings {
	if s.Info != nil {
		info := make(map[string]any, len(s.Info))
		for k, v := range s.Info {
			info[k] = v
		}
		s.Info = info
	}
	return s
}

// Protected reports whether the instrument must never be deleted.
func (p PaymentInstrument) Protected() bool {
	return p.Kind == KindCash
}

func (p PaymentInstrument) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return Invalid("id", ErrEmptyID)
	}
	if strings.TrimSpace(p.Name) == "" {
		return Invalid("name", ErrEmptyName)
	}
	if !p.Kind.Valid() {
		return Invalid("kind", ErrInvalidKind)
	}
	if strings.TrimSpace(p.CurrencyCode) == "" {
		return Invalid("currencyCode", ErrEmptyCurrency)
	}
	if p.CreditLimit.IsNegative() {
		return Invalid("creditLimit", ErrNegativeLimit)
	}
	if p.Order < 0 {
		return Invalid("order", ErrInvalidOrder)
	}
	return nil
}

func (i LedgerItem) Validate() error {
	if strings.TrimSpace(i.TripID) == "" {
		return Invalid("tripId", ErrEmptyTripID)
	}
	if strings.TrimSpace(i.PaymentInstrumentID) == "" {
		return Invalid("paymentInstrumentId", ErrEmptyID)
	}
	if len(strings.TrimSpace(i.Title)) == 0 {
		return Invalid("title", ErrEmptyTitle)
	}
	if len(i.Title) > maxTitleLength {
		return Invalid("title", errors.New("title too long (max 200 characters)"))
	}
	if !i.Amount.IsPositive() {
		return Invalid("amount", ErrInvalidAmount)
	}
	if strings.TrimSpace(i.CurrencyCode) == "" {
		return Invalid("currencyCode", ErrEmptyCurrency)
	}
	if !i.Category.Valid() {
		return Invalid("category", ErrInvalidCategory)
	}
	if err := i.ExpenseDate.Validate(); err != nil {
		return Invalid("expenseDate", err)
	}
	if strings.TrimSpace(i.CreatorUserID) == "" {
		return Invalid("creatorUserId", ErrEmptyCreator)
	}
	return nil
}

// Apply returns a copy of i with every non-nil patch field applied.
func (i LedgerItem) Apply(p LedgerItemPatch) LedgerItem {
	if p.PaymentInstrumentID != nil {
		i.PaymentInstrumentID = *p.PaymentInstrumentID
	}
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.Amount != nil {
		i.Amount = *p.Amount
	}
	if p.CurrencyCode != nil {
		i.CurrencyCode = *p.CurrencyCode
	}
	if p.Category != nil {
		i.Category = *p.Category
	}
	if p.ExpenseDate != nil {
		i.ExpenseDate = *p.ExpenseDate
	}
	if p.SplitWith != nil {
		i.SplitWith = append([]string(nil), (*p.SplitWith)...)
	}
	return i
}
