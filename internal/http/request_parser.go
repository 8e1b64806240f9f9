// Package http provides HTTP server and handler implementations.
//
// This file implements JSON request decoding and the request bodies of
// the API.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tripledger/internal/core"
)

const maxBodyBytes = 1 << 20

// requestError is a malformed request, as opposed to invalid domain data.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields are rejected. An empty body leaves dst untouched when allowEmpty.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			if allowEmpty {
				return nil
			}
			return badRequest("request body is empty")
		case errors.As(err, &maxErr):
			return badRequest("request body larger than %d bytes", maxErr.Limit)
		default:
			return badRequest("invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// pathIndex parses the integer path parameter name.
func pathIndex(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.PathValue(name))
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s must be an integer, got %q", name, v)
	}
	return i, nil
}

// amountInput accepts an amount as a JSON string ("12,50") or number (12.5).
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("amount must be a string or a number")
	}
	*a = amountInput(n.String())
	return nil
}

func (a amountInput) decimal(field string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(string(a))
	if err != nil {
		return decimal.Zero, core.Invalid(field, err)
	}
	return d, nil
}

func parseDateField(field, s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.Invalid(field, err)
	}
	return d, nil
}

type tripRequest struct {
	HomeCurrencyCode        string         `json:"homeCurrencyCode"`
	LocalCurrencyCode       string         `json:"localCurrencyCode"`
	ExchangeRateLocalToHome amountInput    `json:"exchangeRateLocalToHome"`
	Info                    map[string]any `json:"info"`
}

func (req tripRequest) settings(tripID string) (core.TripSettings, error) {
	rate, err := req.ExchangeRateLocalToHome.decimal("exchangeRateLocalToHome")
	if err != nil {
		return core.TripSettings{}, err
	}
	return core.TripSettings{
		TripID:                  tripID,
		HomeCurrencyCode:        req.HomeCurrencyCode,
		LocalCurrencyCode:       req.LocalCurrencyCode,
		ExchangeRateLocalToHome: rate,
		Info:                    req.Info,
	}, nil
}

type itemRequest struct {
	PaymentInstrumentID string      `json:"paymentInstrumentId"`
	Title               string      `json:"title"`
	Amount              amountInput `json:"amount"`
	CurrencyCode        string      `json:"currencyCode"`
	Category            string      `json:"category"`
	ExpenseDate         string      `json:"expenseDate"`
	CreatorUserID       string      `json:"creatorUserId"`
	SplitWith           []string    `json:"splitWith"`
}

func (req itemRequest) item(tripID string) (core.LedgerItem, error) {
	amount, err := req.Amount.decimal("amount")
	if err != nil {
		return core.LedgerItem{}, err
	}
	date, err := parseDateField("expenseDate", req.ExpenseDate)
	if err != nil {
		return core.LedgerItem{}, err
	}
	split := make([]string, 0, len(req.SplitWith))
	for _, id := range req.SplitWith {
		if id = sanitizeInput(id); id != "" {
			split = append(split, id)
		}
	}
	return core.LedgerItem{
		TripID:              tripID,
		PaymentInstrumentID: strings.TrimSpace(req.PaymentInstrumentID),
		Title:               sanitizeInput(req.Title),
		Amount:              amount,
		CurrencyCode:        req.CurrencyCode,
		Category:            core.Category(strings.TrimSpace(req.Category)),
		ExpenseDate:         date,
		CreatorUserID:       sanitizeInput(req.CreatorUserID),
		SplitWith:           split,
	}, nil
}

type itemPatchRequest struct {
	PaymentInstrumentID *string      `json:"paymentInstrumentId"`
	Title               *string      `json:"title"`
	Amount              *amountInput `json:"amount"`
	CurrencyCode        *string      `json:"currencyCode"`
	Category            *string      `json:"category"`
	ExpenseDate         *string      `json:"expenseDate"`
	SplitWith           *[]string    `json:"splitWith"`
}

func (req itemPatchRequest) patch() (core.LedgerItemPatch, error) {
	var p core.LedgerItemPatch
	if req.PaymentInstrumentID != nil {
		id := strings.TrimSpace(*req.PaymentInstrumentID)
		p.PaymentInstrumentID = &id
	}
	if req.Title != nil {
		t := sanitizeInput(*req.Title)
		p.Title = &t
	}
	if req.Amount != nil {
		d, err := req.Amount.decimal("amount")
		if err != nil {
			return p, err
		}
		p.Amount = &d
	}
	p.CurrencyCode = req.CurrencyCode
	if req.Category != nil {
		c := core.Category(strings.TrimSpace(*req.Category))
		p.Category = &c
	}
	if req.ExpenseDate != nil {
		d, err := parseDateField("expenseDate", *req.ExpenseDate)
		if err != nil {
			return p, err
		}
		p.ExpenseDate = &d
	}
	if req.SplitWith != nil {
		split := make([]string, 0, len(*req.SplitWith))
		for _, id := range *req.SplitWith {
			if id = sanitizeInput(id); id != "" {
				split = append(split, id)
			}
		}
		p.SplitWith = &split
	}
	return p, nil
}

type fieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// reorderRequest carries exactly one of three shapes: {from,to},
// {direction,index} or {activeId,overId}.
type reorderRequest struct {
	From      *int   `json:"from"`
	To        *int   `json:"to"`
	Direction string `json:"direction"`
	Index     *int   `json:"index"`
	ActiveID  string `json:"activeId"`
	OverID    string `json:"overId"`
}

type reorderKind int

const (
	reorderPositions reorderKind = iota
	reorderStep
	reorderDrag
)

func (req reorderRequest) kind() (reorderKind, error) {
	switch {
	case req.From != nil && req.To != nil && req.Direction == "" && req.ActiveID == "":
		return reorderPositions, nil
	case req.Index != nil && (req.Direction == "up" || req.Direction == "down") && req.From == nil && req.ActiveID == "":
		return reorderStep, nil
	case req.ActiveID != "" && req.OverID != "" && req.From == nil && req.Index == nil:
		return reorderDrag, nil
	default:
		return 0, badRequest(`reorder body must be {"from","to"}, {"direction":"up"|"down","index"} or {"activeId","overId"}`)
	}
}

type settingsRequest struct {
	HomeCurrencyCode        string          `json:"homeCurrencyCode"`
	LocalCurrencyCode       string          `json:"localCurrencyCode"`
	ExchangeRateLocalToHome amountInput     `json:"exchangeRateLocalToHome"`
	Info                    *map[string]any `json:"info"`
}
