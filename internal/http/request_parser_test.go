package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"tripledger/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name       string
		body       string
		allowEmpty bool
		wantErr    bool
		wantName   string
	}{
		{"valid", `{"name":"x"}`, false, false, "x"},
		{"empty rejected", ``, false, true, ""},
		{"empty allowed", ``, true, false, ""},
		{"unknown field", `{"name":"x","extra":1}`, false, true, ""},
		{"malformed", `{"name":`, false, true, ""},
		{"trailing object", `{"name":"x"}{"name":"y"}`, false, true, ""},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, false, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			var p payload
			err := decodeJSON(w, r, &p, tt.allowEmpty)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var reqErr *requestError
				if !errors.As(err, &reqErr) {
					t.Errorf("error %T is not a requestError", err)
				}
				return
			}
			if p.Name != tt.wantName {
				t.Errorf("name = %q, want %q", p.Name, tt.wantName)
			}
		})
	}
}

func TestAmountInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"string", `{"amount":"12.50"}`, "12.5", false},
		{"comma string", `{"amount":"12,5"}`, "12.5", false},
		{"number", `{"amount":1000}`, "1000", false},
		{"fraction number", `{"amount":0.22}`, "0.22", false},
		{"negative", `{"amount":"-1"}`, "", true},
		{"bool", `{"amount":true}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var req struct {
				Amount amountInput `json:"amount"`
			}
			err := decodeJSON(httptest.NewRecorder(), r, &req, false)
			if err == nil {
				var d decimal.Decimal
				d, err = req.Amount.decimal("amount")
				if err == nil && !d.Equal(decimal.RequireFromString(tt.want)) {
					t.Errorf("amount = %s, want %s", d, tt.want)
				}
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestItemRequest(t *testing.T) {
	req := itemRequest{
		PaymentInstrumentID: " cash-1 ",
		Title:               "  Ramen\x00 ",
		Amount:              "1000",
		CurrencyCode:        "jpy",
		Category:            "food",
		ExpenseDate:         "2025-04-02",
		CreatorUserID:       "A",
		SplitWith:           []string{"B", " ", "C"},
	}
	it, err := req.item("trip-1")
	if err != nil {
		t.Fatalf("item() error = %v", err)
	}
	if it.TripID != "trip-1" || it.PaymentInstrumentID != "cash-1" {
		t.Errorf("ids = %q/%q", it.TripID, it.PaymentInstrumentID)
	}
	if it.Title != "Ramen" {
		t.Errorf("title = %q, want Ramen", it.Title)
	}
	if len(it.SplitWith) != 2 {
		t.Errorf("splitWith = %v, want blanks dropped", it.SplitWith)
	}
	if !it.ExpenseDate.Equal(core.NewDate(2025, 4, 2).Time) {
		t.Errorf("date = %v", it.ExpenseDate)
	}

	req.ExpenseDate = "02/04/2025"
	_, err = req.item("trip-1")
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "expenseDate" {
		t.Errorf("bad date error = %v, want expenseDate validation error", err)
	}
}

func TestItemPatchRequest(t *testing.T) {
	title := " Sushi "
	amount := amountInput("2000")
	req := itemPatchRequest{Title: &title, Amount: &amount}

	p, err := req.patch()
	if err != nil {
		t.Fatalf("patch() error = %v", err)
	}
	if p.Title == nil || *p.Title != "Sushi" {
		t.Errorf("title = %v", p.Title)
	}
	if p.Amount == nil || !p.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("amount = %v", p.Amount)
	}
	if p.Category != nil || p.ExpenseDate != nil || p.SplitWith != nil {
		t.Error("unset fields should stay nil")
	}
}

func TestReorderRequestKind(t *testing.T) {
	one, two := 1, 2
	tests := []struct {
		name    string
		req     reorderRequest
		want    reorderKind
		wantErr bool
	}{
		{"positions", reorderRequest{From: &one, To: &two}, reorderPositions, false},
		{"up", reorderRequest{Direction: "up", Index: &one}, reorderStep, false},
		{"down", reorderRequest{Direction: "down", Index: &one}, reorderStep, false},
		{"drag", reorderRequest{ActiveID: "a", OverID: "b"}, reorderDrag, false},
		{"empty", reorderRequest{}, 0, true},
		{"sideways", reorderRequest{Direction: "left", Index: &one}, 0, true},
		{"mixed", reorderRequest{From: &one, To: &two, ActiveID: "a", OverID: "b"}, 0, true},
		{"half drag", reorderRequest{ActiveID: "a"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.kind()
			if (err != nil) != tt.wantErr {
				t.Fatalf("kind() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPathIndex(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetPathValue("index", "3")
	if i, err := pathIndex(r, "index"); err != nil || i != 3 {
		t.Errorf("pathIndex = %d, %v", i, err)
	}
	r.SetPathValue("index", "three")
	if _, err := pathIndex(r, "index"); err == nil {
		t.Error("expected error for non-numeric index")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"tab\tkept", "tab\tkept"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
