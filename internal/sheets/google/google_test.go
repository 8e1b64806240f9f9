package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"tripledger/internal/core"
	ports "tripledger/internal/sheets"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentialsFromFile(t *testing.T) {
	path := t.TempDir() + "/sa.json"
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)

	b, err := credentialsFromEnv()
	if err != nil || !strings.Contains(string(b), "service_account") {
		t.Fatalf("credentials = %q, %v", b, err)
	}
}

func TestSheetTitle(t *testing.T) {
	tests := []struct {
		prefix, trip, want string
	}{
		{"Trip", "kyoto", "Trip kyoto"},
		{"", "kyoto", "Trip kyoto"},
		{" Viaggio ", "a/b:c", "Viaggio a_b_c"},
		{"Trip", "it's", "Trip it_s"},
	}
	for _, tt := range tests {
		if got := SheetTitle(tt.prefix, tt.trip); got != tt.want {
			t.Errorf("SheetTitle(%q, %q) = %q, want %q", tt.prefix, tt.trip, got, tt.want)
		}
	}
}

// fakeSheets records the calls the client makes against the Sheets REST API.
type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	added   []string
	cleared int
	values  [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && !strings.Contains(path, "/values/"):
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.added = append(f.added, rq.AddSheet.Properties.Title)
			f.titles = append(f.titles, rq.AddSheet.Properties.Title)
		}
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":clear"):
		f.cleared++
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.values = vr.Values
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": "'Trip kyoto'!A1:H20"})
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), "spreadsheet", "Trip", nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func report() ports.TripReport {
	settings := core.TripSettings{
		TripID:                  "kyoto",
		HomeCurrencyCode:        "TWD",
		LocalCurrencyCode:       "JPY",
		ExchangeRateLocalToHome: decimal.RequireFromString("0.22"),
	}
	instruments := []core.PaymentInstrument{{ID: "cash", Name: "Cash", Kind: core.KindCash, CurrencyCode: "TWD"}}
	items := []core.LedgerItem{{
		ID: "1", PaymentInstrumentID: "cash", Title: "Ramen", Amount: decimal.NewFromInt(1000), CurrencyCode: "JPY",
		Category: core.CategoryFood, ExpenseDate: core.NewDate(2025, 4, 2), CreatorUserID: "A",
	}}
	return ports.NewTripReport(settings, instruments, items, time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC))
}

func TestExportTrip_CreatesSheetOnce(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	c := newTestClient(t, fake)

	for i := 0; i < 2; i++ {
		ref, err := c.ExportTrip(context.Background(), report())
		if err != nil {
			t.Fatalf("export %d: %v", i, err)
		}
		if ref != "'Trip kyoto'!A1:H20" {
			t.Errorf("ref = %q", ref)
		}
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.added) != 1 || fake.added[0] != "Trip kyoto" {
		t.Fatalf("added sheets = %v", fake.added)
	}
	if fake.cleared != 2 {
		t.Errorf("cleared = %d, want 2", fake.cleared)
	}
	if len(fake.values) != len(report().Rows()) {
		t.Errorf("wrote %d rows, want %d", len(fake.values), len(report().Rows()))
	}
}

func TestExportTrip_APIError(t *testing.T) {
	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	defer fail.Close()
	c, err := New(context.Background(), "spreadsheet", "", nil,
		goption.WithEndpoint(fail.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(fail.Client()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ExportTrip(context.Background(), report()); err == nil || !strings.Contains(err.Error(), "read spreadsheet") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExportTrip_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x", prefix: "Trip"}
	if _, err := c.ExportTrip(context.Background(), report()); err == nil {
		t.Fatal("expected error")
	}
}
