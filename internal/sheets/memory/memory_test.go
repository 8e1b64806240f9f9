package memory

import (
	"context"
	"errors"
	"testing"

	"tripledger/internal/core"
	"tripledger/internal/sheets"
)

func TestExporterReplacesReport(t *testing.T) {
	e := New()
	ctx := context.Background()

	first := sheets.TripReport{Settings: core.TripSettings{TripID: "kyoto"}}
	ref, err := e.ExportTrip(ctx, first)
	if err != nil || ref != "mem:kyoto:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	second := first
	second.Items = []core.LedgerItem{{ID: "1"}}
	if _, err := e.ExportTrip(ctx, second); err != nil {
		t.Fatal(err)
	}
	got, ok := e.Report("kyoto")
	if !ok || len(got.Items) != 1 {
		t.Fatalf("report = %+v, ok=%v", got, ok)
	}
	if e.Exports() != 2 {
		t.Fatalf("exports = %d", e.Exports())
	}
}

func TestExporterFailNext(t *testing.T) {
	e := New()
	boom := errors.New("quota exceeded")
	e.FailNext(boom)

	r := sheets.TripReport{Settings: core.TripSettings{TripID: "kyoto"}}
	if _, err := e.ExportTrip(context.Background(), r); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if _, ok := e.Report("kyoto"); ok {
		t.Fatal("failed export must not be stored")
	}
	if _, err := e.ExportTrip(context.Background(), r); err != nil {
		t.Fatalf("second export: %v", err)
	}
}
