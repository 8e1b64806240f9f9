package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentStamped(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Component: ComponentLedger})
	l.Info("item added", FieldTripID, "t1")
	l.WithComponent(ComponentCache).Warn("stale")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "trip_id=t1") {
		t.Fatalf("missing fields: %s", out)
	}
	if !strings.Contains(out, "component=cache") {
		t.Fatalf("missing derived component: %s", out)
	}
}

func TestFromContext(t *testing.T) {
	l := Discard()
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatal("expected stored logger")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}
