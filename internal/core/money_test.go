package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"1000", "1000", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"219.5": "220",
		"219.4": "219",
		"0.5":   "1",
		"220":   "220",
		"0":     "0",
	}
	for in, want := range cases {
		got := roundHalfUp(decimal.RequireFromString(in))
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("roundHalfUp(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.NewFromInt(1000), "XYZ"); got != "1000.00 XYZ" {
		t.Fatalf("unknown currency fallback = %q", got)
	}
	if got := FormatAmount(decimal.RequireFromString("12.5"), "usd"); got != "$12.50" {
		t.Fatalf("usd = %q", got)
	}
}
