package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

type theme struct {
	Color string `json:"color"`
	Dark  bool   `json:"dark"`
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name   string
		raw    any
		status DecodeStatus
		want   theme
	}{
		{"nil", nil, DecodeAbsent, theme{}},
		{"null text", "null", DecodeAbsent, theme{}},
		{"text", `{"color":"red","dark":true}`, DecodeParsed, theme{"red", true}},
		{"bytes", []byte(`{"color":"blue"}`), DecodeParsed, theme{Color: "blue"}},
		{"raw message", json.RawMessage(`{"dark":true}`), DecodeParsed, theme{Dark: true}},
		{"typed", theme{Color: "green"}, DecodePassedThrough, theme{Color: "green"}},
		{"generic map", map[string]any{"color": "teal"}, DecodePassedThrough, theme{Color: "teal"}},
		{"malformed", `{"color":`, DecodeFailed, theme{}},
		{"wrong shape", `[1,2]`, DecodeFailed, theme{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeJSON[theme](tc.raw)
			if got.Status != tc.status {
				t.Fatalf("status = %s, want %s (err=%v)", got.Status, tc.status, got.Err)
			}
			if tc.status == DecodeFailed && got.Err == nil {
				t.Fatal("failed decode must carry an error")
			}
			if got.OrZero() != tc.want {
				t.Fatalf("value = %+v, want %+v", got.OrZero(), tc.want)
			}
		})
	}
}

func TestDecodeJSONMap(t *testing.T) {
	in := map[string]any{"note": "x"}
	got := DecodeJSON[map[string]any](in)
	if got.Status != DecodePassedThrough || !reflect.DeepEqual(got.Value, in) {
		t.Fatalf("got %+v", got)
	}
	got = DecodeJSON[map[string]any](`{"a":1}`)
	if !got.OK() || got.Value["a"] != float64(1) {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeJSONSlice(t *testing.T) {
	got := DecodeJSON[[]string](`["B","C"]`)
	if !got.OK() || !reflect.DeepEqual(got.Value, []string{"B", "C"}) {
		t.Fatalf("got %+v", got)
	}
}
