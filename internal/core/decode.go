package core

import (
	"bytes"
	"encoding/json"
)

// DecodeStatus tells how a structured field was obtained.
type DecodeStatus int

const (
	// DecodeAbsent means the raw value was nil or JSON null.
	DecodeAbsent DecodeStatus = iota
	// DecodeParsed means the raw value was JSON text and parsed cleanly.
	DecodeParsed
	// DecodePassedThrough means the raw value was already decoded.
	DecodePassedThrough
	// DecodeFailed means the raw value could not be decoded; Err says why.
	DecodeFailed
)

func (s DecodeStatus) String() string {
	switch s {
	case DecodeAbsent:
		return "absent"
	case DecodeParsed:
		return "parsed"
	case DecodePassedThrough:
		return "passed_through"
	case DecodeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Decoded is the tagged result of DecodeJSON.
type Decoded[T any] struct {
	Value  T
	Status DecodeStatus
	Err    error
}

// OK reports whether a value is available.
func (d Decoded[T]) OK() bool {
	return d.Status == DecodeParsed || d.Status == DecodePassedThrough
}

// OrZero returns the value, or the zero value when absent or failed.
func (d Decoded[T]) OrZero() T {
	if d.OK() {
		return d.Value
	}
	var zero T
	return zero
}

// DecodeJSON decodes a persisted structured field that may arrive either as
// JSON text or as an already decoded value.
//
// Strings and byte slices are parsed as JSON. A value that already has type T
// is passed through unchanged; other decoded values (such as the
// map[string]any produced by a generic JSON decode) are normalized into T.
// nil and JSON null are reported as absent. Failures keep the error.
func DecodeJSON[T any](raw any) Decoded[T] {
	switch v := raw.(type) {
	case nil:
		return Decoded[T]{Status: DecodeAbsent}
	case string:
		return parseJSON[T]([]byte(v))
	case []byte:
		if v == nil {
			return Decoded[T]{Status: DecodeAbsent}
		}
		return parseJSON[T](v)
	case json.RawMessage:
		return parseJSON[T](v)
	case T:
		return Decoded[T]{Value: v, Status: DecodePassedThrough}
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return Decoded[T]{Status: DecodeFailed, Err: err}
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return Decoded[T]{Status: DecodeFailed, Err: err}
	}
	return Decoded[T]{Value: out, Status: DecodePassedThrough}
}

func parseJSON[T any](b []byte) Decoded[T] {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return Decoded[T]{Status: DecodeAbsent}
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return Decoded[T]{Status: DecodeFailed, Err: err}
	}
	return Decoded[T]{Value: out, Status: DecodeParsed}
}
