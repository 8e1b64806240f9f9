package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidDate         = errors.New("invalid date")
	ErrEmptyTitle          = errors.New("empty title")
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyID             = errors.New("empty id")
	ErrEmptyTripID         = errors.New("empty trip id")
	ErrEmptyCreator        = errors.New("empty creator")
	ErrEmptyCurrency       = errors.New("empty currency code")
	ErrInvalidCategory     = errors.New("unknown category")
	ErrInvalidKind         = errors.New("unknown instrument kind")
	ErrInvalidRate         = errors.New("exchange rate must be positive")
	ErrNegativeLimit       = errors.New("credit limit cannot be negative")
	ErrInvalidOrder        = errors.New("order cannot be negative")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrProtectedInstrument = errors.New("cash instrument cannot be removed")
	ErrCashKindChange      = errors.New("cash instrument kind cannot change")
	ErrInstrumentTrip      = errors.New("payment instrument belongs to another trip")
	ErrSessionClosed       = errors.New("edit session is not editing")
	ErrTripExists          = errors.New("trip already exists")
	ErrUnknownField        = errors.New("unknown field")
)

// ValidationError reports bad input. It is returned before any persistence call.
type ValidationError struct {
	Field string
	Err   error
}

// Invalid wraps err as a ValidationError on field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports that a referenced id does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// PersistenceError wraps a backend read or write failure.
type PersistenceError struct {
	Op     string
	Entity string
	ID     string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialCommitError reports a multi-step commit aborted after Completed of Total steps.
// Step names the step that failed.
type PartialCommitError struct {
	Completed int
	Total     int
	Step      string
	Err       error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("commit aborted at step %d/%d (%s): %v", e.Completed+1, e.Total, e.Step, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
