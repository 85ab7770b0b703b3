package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned while another logging action is still running.
	ErrBusy = errors.New("another request is already in progress")

	ErrInvalidInput = errors.New("invalid input")
)

// ExtractionError means the AI call failed or its output could not be
// trusted: unparseable, missing fields, wrong types or out-of-range values.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError means the store rejected a write or delete.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// LoadDegraded reports a read failure that was replaced by an empty day.
// The accompanying result is still well-formed.
type LoadDegraded struct {
	Date string
	Err  error
}

func (e *LoadDegraded) Error() string {
	return fmt.Sprintf("load degraded for %s: %v", e.Date, e.Err)
}

func (e *LoadDegraded) Unwrap() error { return e.Err }

func extractionErr(op string, format string, args ...any) error {
	return &ExtractionError{Op: op, Err: fmt.Errorf(format, args...)}
}
