/*
errors.go - Error taxonomy of the ingestion pipeline

PURPOSE:
  All error types in one place. Every error returned by the pipeline
  matches exactly one of the four classes below via errors.Is().

ERROR CATEGORIES:
  1. BadInput        - malformed row, missing field, missing report id
  2. DuplicateReport - report id used by an earlier submission
  3. DuplicateKey    - (employee id, date) already stored; rolled back
  4. StoreFailure    - anything else from the persistence layer

CALLER SURFACE:
  Client errors (1-3) carry a precise message that is safe to show to the
  submitter. Store failures are logged in full and surfaced only as
  GenericServerMessage so the persistence layer stays a black box.

SEE ALSO:
  - timefile.go: Produces DuplicateKey and StoreFailure
  - pipeline.go: Produces BadInput and DuplicateReport
  - api/handlers.go: Maps classes to HTTP status codes
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBadInput is returned for any caller-fixable problem with the file.
	ErrBadInput = errors.New("bad input")

	// ErrDuplicateReport is returned when the report id was already submitted.
	ErrDuplicateReport = errors.New("duplicate report id")

	// ErrDuplicateKey is returned when an (employee id, date) pair already exists.
	// Stores must return an error matching it for uniqueness violations.
	ErrDuplicateKey = errors.New("duplicate employee hours")

	// ErrStoreFailure covers every other persistence error.
	ErrStoreFailure = errors.New("store failure")

	// ErrMalformedDate is returned when a date does not have three components
	// or is not a calendar date.
	ErrMalformedDate = errors.New("malformed date")
)

// GenericServerMessage is the only text callers see for store failures.
const GenericServerMessage = "Server Error. Please try again later."

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RowError describes the first rule a row violates.
type RowError struct {
	Field  string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Reason, e.Value)
}

func (e *RowError) Unwrap() error {
	return ErrBadInput
}

// BadInputError ties a bad input to its position in the file.
// Row is 1-based over data rows; zero means the file as a whole.
type BadInputError struct {
	Row int
	Err error
}

func (e *BadInputError) Error() string {
	if e.Row == 0 {
		return "Invalid csv format: " + e.Err.Error()
	}
	return fmt.Sprintf("Invalid csv format: row %d: %v", e.Row, e.Err)
}

func (e *BadInputError) Is(target error) bool {
	return target == ErrBadInput
}

func (e *BadInputError) Unwrap() error {
	return e.Err
}

// DuplicateReportError is returned when a report id has already been used.
type DuplicateReportError struct {
	ReportID string
}

func (e *DuplicateReportError) Error() string {
	return "Cannot upload two reports with the same report id."
}

func (e *DuplicateReportError) Unwrap() error {
	return ErrDuplicateReport
}

// DuplicateKeyError is returned after a submission hit the (employee id, date)
// constraint and its rows were rolled back. RollbackErr is set when the
// compensating delete itself failed; it never replaces the duplicate error.
type DuplicateKeyError struct {
	ReportID    string
	Err         error
	RollbackErr error
}

func (e *DuplicateKeyError) Error() string {
	return "Attempt to log employee hours twice: an employee already has hours recorded for one of the dates in this file."
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// StoreError wraps a persistence error with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeFailure(op string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether err is caller-fixable.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBadInput) ||
		errors.Is(err, ErrDuplicateReport) ||
		errors.Is(err, ErrDuplicateKey)
}

// PublicMessage returns the text that may be shown to the submitter.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsClientError(err) {
		return err.Error()
	}
	return GenericServerMessage
}
