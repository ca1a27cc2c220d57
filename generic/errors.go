/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores return these sentinels; the engine wraps them with context; the
  HTTP layer classifies them with the helpers at the bottom of this file.

ERROR CATEGORIES:
  1. NotFound - unknown employee, missing record
  2. Conflict - duplicate check-in/check-out, uniqueness violation, taken ID
  3. Validation - malformed input rejected before any store interaction

NOT ERRORS:
  Insufficient leave and re-applying the current status are normal
  outcomes, reported through attendance.Outcome flags.

USAGE:
  if errors.Is(err, generic.ErrDuplicateRecord) {
      return &generic.ConflictError{...}
  }

SEE ALSO:
  - store.go: contracts returning these errors
  - api/handlers.go: HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when the employee ID is unknown.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRecordNotFound is returned when no attendance record exists for the
	// requested (employee, date) or record ID.
	ErrRecordNotFound = errors.New("attendance record not found")

	// ErrAlreadyCheckedIn is returned when a record already exists for today.
	ErrAlreadyCheckedIn = errors.New("already checked in today")

	// ErrAlreadyCheckedOut is returned when today's record is already closed.
	ErrAlreadyCheckedOut = errors.New("already checked out today")

	// ErrDuplicateRecord is returned by stores when the (employee, date)
	// uniqueness constraint rejects an insert.
	ErrDuplicateRecord = errors.New("attendance record already exists for date")

	// ErrEmployeeExists is returned when registering an ID that is taken.
	ErrEmployeeExists = errors.New("employee already exists")

	// ErrInvalidInput is returned for malformed dates, empty IDs, or an end
	// date before the start date.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConflictError describes a uniqueness violation on a specific day.
type ConflictError struct {
	EmployeeID EmployeeID
	Date       Date
	Err        error // one of the conflict sentinels
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: employee %s on %s", e.Err, e.EmployeeID, e.Date)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// BatchError aggregates per-employee failures of a batch operation.
// Successful employees are committed regardless.
type BatchError struct {
	Failures map[EmployeeID]error
}

func (e *BatchError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %v", id, e.Failures[EmployeeID(id)]))
	}
	return fmt.Sprintf("batch failed for %d employee(s): %s", len(ids), strings.Join(parts, "; "))
}

// Unwrap exposes every underlying failure to errors.Is / errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		errs = append(errs, err)
	}
	return errs
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsConflict returns true if the error is a uniqueness or state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrAlreadyCheckedOut) ||
		errors.Is(err, ErrDuplicateRecord) ||
		errors.Is(err, ErrEmployeeExists)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
