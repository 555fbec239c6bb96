/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error kinds in one place. Every error here is a recoverable,
  caller-facing condition: the HTTP layer maps them to 4xx responses
  and the process never treats them as fatal.

ERROR CATEGORIES:
  1. Validation errors - malformed or out-of-range input, never persisted
  2. Conflict errors - uniqueness invariant or state machine violations
  3. Not-found errors - unknown record ids
  4. Store errors - connectivity/timeout, propagated without retry

USAGE:
  Callers match with errors.Is against the sentinels, or errors.As
  against the structured types for details:

    if errors.Is(err, leave.ErrDuplicateActiveLeave) { ... }

SEE ALSO:
  - ledger.go: Produces these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or out-of-range input.
	// The offending record is never persisted.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateActiveLeave is returned when a Pending or Approved record
	// already exists for the same (user, date). No write occurs.
	ErrDuplicateActiveLeave = errors.New("active leave already exists for this date")

	// ErrInvalidTransition is returned when a status change is attempted
	// out of a terminal state. Reported as a conflict, never a crash.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRecordNotFound is returned for unknown record ids.
	ErrRecordNotFound = errors.New("leave record not found")

	// ErrStoreUnavailable wraps store-level failures (connectivity,
	// timeout). The engine does not retry; backoff belongs to the caller.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which input field failed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateActiveLeaveError identifies the record blocking a submission.
type DuplicateActiveLeaveError struct {
	UserID         UserID
	Date           string
	ExistingID     RecordID
	ExistingStatus Status
}

func (e *DuplicateActiveLeaveError) Error() string {
	return fmt.Sprintf("leave for %s on %s already %s (record: %s)",
		e.UserID, e.Date, e.ExistingStatus, e.ExistingID)
}

func (e *DuplicateActiveLeaveError) Unwrap() error { return ErrDuplicateActiveLeave }

// InvalidTransitionError describes a rejected status change.
type InvalidTransitionError struct {
	ID   RecordID
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("record %s is %s; cannot move to %s", e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateActiveLeave) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsConflict returns true if the error violates the uniqueness invariant
// or the state machine.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateActiveLeave) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
