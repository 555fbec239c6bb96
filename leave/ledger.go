/*
ledger.go - Leave record lifecycle with the active-leave invariant

PURPOSE:
  The Ledger is the single writer of leave records. It validates a
  submission, enforces the one-active-record-per-day rule, and applies
  status transitions.

INVARIANT:
  At most one record per (UserID, Date) may be Pending or Approved at a
  time. A Rejected or Cancelled record does not hold the day; the student
  may resubmit.

STATE MACHINE:
  Pending -> Approved   (Decide, approve)
  Pending -> Rejected   (Decide, reject)
  Pending -> Cancelled  (Cancel, owner only)
  Terminal states never transition again; a re-decision is reported as a
  conflict and the stored status is untouched.

RACE SAFETY:
  Submit checks FindActive first for a precise error, but the store's
  Insert carries the authoritative uniqueness constraint, so two
  concurrent submissions cannot both land. Decide relies on the store's
  compare-and-swap UpdateStatus for the same reason.

WRITE ORDERING:
  Submit touches two tables: the profile upsert happens after the
  uniqueness check and before the record insert. A crash between the two
  leaves a stale display name, never a corrupt leave record.

EXAMPLE:
  ledger := leave.NewLedger(store)
  rec, err := ledger.Submit(ctx, leave.Submission{
      UserID:         "25am042",
      StudentName:    "Asha Nair",
      Date:           "2026-03-10",
      AbsentSessions: 2,
      Reason:         "medical",
  })

SEE ALSO:
  - store.go: Atomicity contract the ledger relies on
  - errors.go: Error kinds surfaced here
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger owns all mutations of leave records.
type Ledger struct {
	store          RecordStore
	sessionsPerDay int
	rollPattern    *regexp.Regexp
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithSessionsPerDay overrides the number of sessions in a school day.
func WithSessionsPerDay(n int) Option {
	return func(l *Ledger) { l.sessionsPerDay = n }
}

// WithRollPattern overrides the roll-number pattern submissions are
// validated against. Pass nil to disable the check.
func WithRollPattern(re *regexp.Regexp) Option {
	return func(l *Ledger) { l.rollPattern = re }
}

// NewLedger creates a ledger over the given store with the default
// six-session day and roll-number pattern.
func NewLedger(store RecordStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:          store,
		sessionsPerDay: DefaultSessionsPerDay,
		rollPattern:    DefaultRollPattern,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SessionsPerDay returns the configured day length.
func (l *Ledger) SessionsPerDay() int { return l.sessionsPerDay }

// =============================================================================
// SUBMISSION
// =============================================================================

// Submission is a student's request to record an absence.
type Submission struct {
	UserID         UserID
	StudentName    string
	Date           string // YYYY-MM-DD
	AbsentSessions int
	Reason         string
}

// Submit validates the submission, refreshes the student's display name,
// and inserts a new Pending record.
//
// Errors: ValidationError for out-of-range sessions, a malformed date, or
// a roll number that doesn't match the pattern; DuplicateActiveLeaveError
// when (UserID, Date) already has a Pending or Approved record.
func (l *Ledger) Submit(ctx context.Context, sub Submission) (*LeaveRecord, error) {
	if err := l.validate(sub); err != nil {
		return nil, err
	}

	// Friendly pre-check. The store's Insert constraint is authoritative.
	existing, err := l.store.FindActive(ctx, sub.UserID, sub.Date)
	if err != nil {
		return nil, fmt.Errorf("checking active leave: %w", err)
	}
	if existing != nil {
		return nil, &DuplicateActiveLeaveError{
			UserID:         sub.UserID,
			Date:           sub.Date,
			ExistingID:     existing.ID,
			ExistingStatus: existing.Status,
		}
	}

	// Profile upsert sits between the uniqueness check and the insert; a
	// crash here leaves only a stale display name.
	if err := l.store.UpsertDisplayName(ctx, sub.UserID, sub.StudentName); err != nil {
		return nil, fmt.Errorf("upserting display name: %w", err)
	}

	rec := LeaveRecord{
		UserID:         sub.UserID,
		StudentName:    sub.StudentName,
		Date:           sub.Date,
		AbsentSessions: sub.AbsentSessions,
		Reason:         sub.Reason,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	id, err := l.store.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrDuplicateActiveLeave) {
			// Lost the race against a concurrent submission.
			return nil, &DuplicateActiveLeaveError{UserID: sub.UserID, Date: sub.Date}
		}
		return nil, fmt.Errorf("inserting leave record: %w", err)
	}

	rec.ID = id
	return &rec, nil
}

func (l *Ledger) validate(sub Submission) error {
	if sub.UserID == "" {
		return &ValidationError{Field: "userId", Message: "must not be empty"}
	}
	if l.rollPattern != nil && !l.rollPattern.MatchString(string(sub.UserID)) {
		return &ValidationError{Field: "userId", Message: "does not match the roll-number pattern"}
	}
	if _, err := time.Parse(DateFormat, sub.Date); err != nil {
		return &ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if sub.AbsentSessions < 0 || sub.AbsentSessions > l.sessionsPerDay {
		return &ValidationError{
			Field:   "absentSessions",
			Message: fmt.Sprintf("must be between 0 and %d", l.sessionsPerDay),
		}
	}
	return nil
}

// =============================================================================
// DECISION
// =============================================================================

// Decide moves a Pending record to Approved or Rejected.
//
// Errors: ErrRecordNotFound for an unknown id; InvalidTransitionError when
// the record is no longer Pending (the stored status is left untouched, so
// re-decision attempts are rejected rather than overwritten).
func (l *Ledger) Decide(ctx context.Context, id RecordID, decision Decision) (*LeaveRecord, error) {
	target, ok := decision.TargetStatus()
	if !ok {
		return nil, &ValidationError{Field: "decision", Message: "must be approve or reject"}
	}

	rec, err := l.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
	}
	if rec.Status != StatusPending {
		return nil, &InvalidTransitionError{ID: id, From: rec.Status, To: target}
	}

	// Compare-and-swap at the store guards against a concurrent decision.
	if err := l.store.UpdateStatus(ctx, id, StatusPending, target); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			current, findErr := l.store.FindByID(ctx, id)
			if findErr == nil && current != nil {
				return nil, &InvalidTransitionError{ID: id, From: current.Status, To: target}
			}
			return nil, &InvalidTransitionError{ID: id, From: rec.Status, To: target}
		}
		return nil, fmt.Errorf("updating status: %w", err)
	}

	rec.Status = target
	return rec, nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// Cancel moves the caller's own Pending record to Cancelled. With a date,
// cancellation is scoped to that day; with an empty date it targets the
// user's single pending record, whichever day it is for.
//
// Returns (nil, nil) when the user has nothing pending; that is a no-op,
// not an error.
func (l *Ledger) Cancel(ctx context.Context, userID UserID, date string) (*LeaveRecord, error) {
	var (
		rec *LeaveRecord
		err error
	)
	if date == "" {
		rec, err = l.store.FindPending(ctx, userID)
	} else {
		rec, err = l.store.FindActive(ctx, userID, date)
	}
	if err != nil {
		return nil, fmt.Errorf("finding pending record: %w", err)
	}
	if rec == nil || rec.Status != StatusPending {
		// Nothing cancellable: no record, or the day is already decided.
		return nil, nil
	}

	if err := l.store.UpdateStatus(ctx, rec.ID, StatusPending, StatusCancelled); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, &InvalidTransitionError{ID: rec.ID, From: rec.Status, To: StatusCancelled}
		}
		return nil, fmt.Errorf("cancelling record: %w", err)
	}

	rec.Status = StatusCancelled
	return rec, nil
}

// =============================================================================
// ADMINISTRATIVE DELETE
// =============================================================================

// Delete removes a record unconditionally, bypassing the state machine.
// Terminal records are deleted like any other; an unknown id is a no-op.
func (l *Ledger) Delete(ctx context.Context, id RecordID) error {
	if err := l.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}
