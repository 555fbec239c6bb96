/*
Package leave provides the core leave-request and attendance engine.

PURPOSE:
  This package owns the lifecycle of a student leave record and the
  derivation of attendance figures from it. A record is submitted, sits
  in Pending, and is moved exactly once to a terminal state (Approved,
  Rejected, or Cancelled). Attendance is a pure function of the approved
  subset of records.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveRecord: One absence request for one calendar date
  - Status: The four-state machine governing a record
  - UserProfile: Roll number + display name of a student
  - Decision: Approve/Reject outcome applied to a pending record

DESIGN PRINCIPLES:
  1. Single mutable field: only Status changes after creation
  2. Dates are ISO strings (YYYY-MM-DD); lexicographic order is
     chronological order, so range queries need no time parsing
  3. Storage-agnostic: all persistence goes through RecordStore

SEE ALSO:
  - ledger.go: Submission, decision, cancellation, deletion
  - attendance.go: Percentage and per-day absence figures
  - stats.go: Approved-absence time series for dashboards
  - store.go: RecordStore persistence interface
*/
package leave

import (
	"regexp"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DefaultSessionsPerDay is the number of class periods a student can be
// absent from on a single day.
const DefaultSessionsPerDay = 6

// DateFormat is the calendar-date layout used everywhere in this package.
const DateFormat = "2006-01-02"

// DefaultRollPattern matches valid student roll numbers (e.g. "25am042").
// The batch prefix and the 000-062 range come from the enrolment scheme.
var DefaultRollPattern = regexp.MustCompile(`^25am(0[0-5][0-9]|06[0-2])$`)

// NotSubmitted is the display label returned for students with no records.
const NotSubmitted = "Not Submitted"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RecordID string
type UserID string

// =============================================================================
// STATUS - State machine for a leave record
// =============================================================================

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// Terminal reports whether no further transition is defined out of s.
// Only Pending records can move; everything else is final.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Active reports whether s blocks a new submission for the same date.
// A Pending or Approved record holds the day; Rejected and Cancelled
// records do not.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// =============================================================================
// DECISION - Outcome applied to a pending record
// =============================================================================

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// TargetStatus returns the status a decision moves a pending record to.
func (d Decision) TargetStatus() (Status, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionReject:
		return StatusRejected, true
	default:
		return "", false
	}
}

// =============================================================================
// LEAVE RECORD
// =============================================================================

// LeaveRecord is a single absence request for a single calendar date.
// Every field except Status is immutable after creation; the store assigns
// ID on insert.
type LeaveRecord struct {
	ID             RecordID
	UserID         UserID
	StudentName    string
	Date           string // YYYY-MM-DD
	AbsentSessions int    // in [0, SessionsPerDay]
	Reason         string
	Status         Status
	CreatedAt      time.Time
}

// =============================================================================
// USER PROFILE
// =============================================================================

// UserProfile holds the display name for a roll number. The name is
// refreshed from the student's most recent submission; it is not part of
// the record state machine.
type UserProfile struct {
	UserID      UserID
	DisplayName string
	UpdatedAt   time.Time
}
