/*
attendance.go - Attendance derivation from approved records

PURPOSE:
  Read-side calculator that turns a student's Approved records into an
  attendance percentage and the per-day figures the student dashboard
  shows. No mutation; everything is a pure function of store state.

PERCENTAGE:
  possible = |approved| * SessionsPerDay
  absent   = sum of AbsentSessions over approved
  pct      = round2((possible - absent) / possible * 100)

  A student with no approved records is treated as fully present (100%).
  Rounding is half-up (decimal half-away-from-zero), to 2 places; the
  result is always within [0, 100] because AbsentSessions is bounded at
  creation.

PRECISION:
  Percentages are computed with decimal.Decimal, never binary floats, so
  2 out of 6 sessions is exactly 66.67 and not 66.66999....

SEE ALSO:
  - stats.go: Window aggregation across students
  - ledger.go: The writer that produces the approved subset
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator derives attendance figures for a single student.
type Calculator struct {
	store          RecordStore
	sessionsPerDay int
}

// NewCalculator creates a calculator with the default six-session day.
func NewCalculator(store RecordStore) *Calculator {
	return &Calculator{store: store, sessionsPerDay: DefaultSessionsPerDay}
}

// NewCalculatorWithSessions creates a calculator with a custom day length.
func NewCalculatorWithSessions(store RecordStore, sessionsPerDay int) *Calculator {
	return &Calculator{store: store, sessionsPerDay: sessionsPerDay}
}

// AttendanceSummary is the derived attendance state of one student.
type AttendanceSummary struct {
	Percentage            decimal.Decimal
	TotalPossibleSessions int
	TotalAbsentSessions   int
}

// ComputeAttendance derives the student's attendance from their Approved
// records. Pending and rejected records contribute nothing.
func (c *Calculator) ComputeAttendance(ctx context.Context, userID UserID) (AttendanceSummary, error) {
	approved, err := c.store.FindApprovedByUser(ctx, userID)
	if err != nil {
		return AttendanceSummary{}, fmt.Errorf("loading approved records: %w", err)
	}

	possible := len(approved) * c.sessionsPerDay
	absent := 0
	for _, rec := range approved {
		absent += rec.AbsentSessions
	}

	summary := AttendanceSummary{
		TotalPossibleSessions: possible,
		TotalAbsentSessions:   absent,
	}

	// No history means fully present, not an error.
	if possible == 0 {
		summary.Percentage = hundred
		return summary, nil
	}

	present := decimal.NewFromInt(int64(possible - absent))
	total := decimal.NewFromInt(int64(possible))
	summary.Percentage = present.Div(total).Mul(hundred).Round(2)
	return summary, nil
}

// LatestStatus returns the status of the student's most recent record by
// insertion order (not by the Date field), or "Not Submitted" when the
// student has no records at all.
func (c *Calculator) LatestStatus(ctx context.Context, userID UserID) (string, error) {
	records, err := c.store.FindAllByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading records: %w", err)
	}
	if len(records) == 0 {
		return NotSubmitted, nil
	}
	return string(records[0].Status), nil
}

// AbsentToday returns the absent-session count of the student's Approved
// record dated today, or 0. A Pending record for today does not count.
func (c *Calculator) AbsentToday(ctx context.Context, userID UserID, today string) (int, error) {
	approved, err := c.store.FindApprovedByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("loading approved records: %w", err)
	}
	for _, rec := range approved {
		if rec.Date == today {
			return rec.AbsentSessions, nil
		}
	}
	return 0, nil
}

// =============================================================================
// STUDENT OVERVIEW - Everything the student dashboard shows
// =============================================================================

// StudentOverview bundles the dashboard fields for one student.
type StudentOverview struct {
	UserID        UserID
	DisplayName   string
	Attendance    AttendanceSummary
	LatestStatus  string
	AbsentToday   int
	LastLeaveDate string // Date of the most recent record, "" if none
	History       []LeaveRecord
}

// Overview assembles the student dashboard view: profile name, attendance
// summary, latest submission status, today's approved absence, and the
// full history most recent first.
func (c *Calculator) Overview(ctx context.Context, userID UserID, today string) (*StudentOverview, error) {
	summary, err := c.ComputeAttendance(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := c.store.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	absentToday, err := c.AbsentToday(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	ov := &StudentOverview{
		UserID:       userID,
		Attendance:   summary,
		LatestStatus: NotSubmitted,
		AbsentToday:  absentToday,
		History:      history,
	}
	if len(history) > 0 {
		ov.LatestStatus = string(history[0].Status)
		ov.LastLeaveDate = history[0].Date
	}

	profile, err := c.store.FindProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if profile != nil {
		ov.DisplayName = profile.DisplayName
	}

	return ov, nil
}
