/*
stats.go - Approved-absence time series for the admin dashboard

PURPOSE:
  Groups Approved records by date within a caller-selected window and
  sums absent sessions per day. Read-only; consumes whatever the store
  currently holds.

WINDOWS:
  Today: records dated exactly today
  Week:  records dated on or after today - 7 days
  Month: records dated on or after today - 30 days

OUTPUT:
  Ascending by date (lexicographic on YYYY-MM-DD is chronological).
  Dates with no approved records are omitted, not zero-filled; the
  dashboard decides its own display policy.

SEE ALSO:
  - attendance.go: Per-student derivation
*/
package leave

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// WINDOW
// =============================================================================

type Window string

const (
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// ParseWindow maps a query-string value to a Window; anything
// unrecognized defaults to the weekly window, matching the dashboard.
func ParseWindow(s string) Window {
	switch Window(s) {
	case WindowToday, WindowWeek, WindowMonth:
		return Window(s)
	default:
		return WindowWeek
	}
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// DayTotal is one point of the absence time series.
type DayTotal struct {
	Date        string
	TotalAbsent int
}

// Aggregator produces absence totals per day over a window.
type Aggregator struct {
	store RecordStore

	// Now supplies the aggregator's clock. Overridable in tests.
	Now func() time.Time
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store RecordStore) *Aggregator {
	return &Aggregator{store: store, Now: time.Now}
}

// Aggregate sums approved absent sessions per distinct date inside the
// window, ascending by date. Only Approved records count.
func (a *Aggregator) Aggregate(ctx context.Context, w Window) ([]DayTotal, error) {
	today := a.Now().Format(DateFormat)

	var start, end string
	switch w {
	case WindowToday:
		start, end = today, today
	case WindowMonth:
		start = a.Now().AddDate(0, 0, -30).Format(DateFormat)
	default: // week
		start = a.Now().AddDate(0, 0, -7).Format(DateFormat)
	}

	records, err := a.store.FindApprovedInWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading approved records: %w", err)
	}

	totals := make(map[string]int)
	for _, rec := range records {
		totals[rec.Date] += rec.AbsentSessions
	}

	series := make([]DayTotal, 0, len(totals))
	for date, absent := range totals {
		series = append(series, DayTotal{Date: date, TotalAbsent: absent})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// TodayAbsentCount returns how many approved leave records are dated
// today, the headline figure on the admin dashboard.
func (a *Aggregator) TodayAbsentCount(ctx context.Context) (int, error) {
	today := a.Now().Format(DateFormat)
	records, err := a.store.FindApprovedInWindow(ctx, today, today)
	if err != nil {
		return 0, fmt.Errorf("loading approved records: %w", err)
	}
	return len(records), nil
}
