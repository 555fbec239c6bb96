package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus/attendance-engine/leave"
	"github.com/campus/attendance-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*leave.Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return leave.NewLedger(mem), mem
}

func submission(userID, date string, sessions int) leave.Submission {
	return leave.Submission{
		UserID:         leave.UserID(userID),
		StudentName:    "Test Student",
		Date:           date,
		AbsentSessions: sessions,
		Reason:         "medical",
	}
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestLedger_Submit_CreatesPendingRecord(t *testing.T) {
	// GIVEN: No prior records
	// WHEN: A valid submission arrives
	// THEN: A Pending record is persisted with an assigned id

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID, "store should assign an id")
	assert.Equal(t, leave.StatusPending, rec.Status)
	assert.Equal(t, "2026-03-10", rec.Date)

	stored, err := mem.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, leave.StatusPending, stored.Status)
}

func TestLedger_Submit_UpsertsDisplayName(t *testing.T) {
	// GIVEN: A student submitting under a new name
	// WHEN: The submission succeeds
	// THEN: The profile carries the latest name

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	sub := submission("25am042", "2026-03-10", 2)
	sub.StudentName = "Asha Nair"
	_, err := ledger.Submit(ctx, sub)
	require.NoError(t, err)

	profile, err := mem.FindProfile(ctx, "25am042")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Asha Nair", profile.DisplayName)
}

func TestLedger_Submit_DuplicatePending_Rejected(t *testing.T) {
	// GIVEN: A Pending record for (user, date)
	// WHEN: The same user submits for the same date again
	// THEN: DuplicateActiveLeaveError, and nothing new is persisted

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)

	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-10", 3))
	assert.Error(t, err)

	var dupErr *leave.DuplicateActiveLeaveError
	assert.ErrorAs(t, err, &dupErr)
	assert.ErrorIs(t, err, leave.ErrDuplicateActiveLeave)
	assert.Equal(t, leave.StatusPending, dupErr.ExistingStatus)

	all, err := mem.FindAllByUser(ctx, "25am042")
	require.NoError(t, err)
	assert.Len(t, all, 1, "second submission must not be persisted")
}

func TestLedger_Submit_DuplicateApproved_Rejected(t *testing.T) {
	// GIVEN: An Approved record for (user, date)
	// WHEN: The user submits for that date again
	// THEN: The submission is rejected, approved days stay booked

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionApprove)
	require.NoError(t, err)

	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-10", 1))
	assert.ErrorIs(t, err, leave.ErrDuplicateActiveLeave)
}

func TestLedger_Submit_AfterRejection_Allowed(t *testing.T) {
	// GIVEN: A Rejected record for (user, date)
	// WHEN: The user submits for that date again
	// THEN: The new submission succeeds, terminal records don't block

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionReject)
	require.NoError(t, err)

	again, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	assert.NoError(t, err)
	assert.Equal(t, leave.StatusPending, again.Status)
}

func TestLedger_Submit_AfterCancellation_Allowed(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	cancelled, err := ledger.Cancel(ctx, "25am042", "2026-03-10")
	require.NoError(t, err)
	require.NotNil(t, cancelled)

	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-10", 4))
	assert.NoError(t, err)
}

func TestLedger_Submit_DifferentDates_Allowed(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-11", 2))
	assert.NoError(t, err, "different dates are independent")
}

func TestLedger_Submit_DifferentStudents_Allowed(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	_, err = ledger.Submit(ctx, submission("25am043", "2026-03-10", 2))
	assert.NoError(t, err, "different students are independent")
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestLedger_Submit_SessionBounds(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	// Above the six-session day is rejected and never persisted
	_, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 7))
	assert.ErrorIs(t, err, leave.ErrValidation)

	all, _ := mem.FindAllByUser(ctx, "25am042")
	assert.Empty(t, all, "invalid submission must not be persisted")

	// Both bounds are inclusive
	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-10", 0))
	assert.NoError(t, err, "0 absent sessions is valid")
	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-11", 6))
	assert.NoError(t, err, "a full day absent is valid")

	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-12", -1))
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestLedger_Submit_MalformedDate_Rejected(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Submit(ctx, submission("25am042", "10-03-2026", 2))
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = ledger.Submit(ctx, submission("25am042", "", 2))
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestLedger_Submit_RollPattern(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	// Outside the 000-062 roll range
	_, err := ledger.Submit(ctx, submission("25am063", "2026-03-10", 2))
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = ledger.Submit(ctx, submission("someone-else", "2026-03-10", 2))
	assert.ErrorIs(t, err, leave.ErrValidation)

	// Pattern check can be disabled
	open := leave.NewLedger(store.NewMemory(), leave.WithRollPattern(nil))
	_, err = open.Submit(ctx, submission("someone-else", "2026-03-10", 2))
	assert.NoError(t, err)
}

func TestLedger_CustomSessionsPerDay(t *testing.T) {
	ledger := leave.NewLedger(store.NewMemory(), leave.WithSessionsPerDay(8))
	ctx := context.Background()

	_, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 8))
	assert.NoError(t, err)
	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-11", 9))
	assert.ErrorIs(t, err, leave.ErrValidation)
}

// =============================================================================
// DECISION TESTS
// =============================================================================

func TestLedger_Decide_ApprovesPending(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)

	decided, err := ledger.Decide(ctx, rec.ID, leave.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, decided.Status)

	stored, _ := mem.FindByID(ctx, rec.ID)
	assert.Equal(t, leave.StatusApproved, stored.Status)
}

func TestLedger_Decide_RejectsPending(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)

	decided, err := ledger.Decide(ctx, rec.ID, leave.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, decided.Status)
}

func TestLedger_Decide_UnknownID_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Decide(context.Background(), "no-such-record", leave.DecisionApprove)
	assert.ErrorIs(t, err, leave.ErrRecordNotFound)
}

func TestLedger_Decide_TerminalState_Conflict(t *testing.T) {
	// GIVEN: A record already Rejected
	// WHEN: An approval is attempted
	// THEN: InvalidTransitionError, and the status stays Rejected

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionReject)
	require.NoError(t, err)

	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionApprove)
	assert.Error(t, err)

	var transErr *leave.InvalidTransitionError
	assert.ErrorAs(t, err, &transErr)
	assert.Equal(t, leave.StatusRejected, transErr.From)
	assert.Equal(t, leave.StatusApproved, transErr.To)

	stored, _ := mem.FindByID(ctx, rec.ID)
	assert.Equal(t, leave.StatusRejected, stored.Status, "re-decision must not overwrite")
}

func TestLedger_Decide_Twice_SecondRejected(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)

	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionApprove)
	require.NoError(t, err)
	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionApprove)
	assert.ErrorIs(t, err, leave.ErrInvalidTransition, "decisions are not idempotent overwrites")

	stored, _ := mem.FindByID(ctx, rec.ID)
	assert.Equal(t, leave.StatusApproved, stored.Status)
}

func TestLedger_Decide_InvalidDecision_Rejected(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Decide(context.Background(), "any", leave.Decision("escalate"))
	assert.ErrorIs(t, err, leave.ErrValidation)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestLedger_Cancel_PendingRecord(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)

	cancelled, err := ledger.Cancel(ctx, "25am042", "2026-03-10")
	require.NoError(t, err)
	require.NotNil(t, cancelled)
	assert.Equal(t, leave.StatusCancelled, cancelled.Status)

	stored, _ := mem.FindByID(ctx, rec.ID)
	assert.Equal(t, leave.StatusCancelled, stored.Status)
}

func TestLedger_Cancel_NothingPending_NoOp(t *testing.T) {
	// GIVEN: No pending record
	// WHEN: Cancel is called
	// THEN: Nil record, nil error: a no-op, not a failure

	ledger, _ := newTestLedger(t)

	rec, err := ledger.Cancel(context.Background(), "25am042", "")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLedger_Cancel_ApprovedRecord_NoOp(t *testing.T) {
	// Approved days are decided; cancel only targets Pending.

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionApprove)
	require.NoError(t, err)

	cancelled, err := ledger.Cancel(ctx, "25am042", "2026-03-10")
	assert.NoError(t, err)
	assert.Nil(t, cancelled)

	stored, _ := mem.FindByID(ctx, rec.ID)
	assert.Equal(t, leave.StatusApproved, stored.Status)
}

func TestLedger_Cancel_EmptyDate_TargetsPendingRecord(t *testing.T) {
	// Without a date, cancellation targets the user's single pending
	// record regardless of which day it is for.

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)

	cancelled, err := ledger.Cancel(ctx, "25am042", "")
	require.NoError(t, err)
	require.NotNil(t, cancelled)
	assert.Equal(t, rec.ID, cancelled.ID)
}

func TestLedger_Cancel_ScopedToDate(t *testing.T) {
	// Two pending dates: cancelling one leaves the other untouched.

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	first, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	second, err := ledger.Submit(ctx, submission("25am042", "2026-03-11", 1))
	require.NoError(t, err)

	cancelled, err := ledger.Cancel(ctx, "25am042", "2026-03-10")
	require.NoError(t, err)
	require.NotNil(t, cancelled)
	assert.Equal(t, first.ID, cancelled.ID)

	stored, _ := mem.FindByID(ctx, second.ID)
	assert.Equal(t, leave.StatusPending, stored.Status)
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestLedger_Delete_RemovesTerminalRecord(t *testing.T) {
	// Delete bypasses the state machine entirely.

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionApprove)
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, rec.ID))

	stored, err := mem.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLedger_Delete_UnknownID_NoOp(t *testing.T) {
	ledger, _ := newTestLedger(t)
	assert.NoError(t, ledger.Delete(context.Background(), "no-such-record"))
}

func TestLedger_Delete_FreesTheDay(t *testing.T) {
	// Deleting an approved record unblocks the (user, date) slot.

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	rec, err := ledger.Submit(ctx, submission("25am042", "2026-03-10", 2))
	require.NoError(t, err)
	_, err = ledger.Decide(ctx, rec.ID, leave.DecisionApprove)
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, rec.ID))

	_, err = ledger.Submit(ctx, submission("25am042", "2026-03-10", 3))
	assert.NoError(t, err)
}
