/*
store.go - Persistence interface for leave records and user profiles

PURPOSE:
  Defines the contract between the engine and the database. The engine is
  storage-agnostic: the ledger and the read-side calculators only ever see
  this interface.

ATOMICITY CONTRACT:
  Insert MUST enforce the active-leave uniqueness invariant atomically
  with the write (unique constraint, conditional insert, or lock). The
  ledger performs its own read-then-check for a friendly error, but two
  concurrent submissions can both pass that check; Insert is the last
  line of defense and must return ErrDuplicateActiveLeave.

  UpdateStatus MUST be compare-and-swap: the transition applies only if
  the current status still equals `from`. A lost race returns
  ErrInvalidTransition, never a silent overwrite.

ORDERING:
  FindAllByUser and FindAll return records most-recently-inserted first
  (insertion sequence, not the Date field).

IMPLEMENTATIONS:
  - store/sqlite: production store with a partial unique index and
    conditional UPDATE
  - leave/store: in-memory store for tests and dev

SEE ALSO:
  - ledger.go: The only writer through this interface
  - attendance.go, stats.go: Read-only consumers
*/
package leave

import "context"

// RecordStore is the durable keyed storage for leave records and user
// profiles. All methods honor ctx cancellation; store-level failures are
// reported wrapped in ErrStoreUnavailable by implementations.
type RecordStore interface {
	// FindActive returns the record for (userID, date) whose status is
	// Pending or Approved, or nil if none exists.
	FindActive(ctx context.Context, userID UserID, date string) (*LeaveRecord, error)

	// FindPending returns the user's Pending record, or nil.
	// Most recent first when several dates are pending.
	FindPending(ctx context.Context, userID UserID) (*LeaveRecord, error)

	// FindByID returns the record with the given id, or nil.
	FindByID(ctx context.Context, id RecordID) (*LeaveRecord, error)

	// FindAllByUser returns all of a user's records, most recent first.
	FindAllByUser(ctx context.Context, userID UserID) ([]LeaveRecord, error)

	// FindApprovedByUser returns the user's Approved records.
	FindApprovedByUser(ctx context.Context, userID UserID) ([]LeaveRecord, error)

	// FindApprovedInWindow returns Approved records with start <= Date,
	// and Date <= end when end is non-empty.
	FindApprovedInWindow(ctx context.Context, start, end string) ([]LeaveRecord, error)

	// FindAll returns every record, most recent first.
	FindAll(ctx context.Context) ([]LeaveRecord, error)

	// Insert persists a new record and returns the assigned id.
	// Returns ErrDuplicateActiveLeave if an active record already holds
	// (UserID, Date); the check is atomic with the write.
	Insert(ctx context.Context, rec LeaveRecord) (RecordID, error)

	// UpdateStatus applies from -> to on the record with the given id.
	// Compare-and-swap: returns ErrInvalidTransition if the current
	// status is no longer `from`, ErrRecordNotFound if the id is unknown.
	UpdateStatus(ctx context.Context, id RecordID, from, to Status) error

	// Delete removes the record unconditionally. Deleting an unknown id
	// is a no-op.
	Delete(ctx context.Context, id RecordID) error

	// UpsertDisplayName creates or refreshes the user's profile name.
	UpsertDisplayName(ctx context.Context, userID UserID, name string) error

	// FindProfile returns the user's profile, or nil.
	FindProfile(ctx context.Context, userID UserID) (*UserProfile, error)
}
