/*
Package sqlite provides a SQLite-backed implementation of leave.RecordStore.

PURPOSE:
  Durable storage for leave records and user profiles. The same patterns
  apply to PostgreSQL; only minor SQL dialect differences.

INVARIANT ENFORCEMENT:
  The active-leave uniqueness rule is enforced twice:
  - The ledger pre-checks FindActive for a precise error message
  - idx_unique_active_leave, a partial unique index on (user_id, date)
    restricted to Pending/Approved rows, is the last line of defense
    against two concurrent submissions that both pass the pre-check

  Status transitions use a conditional UPDATE (compare-and-swap): the row
  only changes if its status still equals the expected source state, so
  concurrent approve/reject calls cannot produce two terminal states.

ORDERING:
  Insertion sequence is the table rowid; "most recent first" queries
  order by rowid DESC, not by the date column.

WAL MODE:
  Opened with WAL (Write-Ahead Logging) so readers don't block and crash
  recovery is cheap.

MIGRATION:
  Schema is created on New(). The engine only ever sees the final field
  set; there is no runtime column inspection.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := leave.NewLedger(store)

SEE ALSO:
  - leave/store.go: Interface and atomicity contract
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/campus/attendance-engine/leave"
)

// Store implements leave.RecordStore on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		date TEXT NOT NULL,
		absent_sessions INTEGER NOT NULL,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'Pending',
		created_at TEXT NOT NULL
	);

	-- CRITICAL: At most one Pending/Approved record per (user, date).
	-- Rejected and Cancelled rows fall outside the index, so a student
	-- can resubmit for a date that was previously rejected or cancelled.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_active_leave
		ON leave_records(user_id, date)
		WHERE status IN ('Pending', 'Approved');

	CREATE INDEX IF NOT EXISTS idx_records_user
		ON leave_records(user_id);

	-- Window aggregation hot path: approved records by date
	CREATE INDEX IF NOT EXISTS idx_records_status_date
		ON leave_records(status, date);

	CREATE TABLE IF NOT EXISTS user_profiles (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const recordColumns = "id, user_id, student_name, date, absent_sessions, reason, status, created_at"

// =============================================================================
// QUERIES (leave.RecordStore interface)
// =============================================================================

// FindActive returns the Pending or Approved record for (userID, date).
func (s *Store) FindActive(ctx context.Context, userID leave.UserID, date string) (*leave.LeaveRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM leave_records
		WHERE user_id = ? AND date = ? AND status IN ('Pending', 'Approved')
		ORDER BY rowid DESC
		LIMIT 1
	`
	return s.queryRecord(ctx, query, userID, date)
}

// FindPending returns the user's most recently inserted Pending record.
func (s *Store) FindPending(ctx context.Context, userID leave.UserID) (*leave.LeaveRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM leave_records
		WHERE user_id = ? AND status = 'Pending'
		ORDER BY rowid DESC
		LIMIT 1
	`
	return s.queryRecord(ctx, query, userID)
}

func (s *Store) FindByID(ctx context.Context, id leave.RecordID) (*leave.LeaveRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM leave_records WHERE id = ?`
	return s.queryRecord(ctx, query, id)
}

// FindAllByUser returns the user's records most recently inserted first.
func (s *Store) FindAllByUser(ctx context.Context, userID leave.UserID) ([]leave.LeaveRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM leave_records
		WHERE user_id = ?
		ORDER BY rowid DESC
	`
	return s.queryRecords(ctx, query, userID)
}

func (s *Store) FindApprovedByUser(ctx context.Context, userID leave.UserID) ([]leave.LeaveRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM leave_records
		WHERE user_id = ? AND status = 'Approved'
		ORDER BY date ASC
	`
	return s.queryRecords(ctx, query, userID)
}

// FindApprovedInWindow returns approved records with start <= date, and
// date <= end when end is non-empty.
func (s *Store) FindApprovedInWindow(ctx context.Context, start, end string) ([]leave.LeaveRecord, error) {
	if end != "" {
		query := `
			SELECT ` + recordColumns + `
			FROM leave_records
			WHERE status = 'Approved' AND date >= ? AND date <= ?
			ORDER BY date ASC
		`
		return s.queryRecords(ctx, query, start, end)
	}
	query := `
		SELECT ` + recordColumns + `
		FROM leave_records
		WHERE status = 'Approved' AND date >= ?
		ORDER BY date ASC
	`
	return s.queryRecords(ctx, query, start)
}

// FindAll returns every record, most recently inserted first.
func (s *Store) FindAll(ctx context.Context) ([]leave.LeaveRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM leave_records ORDER BY rowid DESC`
	return s.queryRecords(ctx, query)
}

// =============================================================================
// WRITES
// =============================================================================

// Insert persists a new record and returns the assigned id. The partial
// unique index turns a duplicate active (user, date) into
// leave.ErrDuplicateActiveLeave even when two submissions race.
func (s *Store) Insert(ctx context.Context, rec leave.LeaveRecord) (leave.RecordID, error) {
	id := rec.ID
	if id == "" {
		id = leave.RecordID(uuid.NewString())
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO leave_records
		(id, user_id, student_name, date, absent_sessions, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		id,
		rec.UserID,
		rec.StudentName,
		rec.Date,
		rec.AbsentSessions,
		rec.Reason,
		rec.Status,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", fmt.Errorf("%s/%s: %w", rec.UserID, rec.Date, leave.ErrDuplicateActiveLeave)
		}
		return "", storeErr("failed to insert record", err)
	}
	return id, nil
}

// UpdateStatus applies from -> to with compare-and-swap semantics: the
// UPDATE only matches while the row still holds the expected source
// status, so a lost race surfaces as leave.ErrInvalidTransition.
func (s *Store) UpdateStatus(ctx context.Context, id leave.RecordID, from, to leave.Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE leave_records SET status = ? WHERE id = ? AND status = ?",
		to, id, from,
	)
	if err != nil {
		return storeErr("failed to update status", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("failed to read update result", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing row from a CAS conflict.
	existing, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("record %s: %w", id, leave.ErrRecordNotFound)
	}
	return fmt.Errorf("record %s is %s, not %s: %w",
		id, existing.Status, from, leave.ErrInvalidTransition)
}

// Delete removes the record regardless of status; unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id leave.RecordID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM leave_records WHERE id = ?", id)
	if err != nil {
		return storeErr("failed to delete record", err)
	}
	return nil
}

// =============================================================================
// USER PROFILES
// =============================================================================

// UpsertDisplayName creates or refreshes a user's profile name.
func (s *Store) UpsertDisplayName(ctx context.Context, userID leave.UserID, name string) error {
	query := `
		INSERT INTO user_profiles (user_id, display_name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, userID, name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return storeErr("failed to upsert profile", err)
	}
	return nil
}

func (s *Store) FindProfile(ctx context.Context, userID leave.UserID) (*leave.UserProfile, error) {
	var (
		p         leave.UserProfile
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, display_name, updated_at FROM user_profiles WHERE user_id = ?",
		userID,
	).Scan(&p.UserID, &p.DisplayName, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("failed to load profile", err)
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func (s *Store) queryRecord(ctx context.Context, query string, args ...any) (*leave.LeaveRecord, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]leave.LeaveRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to query records", err)
	}
	defer rows.Close()

	var records []leave.LeaveRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to read records", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*leave.LeaveRecord, error) {
	var (
		rec       leave.LeaveRecord
		reason    sql.NullString
		createdAt string
	)
	err := sc.Scan(
		&rec.ID, &rec.UserID, &rec.StudentName, &rec.Date,
		&rec.AbsentSessions, &reason, &rec.Status, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, storeErr("failed to scan record", err)
	}
	rec.Reason = reason.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

// storeErr tags a driver-level failure with leave.ErrStoreUnavailable so
// callers can tell an unreachable store apart from domain conflicts.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, err, leave.ErrStoreUnavailable)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
