// Package store provides RecordStore implementations.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campus/attendance-engine/leave"
	"github.com/google/uuid"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps records in insertion order behind a single mutex, so the
// uniqueness check in Insert and the compare-and-swap in UpdateStatus are
// atomic by construction.
type Memory struct {
	mu       sync.RWMutex
	records  []leave.LeaveRecord // insertion order, oldest first
	profiles map[leave.UserID]leave.UserProfile
}

func NewMemory() *Memory {
	return &Memory{profiles: make(map[leave.UserID]leave.UserProfile)}
}

// FindActive returns the Pending or Approved record for (userID, date).
func (m *Memory) FindActive(_ context.Context, userID leave.UserID, date string) (*leave.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findActiveLocked(userID, date), nil
}

func (m *Memory) findActiveLocked(userID leave.UserID, date string) *leave.LeaveRecord {
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if rec.UserID == userID && rec.Date == date && rec.Status.Active() {
			return &rec
		}
	}
	return nil
}

// FindPending returns the user's most recently inserted Pending record.
func (m *Memory) FindPending(_ context.Context, userID leave.UserID) (*leave.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if rec.UserID == userID && rec.Status == leave.StatusPending {
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindByID(_ context.Context, id leave.RecordID) (*leave.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// FindAllByUser returns the user's records most recently inserted first.
func (m *Memory) FindAllByUser(_ context.Context, userID leave.UserID) ([]leave.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.LeaveRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].UserID == userID {
			result = append(result, m.records[i])
		}
	}
	return result, nil
}

func (m *Memory) FindApprovedByUser(_ context.Context, userID leave.UserID) ([]leave.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.LeaveRecord
	for _, rec := range m.records {
		if rec.UserID == userID && rec.Status == leave.StatusApproved {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *Memory) FindApprovedInWindow(_ context.Context, start, end string) ([]leave.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.LeaveRecord
	for _, rec := range m.records {
		if rec.Status != leave.StatusApproved {
			continue
		}
		if rec.Date < start {
			continue
		}
		if end != "" && rec.Date > end {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

func (m *Memory) FindAll(_ context.Context) ([]leave.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]leave.LeaveRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		result = append(result, m.records[i])
	}
	return result, nil
}

// Insert assigns an id and appends the record. The active-leave check and
// the append happen under one lock acquisition, which is what makes two
// concurrent submissions for the same (user, date) safe.
func (m *Memory) Insert(_ context.Context, rec leave.LeaveRecord) (leave.RecordID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.Status.Active() {
		if existing := m.findActiveLocked(rec.UserID, rec.Date); existing != nil {
			return "", fmt.Errorf("record %s holds %s/%s: %w",
				existing.ID, rec.UserID, rec.Date, leave.ErrDuplicateActiveLeave)
		}
	}

	if rec.ID == "" {
		rec.ID = leave.RecordID(uuid.NewString())
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, rec)
	return rec.ID, nil
}

// UpdateStatus applies from -> to only if the current status still equals
// from (compare-and-swap).
func (m *Memory) UpdateStatus(_ context.Context, id leave.RecordID, from, to leave.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		if m.records[i].Status != from {
			return fmt.Errorf("record %s is %s, not %s: %w",
				id, m.records[i].Status, from, leave.ErrInvalidTransition)
		}
		m.records[i].Status = to
		return nil
	}
	return fmt.Errorf("record %s: %w", id, leave.ErrRecordNotFound)
}

// Delete removes the record; unknown ids are a no-op.
func (m *Memory) Delete(_ context.Context, id leave.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) UpsertDisplayName(_ context.Context, userID leave.UserID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[userID] = leave.UserProfile{
		UserID:      userID,
		DisplayName: name,
		UpdatedAt:   time.Now().UTC(),
	}
	return nil
}

func (m *Memory) FindProfile(_ context.Context, userID leave.UserID) (*leave.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.profiles[userID]; ok {
		return &p, nil
	}
	return nil, nil
}
