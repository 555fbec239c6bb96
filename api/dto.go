/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication. These decouple the domain model
  from the wire contract: the engine keeps decimal percentages and typed
  ids internally, the API exposes plain floats and strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Real validation lives in the leave package; handlers only check that
  the body decodes.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/campus/attendance-engine/leave"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SubmitLeaveRequest is the body of POST /api/leaves.
type SubmitLeaveRequest struct {
	UserID         string `json:"user_id"`
	StudentName    string `json:"student_name"`
	Date           string `json:"date"` // YYYY-MM-DD
	AbsentSessions int    `json:"absent_sessions"`
	Reason         string `json:"reason"`
}

// CancelLeaveRequest is the body of POST /api/leaves/cancel.
// Date is optional; empty targets the user's single pending record.
type CancelLeaveRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"date,omitempty"`
}

// LeaveRecordDTO represents one leave record in API responses.
type LeaveRecordDTO struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	StudentName    string `json:"student_name"`
	Date           string `json:"date"`
	AbsentSessions int    `json:"absent_sessions"`
	Reason         string `json:"reason,omitempty"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// AttendanceDTO is the derived attendance summary for one student.
type AttendanceDTO struct {
	UserID                string  `json:"user_id"`
	Percentage            float64 `json:"percentage"`
	TotalPossibleSessions int     `json:"total_possible_sessions"`
	TotalAbsentSessions   int     `json:"total_absent_sessions"`
}

// OverviewDTO is the student dashboard payload.
type OverviewDTO struct {
	UserID        string           `json:"user_id"`
	DisplayName   string           `json:"display_name,omitempty"`
	Attendance    AttendanceDTO    `json:"attendance"`
	LatestStatus  string           `json:"latest_status"`
	AbsentToday   int              `json:"absent_today"`
	LastLeaveDate string           `json:"last_leave_date,omitempty"`
	History       []LeaveRecordDTO `json:"history"`
}

// StatsDTO is the chart payload of GET /api/admin/stats: parallel label
// and data arrays, ascending by date.
type StatsDTO struct {
	Window string   `json:"window"`
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// AdminDashboardDTO is the admin landing payload.
type AdminDashboardDTO struct {
	TodayAbsent int              `json:"today_absent"`
	Leaves      []LeaveRecordDTO `json:"leaves"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRecordDTO(rec leave.LeaveRecord) LeaveRecordDTO {
	dto := LeaveRecordDTO{
		ID:             string(rec.ID),
		UserID:         string(rec.UserID),
		StudentName:    rec.StudentName,
		Date:           rec.Date,
		AbsentSessions: rec.AbsentSessions,
		Reason:         rec.Reason,
		Status:         string(rec.Status),
	}
	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toRecordDTOs(recs []leave.LeaveRecord) []LeaveRecordDTO {
	dtos := make([]LeaveRecordDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toRecordDTO(rec)
	}
	return dtos
}

func toAttendanceDTO(userID leave.UserID, s leave.AttendanceSummary) AttendanceDTO {
	pct, _ := s.Percentage.Float64()
	return AttendanceDTO{
		UserID:                string(userID),
		Percentage:            pct,
		TotalPossibleSessions: s.TotalPossibleSessions,
		TotalAbsentSessions:   s.TotalAbsentSessions,
	}
}
