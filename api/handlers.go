/*
handlers.go - HTTP API handlers for the leave/attendance engine

PURPOSE:
  Exposes the engine via REST. Handlers parse the request, delegate to
  the ledger/calculator/aggregator, and serialize the result; all policy
  lives in the leave package.

ENDPOINTS:
  Leaves:
    POST   /api/leaves               Submit a leave request
    POST   /api/leaves/cancel        Cancel own pending request
    GET    /api/leaves               List all records (admin)
    POST   /api/leaves/{id}/approve  Approve a pending record
    POST   /api/leaves/{id}/reject   Reject a pending record
    DELETE /api/leaves/{id}          Administrative delete

  Students:
    GET /api/students/{id}/overview    Dashboard view
    GET /api/students/{id}/attendance  Attendance summary
    GET /api/students/{id}/leaves      Submission history

  Admin:
    GET /api/admin/dashboard    Today's absentee count + all records
    GET /api/admin/stats        Absence series (?window=today|week|month)
    GET /api/admin/report.csv   Tabular export of all records

ERROR HANDLING:
  - 400: validation errors, undecodable bodies
  - 404: unknown record id
  - 409: duplicate active leave, invalid transition
  - 503: record store unavailable
  - 500: everything else

SECURITY NOTE:
  Role gating (who may approve/delete versus submit/cancel) belongs to
  the deployment's access layer; these handlers take explicit ids and
  trust the caller.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campus/attendance-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger     *leave.Ledger
	Calculator *leave.Calculator
	Aggregator *leave.Aggregator
	Store      leave.RecordStore

	// Now supplies "today" for student views. Overridable in tests.
	Now func() time.Time
}

// NewHandler wires the engine components over a single store.
func NewHandler(store leave.RecordStore) *Handler {
	return &Handler{
		Ledger:     leave.NewLedger(store),
		Calculator: leave.NewCalculator(store),
		Aggregator: leave.NewAggregator(store),
		Store:      store,
		Now:        time.Now,
	}
}

func (h *Handler) today() string {
	return h.Now().Format(leave.DateFormat)
}

// =============================================================================
// LEAVE LIFECYCLE HANDLERS
// =============================================================================

// SubmitLeave creates a new pending leave record.
// POST /api/leaves
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Ledger.Submit(r.Context(), leave.Submission{
		UserID:         leave.UserID(req.UserID),
		StudentName:    req.StudentName,
		Date:           req.Date,
		AbsentSessions: req.AbsentSessions,
		Reason:         req.Reason,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecordDTO(*rec))
}

// CancelLeave cancels the caller's pending record.
// POST /api/leaves/cancel
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	var req CancelLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	rec, err := h.Ledger.Cancel(r.Context(), leave.UserID(req.UserID), req.Date)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if rec == nil {
		// Nothing pending: a no-op, not an error.
		writeJSON(w, http.StatusOK, map[string]any{"cancelled": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true, "record": toRecordDTO(*rec)})
}

// ListLeaves returns every record, most recent first.
// GET /api/leaves
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.FindAll(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// ApproveLeave moves a pending record to Approved.
// POST /api/leaves/{id}/approve
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.DecisionApprove)
}

// RejectLeave moves a pending record to Rejected.
// POST /api/leaves/{id}/reject
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.DecisionReject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decision leave.Decision) {
	id := leave.RecordID(chi.URLParam(r, "id"))

	rec, err := h.Ledger.Decide(r.Context(), id, decision)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(*rec))
}

// DeleteLeave removes a record unconditionally.
// DELETE /api/leaves/{id}
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	id := leave.RecordID(chi.URLParam(r, "id"))

	if err := h.Ledger.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// GetOverview returns the student dashboard view.
// GET /api/students/{id}/overview
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	userID := leave.UserID(chi.URLParam(r, "id"))

	ov, err := h.Calculator.Overview(r.Context(), userID, h.today())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OverviewDTO{
		UserID:        string(ov.UserID),
		DisplayName:   ov.DisplayName,
		Attendance:    toAttendanceDTO(userID, ov.Attendance),
		LatestStatus:  ov.LatestStatus,
		AbsentToday:   ov.AbsentToday,
		LastLeaveDate: ov.LastLeaveDate,
		History:       toRecordDTOs(ov.History),
	})
}

// GetAttendance returns the attendance summary for a student.
// GET /api/students/{id}/attendance
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	userID := leave.UserID(chi.URLParam(r, "id"))

	summary, err := h.Calculator.ComputeAttendance(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(userID, summary))
}

// ListStudentLeaves returns a student's history, most recent first.
// GET /api/students/{id}/leaves
func (h *Handler) ListStudentLeaves(w http.ResponseWriter, r *http.Request) {
	userID := leave.UserID(chi.URLParam(r, "id"))

	records, err := h.Store.FindAllByUser(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTOs(records))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// GetAdminDashboard returns today's absentee count plus all records.
// GET /api/admin/dashboard
func (h *Handler) GetAdminDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.Aggregator.TodayAbsentCount(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	records, err := h.Store.FindAll(ctx)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminDashboardDTO{
		TodayAbsent: count,
		Leaves:      toRecordDTOs(records),
	})
}

// GetStats returns the approved-absence series for a window.
// GET /api/admin/stats?window=today|week|month
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	window := leave.ParseWindow(r.URL.Query().Get("window"))

	series, err := h.Aggregator.Aggregate(r.Context(), window)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dto := StatsDTO{
		Window: string(window),
		Labels: make([]string, len(series)),
		Data:   make([]int, len(series)),
	}
	for i, point := range series {
		dto.Labels[i] = point.Date
		dto.Data[i] = point.TotalAbsent
	}
	writeJSON(w, http.StatusOK, dto)
}

// ExportReport streams all records as CSV.
// GET /api/admin/report.csv
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.FindAll(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance_report.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"Roll", "Name", "Date", "Absent", "Status"})
	for _, rec := range records {
		cw.Write([]string{
			string(rec.UserID),
			rec.StudentName,
			rec.Date,
			strconv.Itoa(rec.AbsentSessions),
			string(rec.Status),
		})
	}
	cw.Flush()
}

// Health is a liveness check.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeDomainError maps leave package errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leave.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, leave.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "Record not found", err)
	case leave.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, leave.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
