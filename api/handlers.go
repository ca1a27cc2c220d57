/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON decoding and validation, and delegates to
  attendance.Engine for every state change.

ENDPOINTS:
  Attendance:
    POST   /api/attendance/check-in                     {"id"}
    POST   /api/attendance/check-out                    {"id"}

  Admin attendance:
    POST   /api/admin/attendance/update                 Apply a status to one day
    DELETE /api/admin/attendance/delete                 Remove one day's record
    POST   /api/admin/attendance/batch                  Apply a status over a range
    DELETE /api/admin/attendance/batch                  Remove records over a range
    PUT    /api/admin/attendance/records/{id}           Edit a record by ID
    GET    /api/admin/attendance/monthly/{employeeId}   Month of one employee
    GET    /api/admin/attendance/monthly/all            Month of everyone
    GET    /api/admin/attendance/salary/all-summary     Month-to-date totals
    GET    /api/admin/attendance/export                 Month as .xlsx

  Closeout:
    POST   /api/admin/closeout/missing-checkout         Run the job now
    POST   /api/admin/closeout/absenteeism              Run the job now

  Employees:
    GET    /api/employees, POST /api/employees, GET /api/employees/{id}

  Holidays:
    GET    /api/holidays?year=   POST /api/holidays
    POST   /api/holidays/defaults   DELETE /api/holidays/{id}

  Scenarios (demo only):
    GET    /api/scenarios   POST /api/scenarios/load   POST /api/scenarios/reset

  Monthly endpoints take ?year=&month=, both defaulting to the current
  month in the business timezone.

ERROR HANDLING:
  Engine errors are classified with the generic helpers:
  - 400: generic.IsClientError, malformed JSON, failed validation
  - 404: generic.IsNotFound
  - 409: generic.IsConflict (duplicate check-in, already checked out)
  - 500: everything else (logged)

SECURITY NOTE:
  No authentication. Admin routes are expected behind a gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: CloseoutScheduler used by the closeout endpoints
  - scenarios.go: Demo scenario loaders
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/log"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/payroll"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *attendance.Engine
	Holidays  generic.HolidayStore
	Calendar  generic.HolidayCalendar // merged view served by GET /api/holidays
	Hub       *notify.Hub
	Scheduler *CloseoutScheduler
	Health    Pinger
	Resetter  Resetter // enables /api/scenarios

	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler creates a handler. Calendar defaults to holidays; hub may be
// nil, in which case /ws/attendance is not routed.
func NewHandler(engine *attendance.Engine, holidays generic.HolidayStore, hub *notify.Hub, scheduler *CloseoutScheduler) *Handler {
	if scheduler == nil {
		scheduler = NewCloseoutScheduler(engine)
	}
	return &Handler{
		Engine:    engine,
		Holidays:  holidays,
		Calendar:  holidays,
		Hub:       hub,
		Scheduler: scheduler,
		validate:  validator.New(),
		logger:    log.WithComponent("api"),
	}
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CheckIn records the caller's arrival.
// POST /api/attendance/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.Engine.CheckIn(r.Context(), generic.EmployeeID(req.ID))
	if err != nil {
		h.writeEngineError(w, "Check-in failed", err)
		return
	}
	writeJSON(w, http.StatusOK, h.checkResponse(r.Context(), "Check-in recorded", rec, rec.CheckIn))
}

// CheckOut records the caller's departure.
// POST /api/attendance/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.Engine.CheckOut(r.Context(), generic.EmployeeID(req.ID))
	if err != nil {
		h.writeEngineError(w, "Check-out failed", err)
		return
	}
	writeJSON(w, http.StatusOK, h.checkResponse(r.Context(), "Check-out recorded", rec, rec.CheckOut))
}

func (h *Handler) checkResponse(ctx context.Context, msg string, rec *generic.Record, at *time.Time) CheckResponse {
	loc := h.Engine.Location()
	resp := CheckResponse{
		Message: msg,
		Status:  string(rec.Status),
		Record:  attendance.ViewOf(*rec, loc),
	}
	if at != nil {
		resp.Time = at.In(loc).Format("15:04:05")
	}
	if emp, err := h.Engine.Employee(ctx, rec.EmployeeID); err == nil {
		resp.Name = emp.Name
	}
	return resp
}

// =============================================================================
// ADMIN ATTENDANCE HANDLERS
// =============================================================================

// UpdateStatus applies a status to one employee-day.
// POST /api/admin/attendance/update
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		h.writeEngineError(w, "Invalid date", err)
		return
	}

	out, err := h.Engine.ApplyStatus(r.Context(), generic.EmployeeID(req.EmployeeID), date, generic.Status(req.Status))
	if err != nil {
		h.writeEngineError(w, "Failed to update attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeDTO(out, h.Engine.Location()))
}

// DeleteStatus removes one employee-day, crediting back any leave.
// DELETE /api/admin/attendance/delete
func (h *Handler) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	var req DeleteStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		h.writeEngineError(w, "Invalid date", err)
		return
	}

	out, err := h.Engine.CancelStatus(r.Context(), generic.EmployeeID(req.EmployeeID), date)
	if err != nil {
		h.writeEngineError(w, "Failed to delete attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeDTO(out, h.Engine.Location()))
}

// ApplyBatch applies a status to every working day of a range.
// POST /api/admin/attendance/batch
//
// Per-employee failures do not fail the request; they are listed in
// BatchResultDTO.Failures.
func (h *Handler) ApplyBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.batchRequest(w, r, true)
	if !ok {
		return
	}
	res, err := h.Engine.ApplyStatusBatch(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, "Batch update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(res))
}

// DeleteBatch removes the records of every working day of a range.
// DELETE /api/admin/attendance/batch
func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.batchRequest(w, r, false)
	if !ok {
		return
	}
	res, err := h.Engine.DeleteBatch(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, "Batch delete failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(res))
}

func (h *Handler) batchRequest(w http.ResponseWriter, r *http.Request, needStatus bool) (attendance.BatchRequest, bool) {
	var body BatchStatusRequest
	if !h.decode(w, r, &body) {
		return attendance.BatchRequest{}, false
	}
	if needStatus && body.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required", nil)
		return attendance.BatchRequest{}, false
	}
	start, err := generic.ParseDate(body.StartDate)
	if err != nil {
		h.writeEngineError(w, "Invalid startDate", err)
		return attendance.BatchRequest{}, false
	}
	var end generic.Date
	if body.EndDate != "" {
		if end, err = generic.ParseDate(body.EndDate); err != nil {
			h.writeEngineError(w, "Invalid endDate", err)
			return attendance.BatchRequest{}, false
		}
	}
	return attendance.BatchRequest{
		Target: body.Target,
		Status: generic.Status(body.Status),
		Start:  start,
		End:    end,
	}, true
}

// UpdateRecord edits a record addressed by its ID.
// PUT /api/admin/attendance/records/{id}
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RecordStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := h.Engine.UpdateRecordStatus(r.Context(), generic.RecordID(id), generic.Status(req.Status))
	if err != nil {
		h.writeEngineError(w, "Failed to update record", err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeDTO(out, h.Engine.Location()))
}

// MonthlyRecords returns one employee's records for a month.
// GET /api/admin/attendance/monthly/{employeeId}?year=&month=
func (h *Handler) MonthlyRecords(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}
	id := generic.EmployeeID(chi.URLParam(r, "employeeId"))

	recs, err := h.Engine.MonthlyRecords(r.Context(), id, year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to get monthly records", err)
		return
	}
	writeJSON(w, http.StatusOK, attendance.ViewsOf(recs, h.Engine.Location()))
}

// MonthlyRecordsAll returns every employee's records for a month, one entry
// per employee that has records, ordered by employee ID.
// GET /api/admin/attendance/monthly/all?year=&month=
func (h *Handler) MonthlyRecordsAll(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	grouped, err := h.Engine.MonthlyRecordsAll(r.Context(), year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to get monthly records", err)
		return
	}

	loc := h.Engine.Location()
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	entries := make([]MonthlyAllEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, MonthlyAllEntry{
			EmployeeID: id,
			Logs:       attendance.ViewsOf(grouped[generic.EmployeeID(id)], loc),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// SalarySummary returns employee -> month-to-date wage.
// GET /api/admin/attendance/salary/all-summary?year=&month=
func (h *Handler) SalarySummary(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	summaries, err := h.Engine.SalarySummary(r.Context(), year, month)
	if err != nil {
		h.writeEngineError(w, "Failed to summarize salaries", err)
		return
	}
	writeJSON(w, http.StatusOK, payroll.Totals(summaries))
}

// ExportMonth streams the month as a spreadsheet.
// GET /api/admin/attendance/export?year=&month=
func (h *Handler) ExportMonth(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.Engine.ExportMonth(r.Context(), &buf, year, month); err != nil {
		h.writeEngineError(w, "Export failed", err)
		return
	}

	filename := fmt.Sprintf("attendance-%04d-%02d.xlsx", year, int(month))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// =============================================================================
// CLOSEOUT HANDLERS
// =============================================================================

// RunMissingCheckout runs the missing-checkout job immediately.
// POST /api/admin/closeout/missing-checkout
func (h *Handler) RunMissingCheckout(w http.ResponseWriter, r *http.Request) {
	n, err := h.Scheduler.RunMissingCheckout(r.Context())
	if err != nil {
		h.writeEngineError(w, "Missing-checkout closeout failed", err)
		return
	}
	writeJSON(w, http.StatusOK, CloseoutDTO{
		Job:     JobMissingCheckout,
		Date:    h.Engine.Today().AddDays(-1).String(),
		Records: n,
	})
}

// RunAbsenteeism runs the absenteeism job immediately.
// POST /api/admin/closeout/absenteeism
func (h *Handler) RunAbsenteeism(w http.ResponseWriter, r *http.Request) {
	n, skipped, err := h.Scheduler.RunAbsenteeism(r.Context())
	if err != nil {
		h.writeEngineError(w, "Absenteeism closeout failed", err)
		return
	}
	writeJSON(w, http.StatusOK, CloseoutDTO{
		Job:     JobAbsenteeism,
		Date:    h.Engine.Today().String(),
		Records: n,
		Skipped: skipped,
	})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Engine.Employees(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee registers an employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp, err := h.Engine.RegisterEmployee(r.Context(), attendance.NewEmployee{
		ID:          generic.EmployeeID(req.ID),
		Name:        req.Name,
		HourlyRate:  req.HourlyRate,
		AnnualLeave: req.AnnualLeave,
		SickLeave:   req.SickLeave,
	})
	if err != nil {
		h.writeEngineError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*emp))
}

// GetEmployee returns one employee with current balances.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Engine.Employee(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeEngineError(w, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the holidays of a year (default: current year).
// GET /api/holidays?year=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.Engine.Today().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	holidays := h.Calendar.Holidays(year)
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday declares a company holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		h.writeEngineError(w, "Invalid date", err)
		return
	}

	holiday := generic.Holiday{
		ID:        uuid.NewString(),
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if err := h.Holidays.SaveHoliday(r.Context(), holiday); err != nil {
		h.writeEngineError(w, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// AddDefaultHolidays stores the built-in public holiday table. Entries keep
// stable IDs, so repeating the call rewrites them; a same-day holiday with
// the same name under another ID is skipped.
// POST /api/holidays/defaults
func (h *Handler) AddDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	added := 0
	for _, hol := range factory.DefaultHolidays() {
		err := h.Holidays.SaveHoliday(r.Context(), hol)
		switch {
		case err == nil:
			added++
		case errors.Is(err, generic.ErrDuplicateRecord):
		default:
			h.writeEngineError(w, "Failed to add holidays", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

// DeleteHoliday deletes a stored holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Holidays.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeEngineError(w, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthCheck reports liveness and, when configured, storage health.
// GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it. It writes a 400 and
// returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "INVALID_INPUT",
				Details: fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// yearMonth reads ?year=&month=, defaulting each to the current month.
func (h *Handler) yearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	today := h.Engine.Today()
	year, month := today.Year(), today.Month()

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return 0, 0, false
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return 0, 0, false
		}
		month = time.Month(m)
	}
	return year, month, true
}

// writeEngineError maps an engine or store error to its HTTP status.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case generic.IsNotFound(err):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case generic.IsConflict(err):
		status, code = http.StatusConflict, "CONFLICT"
	case generic.IsClientError(err):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	default:
		h.logger.Error().Err(err).Msg(message)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
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
