/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's records and employees from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Attendance:
    CheckRequest, CheckResponse

  Admin:
    UpdateStatusRequest, DeleteStatusRequest, BatchStatusRequest,
    RecordStatusRequest, OutcomeDTO, BatchResultDTO, MonthlyAllEntry

  Employee:
    EmployeeDTO, CreateEmployeeRequest

  Holiday:
    HolidayDTO, HolidayRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  h.decode, which rejects unknown shapes with 400 before any engine call.
  Date strings are parsed after validation (generic.ParseDate).

SEE ALSO:
  - handlers.go: Uses these types
  - attendance/notifier.go: RecordView, shared with notification payloads
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

// CheckRequest is the body of check-in and check-out.
type CheckRequest struct {
	ID string `json:"id" validate:"required"`
}

// CheckResponse confirms a check-in or check-out.
type CheckResponse struct {
	Message string                `json:"message"`
	Name    string                `json:"name"`
	Status  string                `json:"status"`
	Time    string                `json:"time"`
	Record  attendance.RecordView `json:"record"`
}

// =============================================================================
// ADMIN
// =============================================================================

// UpdateStatusRequest sets the status of one employee-day.
type UpdateStatusRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Status     string `json:"status" validate:"required,max=64"`
}

// DeleteStatusRequest removes the record of one employee-day.
type DeleteStatusRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
}

// BatchStatusRequest applies (or removes) a status over a date range.
// Target is an employee ID or "all". EndDate defaults to StartDate.
type BatchStatusRequest struct {
	Target    string `json:"target" validate:"required"`
	Status    string `json:"status" validate:"omitempty,max=64"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// RecordStatusRequest edits a record addressed by its ID.
type RecordStatusRequest struct {
	Status string `json:"status" validate:"required,max=64"`
}

// OutcomeDTO reports the result of a single reconciliation.
type OutcomeDTO struct {
	Record             *attendance.RecordView `json:"record,omitempty"`
	Changed            bool                   `json:"changed"`
	Downgraded         bool                   `json:"downgraded"`
	RemainingLeave     decimal.Decimal        `json:"remainingLeave"`
	RemainingSickLeave int                    `json:"remainingSickLeave"`
	MonthlyTotal       int64                  `json:"monthlyTotal"`
}

// BatchResultDTO reports the result of a batch.
type BatchResultDTO struct {
	Target      string            `json:"target"`
	AppliedDays int               `json:"appliedDays"`
	Employees   int               `json:"employees"`
	Downgraded  int               `json:"downgraded"`
	Failures    map[string]string `json:"failures,omitempty"`
}

// MonthlyAllEntry is one employee's month in GET /monthly/all.
type MonthlyAllEntry struct {
	EmployeeID string                  `json:"employeeId"`
	Logs       []attendance.RecordView `json:"logs"`
}

// CloseoutDTO reports a manually triggered closeout job.
type CloseoutDTO struct {
	Job     string `json:"job"`
	Date    string `json:"date"`
	Records int    `json:"records"`
	Skipped bool   `json:"skipped,omitempty"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	HourlyRate  int64           `json:"hourlyRate"`
	AnnualLeave decimal.Decimal `json:"annualLeave"`
	SickLeave   int             `json:"sickLeave"`
	CreatedAt   string          `json:"createdAt,omitempty"`
}

// CreateEmployeeRequest registers an employee. Omitted balances take the
// defaults; an omitted ID is generated.
type CreateEmployeeRequest struct {
	ID          string           `json:"id" validate:"omitempty,max=64"`
	Name        string           `json:"name" validate:"required,max=120"`
	HourlyRate  int64            `json:"hourlyRate" validate:"gte=0"`
	AnnualLeave *decimal.Decimal `json:"annualLeave"`
	SickLeave   *int             `json:"sickLeave" validate:"omitempty,gte=0"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// HolidayRequest declares a company holiday.
type HolidayRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required,max=120"`
	Recurring bool   `json:"recurring"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(e generic.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:          string(e.ID),
		Name:        e.Name,
		HourlyRate:  e.HourlyRate,
		AnnualLeave: e.AnnualLeave,
		SickLeave:   e.SickLeave,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toOutcomeDTO(out *attendance.Outcome, loc *time.Location) OutcomeDTO {
	dto := OutcomeDTO{
		Changed:            out.Changed,
		Downgraded:         out.Downgraded,
		RemainingLeave:     out.Balance.Annual,
		RemainingSickLeave: out.Balance.Sick,
		MonthlyTotal:       out.MonthlyTotal,
	}
	if out.Record != nil {
		v := attendance.ViewOf(*out.Record, loc)
		dto.Record = &v
	}
	return dto
}

func toBatchResultDTO(res *attendance.BatchResult) BatchResultDTO {
	dto := BatchResultDTO{
		Target:      res.Target,
		AppliedDays: res.AppliedDays,
		Employees:   res.Employees,
		Downgraded:  res.Downgraded,
	}
	if len(res.Failures) > 0 {
		dto.Failures = make(map[string]string, len(res.Failures))
		for id, err := range res.Failures {
			dto.Failures[string(id)] = err.Error()
		}
	}
	return dto
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		Date:      h.Date.String(),
		Name:      h.Name,
		Recurring: h.Recurring,
	}
}
