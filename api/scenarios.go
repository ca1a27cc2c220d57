/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos of the admin dashboard. Every scenario goes through
	attendance.Engine, so balances, wages and notifications are exactly
	what real traffic would produce.

AVAILABLE SCENARIOS:

	new-team:       Three employees with default balances, no records
	leave-month:    new-team plus a month of leave, including downgrades
	batch-vacation: new-team plus a company-wide paid vacation week

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Register employees
 3. Apply statuses to working days of the current month

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "leave-month"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and error mapping
  - attendance/batch.go: ApplyStatusBatch used by batch-vacation
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// Resetter clears all stored data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-team",
		Name:        "New Team",
		Description: "Three employees with default leave balances",
	},
	{
		ID:          "leave-month",
		Name:        "Leave Month",
		Description: "Annual, half-day and sick leave this month, with insufficient-balance downgrades",
	},
	{
		ID:          "batch-vacation",
		Name:        "Batch Vacation",
		Description: "Company-wide paid vacation over the second week of the month",
	},
}

var demoTeam = []attendance.NewEmployee{
	{ID: "emp-kim", Name: "Kim Minji", HourlyRate: 12000},
	{ID: "emp-lee", Name: "Lee Junho", HourlyRate: 10030},
	{ID: "emp-park", Name: "Park Seoyeon", HourlyRate: 15000, AnnualLeave: decimalPtr("0.5"), SickLeave: intPtr(0)},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	if h.Resetter == nil {
		writeError(w, http.StatusNotImplemented, "Scenarios are not available for this store", nil)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "new-team":
		load = h.loadNewTeam
	case "leave-month":
		load = h.loadLeaveMonth
	case "batch-vacation":
		load = h.loadBatchVacation
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if h.Resetter == nil {
		writeError(w, http.StatusNotImplemented, "Reset is not available for this store", nil)
		return
	}
	if err := h.Resetter.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewTeam(ctx context.Context) error {
	for _, emp := range demoTeam {
		if _, err := h.Engine.RegisterEmployee(ctx, emp); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadLeaveMonth(ctx context.Context) error {
	if err := h.loadNewTeam(ctx); err != nil {
		return err
	}
	days := h.monthWorkingDays()
	if len(days) < 6 {
		return fmt.Errorf("not enough working days this month")
	}

	edits := []struct {
		id     generic.EmployeeID
		day    generic.Date
		status generic.Status
	}{
		{"emp-kim", days[0], attendance.StatusAnnualLeave},
		{"emp-kim", days[1], attendance.StatusHalfDayLeave},
		{"emp-kim", days[2], attendance.StatusSickLeave},
		{"emp-lee", days[0], attendance.StatusPaidVacation},
		{"emp-lee", days[3], attendance.StatusSickLeave},
		{"emp-lee", days[4], attendance.StatusSickLeave},
		// third sick day is unpaid
		{"emp-lee", days[5], attendance.StatusSickLeave},
		// only 0.5 left, so a full day is insufficient
		{"emp-park", days[1], attendance.StatusAnnualLeave},
		{"emp-park", days[2], attendance.StatusHalfDayLeave},
	}
	for _, e := range edits {
		if _, err := h.Engine.ApplyStatus(ctx, e.id, e.day, e.status); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadBatchVacation(ctx context.Context) error {
	if err := h.loadNewTeam(ctx); err != nil {
		return err
	}
	today := h.Engine.Today()
	start := generic.NewDate(today.Year(), today.Month(), 8)
	res, err := h.Engine.ApplyStatusBatch(ctx, attendance.BatchRequest{
		Target: attendance.AllEmployees,
		Status: attendance.StatusPaidVacation,
		Start:  start,
		End:    start.AddDays(6),
	})
	if err != nil {
		return err
	}
	return res.Err()
}

func (h *Handler) monthWorkingDays() []generic.Date {
	from, to := generic.MonthOf(h.Engine.Today())
	return generic.WorkingDays(h.Engine.Calendar(), from, to)
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int {
	return &n
}
