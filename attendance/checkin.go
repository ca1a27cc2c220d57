/*
checkin.go - Employee check-in and check-out

PURPOSE:
  Creates today's record on check-in (PRESENT or LATE by the late cutoff)
  and closes it on check-out with worked minutes and the daily wage. The
  store's uniqueness index and conditional CloseOut make concurrent calls
  for the same employee safe.
*/
package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/metrics"
	"github.com/warp/attendance-engine/payroll"
)

// =============================================================================
// CHECK-IN / CHECK-OUT
// =============================================================================

// CheckIn opens today's record for employeeID. A second check-in on the same
// day, including one racing this call, fails with ErrAlreadyCheckedIn.
func (e *Engine) CheckIn(ctx context.Context, employeeID generic.EmployeeID) (*generic.Record, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("%w: employee id is required", generic.ErrInvalidInput)
	}
	if _, err := e.store.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	today := generic.DateOf(now)
	rec := generic.Record{
		ID:         generic.RecordID(uuid.NewString()),
		EmployeeID: employeeID,
		WorkDate:   today,
		CheckIn:    &now,
		Status:     e.rules.ArrivalStatus(now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := e.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, generic.ErrDuplicateRecord) {
			return nil, &generic.ConflictError{EmployeeID: employeeID, Date: today, Err: generic.ErrAlreadyCheckedIn}
		}
		return nil, fmt.Errorf("check-in %s: %w", employeeID, err)
	}
	metrics.CheckEventsTotal.WithLabelValues("check_in", string(rec.Status)).Inc()

	e.notifier.PublishEmployeeUpdate(ctx, employeeID, Payload{
		Type:       EventCheckIn,
		EmployeeID: employeeID,
		Date:       today.String(),
		Status:     rec.Status,
		Time:       now.Format("15:04:05"),
	})
	return &rec, nil
}

// CheckOut closes today's record for employeeID, deriving worked minutes,
// wage and the departed status. The write only succeeds while the record is
// still open, so of two racing check-outs exactly one wins.
func (e *Engine) CheckOut(ctx context.Context, employeeID generic.EmployeeID) (*generic.Record, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("%w: employee id is required", generic.ErrInvalidInput)
	}
	emp, err := e.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	today := generic.DateOf(now)
	rec, err := e.store.Find(ctx, employeeID, today)
	if err != nil {
		return nil, err
	}
	if rec.CheckOut != nil {
		return nil, &generic.ConflictError{EmployeeID: employeeID, Date: today, Err: generic.ErrAlreadyCheckedOut}
	}
	if rec.CheckIn == nil {
		return nil, fmt.Errorf("%w: no check-in for %s on %s", generic.ErrRecordNotFound, employeeID, today)
	}

	rec.CheckOut = &now
	rec.WorkingMinutes = e.rules.WorkedMinutes(*rec.CheckIn, now)
	rec.DailyWage = payroll.Wage(rec.WorkingMinutes, emp.HourlyRate)
	rec.Status = e.rules.DepartureStatus(rec.Status, now)
	rec.UpdatedAt = now

	closed, err := e.store.CloseOut(ctx, *rec)
	if err != nil {
		return nil, fmt.Errorf("check-out %s: %w", employeeID, err)
	}
	if !closed {
		return nil, &generic.ConflictError{EmployeeID: employeeID, Date: today, Err: generic.ErrAlreadyCheckedOut}
	}
	metrics.CheckEventsTotal.WithLabelValues("check_out", string(rec.Status)).Inc()

	wage, mins := rec.DailyWage, rec.WorkingMinutes
	e.notifier.PublishEmployeeUpdate(ctx, employeeID, Payload{
		Type:           EventCheckOut,
		EmployeeID:     employeeID,
		Date:           today.String(),
		Status:         rec.Status,
		Time:           now.Format("15:04:05"),
		DailyWage:      &wage,
		WorkingMinutes: &mins,
	})
	e.publishSalary(ctx, employeeID, today)
	return rec, nil
}

// publishSalary sends the employee's new month-to-date total to the admin
// topic.
func (e *Engine) publishSalary(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) {
	from, to := generic.MonthOf(date)
	logs, err := e.store.FindRange(ctx, employeeID, from, to)
	if err != nil {
		e.logger.Warn().Err(err).Str("employee_id", string(employeeID)).Msg("salary refresh failed")
		return
	}
	total := payroll.MonthlyTotal(logs)
	e.notifier.PublishAdminUpdate(ctx, Payload{
		Type:           EventSalaryUpdate,
		EmployeeID:     employeeID,
		Date:           date.String(),
		NewTotalSalary: &total,
	})
}
