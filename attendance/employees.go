package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/generic"
)

// NewEmployee describes an employee to register. Nil balances get the
// defaults; an empty ID gets a generated one.
type NewEmployee struct {
	ID          generic.EmployeeID
	Name        string
	HourlyRate  int64
	AnnualLeave *decimal.Decimal
	SickLeave   *int
}

// RegisterEmployee validates and stores a new employee.
func (e *Engine) RegisterEmployee(ctx context.Context, in NewEmployee) (*generic.Employee, error) {
	emp := generic.Employee{
		ID:          in.ID,
		Name:        in.Name,
		HourlyRate:  in.HourlyRate,
		AnnualLeave: generic.DefaultAnnualLeave,
		SickLeave:   generic.DefaultSickLeave,
		CreatedAt:   e.clock.Now(),
	}
	if emp.ID == "" {
		emp.ID = generic.EmployeeID(uuid.NewString())
	}
	if in.AnnualLeave != nil {
		emp.AnnualLeave = *in.AnnualLeave
	}
	if in.SickLeave != nil {
		emp.SickLeave = *in.SickLeave
	}

	if emp.ID == AllEmployees {
		return nil, fmt.Errorf("%w: %q is reserved", generic.ErrInvalidInput, AllEmployees)
	}
	if emp.HourlyRate < 0 {
		return nil, fmt.Errorf("%w: hourly rate must not be negative", generic.ErrInvalidInput)
	}
	if emp.AnnualLeave.IsNegative() || !emp.AnnualLeave.Equal(generic.FromHalfDays(generic.HalfDays(emp.AnnualLeave))) {
		return nil, fmt.Errorf("%w: annual leave must be a non-negative multiple of 0.5", generic.ErrInvalidInput)
	}
	if emp.SickLeave < 0 {
		return nil, fmt.Errorf("%w: sick leave must not be negative", generic.ErrInvalidInput)
	}

	if _, err := e.store.GetEmployee(ctx, emp.ID); err == nil {
		return nil, fmt.Errorf("register %s: %w", emp.ID, generic.ErrEmployeeExists)
	} else if !errors.Is(err, generic.ErrEmployeeNotFound) {
		return nil, err
	}

	if err := e.store.SaveEmployee(ctx, emp); err != nil {
		return nil, fmt.Errorf("save employee %s: %w", emp.ID, err)
	}
	e.logger.Info().Str("employee_id", string(emp.ID)).Msg("employee registered")
	return &emp, nil
}

func (e *Engine) Employee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	return e.store.GetEmployee(ctx, id)
}

func (e *Engine) Employees(ctx context.Context) ([]generic.Employee, error) {
	return e.store.ListEmployees(ctx)
}
