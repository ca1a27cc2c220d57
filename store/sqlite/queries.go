package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/generic"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements generic.Tx over a querier without locking. Store
// wraps it with its mutex; WithTx hands one bound to the sql.Tx to fn.
type queries struct {
	db querier
}

var _ generic.Tx = (*queries)(nil)

const recordColumns = `id, employee_id, work_date, check_in, check_out, status,
	working_minutes, daily_wage, created_at, updated_at`

// =============================================================================
// RECORDS
// =============================================================================

func (q *queries) Find(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) (*generic.Record, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE employee_id = ? AND work_date = ?`,
		employeeID, date.String())
	return scanRecord(row)
}

func (q *queries) FindByID(ctx context.Context, id generic.RecordID) (*generic.Record, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE id = ?`, id)
	return scanRecord(row)
}

func (q *queries) FindRange(ctx context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]generic.Record, error) {
	return q.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE employee_id = ? AND work_date >= ? AND work_date <= ?
		ORDER BY work_date ASC
	`, employeeID, from.String(), to.String())
}

func (q *queries) FindRangeAll(ctx context.Context, from, to generic.Date) ([]generic.Record, error) {
	return q.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE work_date >= ? AND work_date <= ?
		ORDER BY employee_id ASC, work_date ASC
	`, from.String(), to.String())
}

func (q *queries) FindOpen(ctx context.Context, date generic.Date, statuses ...generic.Status) ([]generic.Record, error) {
	where := "work_date = ? AND check_in IS NOT NULL AND check_out IS NULL"
	args := []any{date.String()}
	if len(statuses) > 0 {
		where += " AND status IN (?" + strings.Repeat(", ?", len(statuses)-1) + ")"
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	return q.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE `+where+`
		ORDER BY employee_id ASC
	`, args...)
}

func (q *queries) Insert(ctx context.Context, rec generic.Record) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO attendance_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, recordArgs(rec)...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateRecord
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Upsert keeps the existing row's id and created_at on conflict.
func (q *queries) Upsert(ctx context.Context, rec generic.Record) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO attendance_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, work_date) DO UPDATE SET
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			status = excluded.status,
			working_minutes = excluded.working_minutes,
			daily_wage = excluded.daily_wage,
			updated_at = excluded.updated_at
	`, recordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// CloseOut is the conditional checkout: the WHERE clause re-checks that
// the row is still open, so only one of two racing requests succeeds.
func (q *queries) CloseOut(ctx context.Context, rec generic.Record) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET check_out = ?, status = ?, working_minutes = ?, daily_wage = ?, updated_at = ?
		WHERE employee_id = ? AND work_date = ? AND check_out IS NULL
	`,
		formatTimePtr(rec.CheckOut), string(rec.Status), rec.WorkingMinutes, rec.DailyWage,
		formatTime(updatedAt(rec)), rec.EmployeeID, rec.WorkDate.String(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to close out record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *queries) Delete(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM attendance_records WHERE employee_id = ? AND work_date = ?`,
		employeeID, date.String())
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (q *queries) queryRecords(ctx context.Context, query string, args ...any) ([]generic.Record, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []generic.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*generic.Record, error) {
	var (
		rec                  generic.Record
		workDate             string
		checkIn, checkOut    sql.NullString
		status               string
		createdAt, updatedAt string
	)
	err := sc.Scan(&rec.ID, &rec.EmployeeID, &workDate, &checkIn, &checkOut, &status,
		&rec.WorkingMinutes, &rec.DailyWage, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	if rec.WorkDate, err = generic.ParseDate(workDate); err != nil {
		return nil, err
	}
	if rec.CheckIn, err = parseTimePtr(checkIn); err != nil {
		return nil, err
	}
	if rec.CheckOut, err = parseTimePtr(checkOut); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	rec.Status = generic.Status(status)
	return &rec, nil
}

func recordArgs(rec generic.Record) []any {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return []any{
		rec.ID, rec.EmployeeID, rec.WorkDate.String(),
		formatTimePtr(rec.CheckIn), formatTimePtr(rec.CheckOut),
		string(rec.Status), rec.WorkingMinutes, rec.DailyWage,
		formatTime(created), formatTime(updatedAt(rec)),
	}
}

func updatedAt(rec generic.Record) time.Time {
	if rec.UpdatedAt.IsZero() {
		return time.Now()
	}
	return rec.UpdatedAt
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (q *queries) GetEmployee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, hourly_rate, annual_leave_halves, sick_leave, created_at
		FROM employees WHERE id = ?
	`, id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrEmployeeNotFound
	}
	return emp, err
}

func (q *queries) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, hourly_rate, annual_leave_halves, sick_leave, created_at
		FROM employees ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []generic.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

// SaveEmployee inserts or replaces an employee, balances included.
func (q *queries) SaveEmployee(ctx context.Context, emp generic.Employee) error {
	if emp.ID == "" {
		return fmt.Errorf("%w: employee id is required", generic.ErrInvalidInput)
	}
	if emp.AnnualLeave.IsNegative() || emp.SickLeave < 0 {
		return fmt.Errorf("%w: leave balances must not be negative", generic.ErrInvalidInput)
	}
	created := emp.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	halves := generic.HalfDays(emp.AnnualLeave)

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, hourly_rate, annual_leave, annual_leave_halves, sick_leave, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hourly_rate = excluded.hourly_rate,
			annual_leave = excluded.annual_leave,
			annual_leave_halves = excluded.annual_leave_halves,
			sick_leave = excluded.sick_leave
	`, emp.ID, emp.Name, emp.HourlyRate, generic.FromHalfDays(halves).StringFixed(1), halves, emp.SickLeave,
		formatTime(created))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func scanEmployee(sc scanner) (*generic.Employee, error) {
	var (
		emp       generic.Employee
		halves    int64
		createdAt string
	)
	if err := sc.Scan(&emp.ID, &emp.Name, &emp.HourlyRate, &halves, &emp.SickLeave, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}
	emp.AnnualLeave = generic.FromHalfDays(halves)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	emp.CreatedAt = t
	return &emp, nil
}

// =============================================================================
// LEAVE LEDGER (generic.LeaveLedger interface)
// =============================================================================

func (q *queries) DecrementAnnual(ctx context.Context, id generic.EmployeeID, amount decimal.Decimal) (bool, error) {
	halves := generic.HalfDays(amount)
	res, err := q.db.ExecContext(ctx, `
		UPDATE employees
		SET annual_leave_halves = annual_leave_halves - ?1,
		    annual_leave = printf('%.1f', (annual_leave_halves - ?1) / 2.0)
		WHERE id = ?2 AND annual_leave_halves >= ?1
	`, halves, id)
	if err != nil {
		return false, fmt.Errorf("failed to decrement annual leave: %w", err)
	}
	return q.applied(ctx, res, id)
}

func (q *queries) IncrementAnnual(ctx context.Context, id generic.EmployeeID, amount decimal.Decimal) error {
	halves := generic.HalfDays(amount)
	res, err := q.db.ExecContext(ctx, `
		UPDATE employees
		SET annual_leave_halves = annual_leave_halves + ?1,
		    annual_leave = printf('%.1f', (annual_leave_halves + ?1) / 2.0)
		WHERE id = ?2
	`, halves, id)
	if err != nil {
		return fmt.Errorf("failed to increment annual leave: %w", err)
	}
	return q.mustApply(ctx, res, id)
}

func (q *queries) DecrementSick(ctx context.Context, id generic.EmployeeID) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE employees SET sick_leave = sick_leave - 1 WHERE id = ? AND sick_leave > 0`, id)
	if err != nil {
		return false, fmt.Errorf("failed to decrement sick leave: %w", err)
	}
	return q.applied(ctx, res, id)
}

func (q *queries) IncrementSick(ctx context.Context, id generic.EmployeeID) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE employees SET sick_leave = sick_leave + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment sick leave: %w", err)
	}
	return q.mustApply(ctx, res, id)
}

// applied interprets a guarded UPDATE: one row means the decrement
// happened, zero rows means insufficient balance unless the employee does
// not exist at all.
func (q *queries) applied(ctx context.Context, res sql.Result, id generic.EmployeeID) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if err := q.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (q *queries) mustApply(ctx context.Context, res sql.Result, id generic.EmployeeID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrEmployeeNotFound
	}
	return nil
}

func (q *queries) exists(ctx context.Context, id generic.EmployeeID) error {
	var one int
	err := q.db.QueryRowContext(ctx, `SELECT 1 FROM employees WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ErrEmployeeNotFound
	}
	return err
}
