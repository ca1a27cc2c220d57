/*
engine.go - Single-day reconciliation and monthly queries

PURPOSE:
  Holds Engine and its options, the single-day operations (ApplyStatus,
  CancelStatus, UpdateRecordStatus) and the read side used by reports:
  monthly records, salary summaries and the .xlsx export.

NOTIFICATIONS:
  A change that went through publishes ADMIN_UPDATE to the employee and
  admin topics after commit, with the refreshed month and its wage total.
  UpdateRecordStatus publishes LEAVE_UPDATE to the employee only.
  No-op applies publish nothing.

SEE ALSO:
  - status.go: reconciliation steps
  - batch.go: range operations
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/log"
	"github.com/warp/attendance-engine/metrics"
	"github.com/warp/attendance-engine/payroll"
)

// =============================================================================
// ENGINE
// =============================================================================

// DefaultWorkers bounds how many employees a batch processes in parallel.
const DefaultWorkers = 4

// Engine is the single writer of attendance records and leave balances.
type Engine struct {
	store    generic.TxStore
	calendar generic.Calendar
	notifier Notifier
	clock    Clock
	rules    Rules
	workers  int
	logger   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets where change events go. Defaults to NopNotifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithClock sets the source of "now". Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRules replaces DefaultRules.
func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithWorkers bounds batch parallelism. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates an engine over store. A nil calendar treats only
// weekends as rest days.
func NewEngine(store generic.TxStore, calendar generic.Calendar, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		calendar: calendar,
		notifier: NopNotifier{},
		clock:    SystemClock{},
		rules:    DefaultRules(),
		workers:  DefaultWorkers,
		logger:   log.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.calendar == nil {
		e.calendar = generic.NewWorkweekCalendar(nil)
	}
	return e
}

func (e *Engine) Rules() Rules                  { return e.rules }
func (e *Engine) Calendar() generic.Calendar    { return e.calendar }
func (e *Engine) Location() *time.Location      { return e.clock.Now().Location() }
func (e *Engine) Today() generic.Date           { return generic.DateOf(e.clock.Now()) }
func (e *Engine) IsRestDay(d generic.Date) bool { return e.calendar.IsRestDay(d) }

// Outcome reports the result of one reconciliation.
type Outcome struct {
	Record       *generic.Record // nil after a cancel
	Changed      bool            // false: the record already had the status
	Downgraded   bool            // leave was insufficient; fallback stored
	Balance      generic.LeaveBalance
	MonthlyTotal int64
}

// =============================================================================
// SINGLE-DAY RECONCILIATION
// =============================================================================

// ApplyStatus sets the status of employeeID's record on date, creating the
// record if needed, and reconciles leave balances and pay.
func (e *Engine) ApplyStatus(ctx context.Context, employeeID generic.EmployeeID, date generic.Date, status generic.Status) (*Outcome, error) {
	if err := validateTarget(employeeID, date); err != nil {
		return nil, err
	}
	if status.IsZero() {
		return nil, fmt.Errorf("%w: status is required", generic.ErrInvalidInput)
	}

	timer := metrics.NewTimer()
	var out *Outcome
	err := e.store.WithTx(ctx, func(tx generic.Tx) error {
		var err error
		out, err = e.reconcile(ctx, tx, employeeID, date, status)
		return err
	})
	timer.ObserveDuration(metrics.ReconciliationDuration.WithLabelValues("apply"))
	metrics.ReconciliationsTotal.WithLabelValues("apply", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("apply %s for %s on %s: %w", status, employeeID, date, err)
	}
	if !out.Changed {
		return out, nil
	}
	if out.Downgraded {
		metrics.LeaveDowngradesTotal.WithLabelValues(string(out.Record.Status)).Inc()
	}

	e.logger.Info().
		Str("employee_id", string(employeeID)).
		Str("date", date.String()).
		Str("requested", string(status)).
		Str("stored", string(out.Record.Status)).
		Msg("status applied")

	out.MonthlyTotal = e.refreshAndNotify(ctx, employeeID, date, out.Record.Status, out.Balance)
	return out, nil
}

// CancelStatus deletes employeeID's record on date and returns any leave it
// consumed.
func (e *Engine) CancelStatus(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) (*Outcome, error) {
	if err := validateTarget(employeeID, date); err != nil {
		return nil, err
	}

	var out *Outcome
	err := e.store.WithTx(ctx, func(tx generic.Tx) error {
		var err error
		out, err = e.cancel(ctx, tx, employeeID, date, true)
		return err
	})
	metrics.ReconciliationsTotal.WithLabelValues("cancel", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("cancel %s on %s: %w", employeeID, date, err)
	}

	out.MonthlyTotal = e.refreshAndNotify(ctx, employeeID, date, "", out.Balance)
	return out, nil
}

// UpdateRecordStatus applies status to the record identified by recordID and
// notifies the employee with a LEAVE_UPDATE event.
func (e *Engine) UpdateRecordStatus(ctx context.Context, recordID generic.RecordID, status generic.Status) (*Outcome, error) {
	if recordID == "" || status.IsZero() {
		return nil, fmt.Errorf("%w: record id and status are required", generic.ErrInvalidInput)
	}

	var out *Outcome
	err := e.store.WithTx(ctx, func(tx generic.Tx) error {
		rec, err := tx.FindByID(ctx, recordID)
		if err != nil {
			return err
		}
		out, err = e.reconcile(ctx, tx, rec.EmployeeID, rec.WorkDate, status)
		return err
	})
	metrics.ReconciliationsTotal.WithLabelValues("update_record", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("update record %s: %w", recordID, err)
	}
	if !out.Changed {
		return out, nil
	}
	if out.Downgraded {
		metrics.LeaveDowngradesTotal.WithLabelValues(string(out.Record.Status)).Inc()
	}

	rec := out.Record
	annual, sick := out.Balance.Annual, out.Balance.Sick
	e.notifier.PublishEmployeeUpdate(ctx, rec.EmployeeID, Payload{
		Type:               EventLeaveUpdate,
		EmployeeID:         rec.EmployeeID,
		Date:               rec.WorkDate.String(),
		Status:             rec.Status,
		RemainingLeave:     &annual,
		RemainingSickLeave: &sick,
	})
	return out, nil
}

// reconcile replaces the status of (employeeID, date) inside tx.
func (e *Engine) reconcile(ctx context.Context, tx generic.Tx, employeeID generic.EmployeeID, date generic.Date, status generic.Status) (*Outcome, error) {
	emp, err := tx.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	existing, err := tx.Find(ctx, employeeID, date)
	if err != nil && !errors.Is(err, generic.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil && existing.Status == status {
		return &Outcome{Record: existing, Balance: emp.Balance()}, nil
	}

	now := e.clock.Now()
	var rec generic.Record
	if existing != nil {
		rec = *existing
		if err := credit(ctx, tx, employeeID, CreditFor(existing.Status)); err != nil {
			return nil, err
		}
	} else {
		rec = generic.Record{
			ID:         generic.RecordID(uuid.NewString()),
			EmployeeID: employeeID,
			WorkDate:   date,
			CreatedAt:  now,
		}
	}

	stored, downgraded := status, false
	ok, err := debit(ctx, tx, employeeID, DebitFor(status))
	if err != nil {
		return nil, err
	}
	if !ok {
		stored, downgraded = Policy(status).Insufficient, true
	}

	rec.Status = stored
	rec.WorkingMinutes = e.rules.PaidMinutes(stored, rec)
	rec.DailyWage = payroll.Wage(rec.WorkingMinutes, emp.HourlyRate)
	rec.UpdatedAt = now
	if err := tx.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	updated, err := tx.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return &Outcome{Record: &rec, Changed: true, Downgraded: downgraded, Balance: updated.Balance()}, nil
}

// cancel deletes (employeeID, date) inside tx. With strict unset a missing
// record is not an error, which is what range deletes want.
func (e *Engine) cancel(ctx context.Context, tx generic.Tx, employeeID generic.EmployeeID, date generic.Date, strict bool) (*Outcome, error) {
	emp, err := tx.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	existing, err := tx.Find(ctx, employeeID, date)
	if errors.Is(err, generic.ErrRecordNotFound) {
		if strict {
			return nil, err
		}
		return &Outcome{Balance: emp.Balance()}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := credit(ctx, tx, employeeID, CreditFor(existing.Status)); err != nil {
		return nil, err
	}
	if err := tx.Delete(ctx, employeeID, date); err != nil {
		return nil, err
	}

	updated, err := tx.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return &Outcome{Changed: true, Balance: updated.Balance()}, nil
}

// refreshAndNotify recomputes the month-to-date wage of the month holding
// date and publishes an ADMIN_UPDATE to the employee and admin topics.
// status is the stored status of date; it is empty once the record is gone.
// Read failures after commit are logged, not returned.
func (e *Engine) refreshAndNotify(ctx context.Context, employeeID generic.EmployeeID, date generic.Date, status generic.Status, bal generic.LeaveBalance) int64 {
	from, to := generic.MonthOf(date)
	logs, err := e.store.FindRange(ctx, employeeID, from, to)
	if err != nil {
		e.logger.Warn().Err(err).Str("employee_id", string(employeeID)).Msg("monthly refresh failed")
		return 0
	}
	total := payroll.MonthlyTotal(logs)

	annual, sick := bal.Annual, bal.Sick
	p := Payload{
		Type:               EventAdminUpdate,
		EmployeeID:         employeeID,
		Date:               date.String(),
		Status:             status,
		RemainingLeave:     &annual,
		RemainingSickLeave: &sick,
		MonthlyLogs:        ViewsOf(logs, e.Location()),
		NewTotalSalary:     &total,
	}
	e.notifier.PublishEmployeeUpdate(ctx, employeeID, p)
	e.notifier.PublishAdminUpdate(ctx, p)
	return total
}

// =============================================================================
// QUERIES
// =============================================================================

// MonthlyRecords returns employeeID's records of the given month.
func (e *Engine) MonthlyRecords(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month) ([]generic.Record, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	if _, err := e.store.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	return e.store.FindRange(ctx, employeeID, generic.StartOfMonth(year, month), generic.EndOfMonth(year, month))
}

// MonthlyRecordsAll returns every record of the month grouped by employee.
func (e *Engine) MonthlyRecordsAll(ctx context.Context, year int, month time.Month) (map[generic.EmployeeID][]generic.Record, error) {
	recs, err := e.monthAll(ctx, year, month)
	if err != nil {
		return nil, err
	}
	out := make(map[generic.EmployeeID][]generic.Record)
	for _, r := range recs {
		out[r.EmployeeID] = append(out[r.EmployeeID], r)
	}
	return out, nil
}

// SalarySummary returns per-employee month-to-date totals, including
// employees without records.
func (e *Engine) SalarySummary(ctx context.Context, year int, month time.Month) ([]payroll.EmployeeSummary, error) {
	recs, err := e.monthAll(ctx, year, month)
	if err != nil {
		return nil, err
	}
	emps, err := e.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	return payroll.Summarize(emps, recs), nil
}

// ExportMonth writes the month as an .xlsx workbook.
func (e *Engine) ExportMonth(ctx context.Context, w io.Writer, year int, month time.Month) error {
	recs, err := e.monthAll(ctx, year, month)
	if err != nil {
		return err
	}
	emps, err := e.store.ListEmployees(ctx)
	if err != nil {
		return err
	}
	return payroll.ExportMonthly(w, emps, recs, e.Location())
}

func (e *Engine) monthAll(ctx context.Context, year int, month time.Month) ([]generic.Record, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	return e.store.FindRangeAll(ctx, generic.StartOfMonth(year, month), generic.EndOfMonth(year, month))
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateTarget(employeeID generic.EmployeeID, date generic.Date) error {
	if employeeID == "" {
		return fmt.Errorf("%w: employee id is required", generic.ErrInvalidInput)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", generic.ErrInvalidInput)
	}
	return nil
}

func validateMonth(year int, month time.Month) error {
	if year < 1 || month < time.January || month > time.December {
		return fmt.Errorf("%w: year %d month %d", generic.ErrInvalidInput, year, month)
	}
	return nil
}
