/*
closeout.go - Scheduled closeout jobs

PURPOSE:
  ProcessMissingCheckOut closes yesterday's PRESENT/LATE records that were
  never checked out. ProcessAbsenteeism marks employees with no record
  today as ABSENT. Both are run by api.CloseoutScheduler and can be
  triggered by hand.

SEE ALSO:
  - api/scheduler.go: cron wiring and rest-day skip
*/
package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/metrics"
)

// =============================================================================
// SCHEDULED CLOSEOUT
// =============================================================================

// unclosed maps an open status to the status stored when nobody checked out.
var unclosed = map[generic.Status]generic.Status{
	StatusPresent: StatusUnclosedAbsent,
	StatusLate:    StatusUnclosedLate,
}

// closeable lists the statuses a check-in leaves on an open record.
var closeable = []generic.Status{StatusPresent, StatusLate}

// ProcessMissingCheckOut closes yesterday's records that have a check-in but
// no check-out and still hold PRESENT or LATE. They earn nothing; leave
// balances are untouched. Records without a check-in, and leave statuses an
// admin set over a check-in, are left as they are. A closed record moves to
// an UNCLOSED_* status, so later runs do not count it again. Returns the
// number of records closed.
func (e *Engine) ProcessMissingCheckOut(ctx context.Context) (int, error) {
	yesterday := e.Today().AddDays(-1)
	open, err := e.store.FindOpen(ctx, yesterday, closeable...)
	if err != nil {
		metrics.CloseoutRunsTotal.WithLabelValues("missing_checkout", "error").Inc()
		return 0, fmt.Errorf("find open records on %s: %w", yesterday, err)
	}

	closed := 0
	var errs []error
	for _, rec := range open {
		err := e.store.WithTx(ctx, func(tx generic.Tx) error {
			cur, err := tx.Find(ctx, rec.EmployeeID, rec.WorkDate)
			if err != nil {
				return err
			}
			next, ok := unclosed[cur.Status]
			if !cur.IsOpen() || !ok {
				return errSkip
			}
			cur.Status = next
			cur.WorkingMinutes = 0
			cur.DailyWage = 0
			cur.UpdatedAt = e.clock.Now()
			return tx.Upsert(ctx, *cur)
		})
		switch {
		case err == nil:
			closed++
		case errors.Is(err, errSkip), errors.Is(err, generic.ErrRecordNotFound):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", rec.EmployeeID, err))
		}
	}

	err = errors.Join(errs...)
	metrics.CloseoutRecordsTotal.WithLabelValues("missing_checkout").Add(float64(closed))
	metrics.CloseoutRunsTotal.WithLabelValues("missing_checkout", metrics.Result(err)).Inc()
	e.logger.Info().Str("date", yesterday.String()).Int("closed", closed).Int("failed", len(errs)).Msg("missing checkout processed")
	return closed, err
}

// ProcessAbsenteeism records ABSENT for every employee without a record
// today. A check-in that lands first wins on the uniqueness constraint.
// Returns the number of ABSENT records written.
func (e *Engine) ProcessAbsenteeism(ctx context.Context) (int, error) {
	now := e.clock.Now()
	today := generic.DateOf(now)
	emps, err := e.store.ListEmployees(ctx)
	if err != nil {
		metrics.CloseoutRunsTotal.WithLabelValues("absenteeism", "error").Inc()
		return 0, fmt.Errorf("list employees: %w", err)
	}

	marked := 0
	var errs []error
	for _, emp := range emps {
		rec := generic.Record{
			ID:         generic.RecordID(uuid.NewString()),
			EmployeeID: emp.ID,
			WorkDate:   today,
			Status:     StatusAbsent,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := e.store.Insert(ctx, rec); err != nil {
			if !errors.Is(err, generic.ErrDuplicateRecord) {
				errs = append(errs, fmt.Errorf("%s: %w", emp.ID, err))
			}
			continue
		}
		marked++
		e.notifier.PublishEmployeeUpdate(ctx, emp.ID, Payload{
			Type:       EventAbsent,
			EmployeeID: emp.ID,
			Date:       today.String(),
			Status:     StatusAbsent,
		})
	}

	err = errors.Join(errs...)
	metrics.CloseoutRecordsTotal.WithLabelValues("absenteeism").Add(float64(marked))
	metrics.CloseoutRunsTotal.WithLabelValues("absenteeism", metrics.Result(err)).Inc()
	e.logger.Info().Str("date", today.String()).Int("absent", marked).Int("failed", len(errs)).Msg("absenteeism processed")
	return marked, err
}

var errSkip = errors.New("record no longer open")
