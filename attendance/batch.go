/*
batch.go - Range operations over working days

PURPOSE:
  Applies or removes a status over every working day of [start, end] for
  one employee or "all". Rest days are skipped.

CONCURRENCY:
  Employees run in parallel on an errgroup bounded by WithWorkers. Days of
  one employee run in order, one transaction each, so a failure keeps the
  days already committed and stops that employee only.

SEE ALSO:
  - engine.go: reconcile and cancel, the per-day operations
*/
package attendance

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/metrics"
)

// AllEmployees as a batch target selects every employee.
const AllEmployees = "all"

// BatchRequest applies or deletes a status over [Start, End] for one
// employee or AllEmployees. A zero End means Start.
type BatchRequest struct {
	Target string
	Status generic.Status // ignored by DeleteBatch
	Start  generic.Date
	End    generic.Date
}

// BatchResult summarizes a batch. Employees that failed are listed in
// Failures; their dates before the failing one stay committed.
type BatchResult struct {
	Target      string
	AppliedDays int // working days in range
	Employees   int // employees processed without error
	Downgraded  int // days stored as a fallback status
	Failures    map[generic.EmployeeID]error
}

// Err returns a *generic.BatchError when any employee failed.
func (r *BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &generic.BatchError{Failures: r.Failures}
}

// dayOp runs one (employee, date) step inside a transaction.
type dayOp func(ctx context.Context, tx generic.Tx, id generic.EmployeeID, date generic.Date) (*Outcome, error)

// ApplyStatusBatch applies req.Status on every working day of the range.
func (e *Engine) ApplyStatusBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if req.Status.IsZero() {
		return nil, fmt.Errorf("%w: status is required", generic.ErrInvalidInput)
	}
	return e.runBatch(ctx, "apply_batch", req, func(ctx context.Context, tx generic.Tx, id generic.EmployeeID, date generic.Date) (*Outcome, error) {
		return e.reconcile(ctx, tx, id, date, req.Status)
	})
}

// DeleteBatch removes records on every working day of the range and returns
// consumed leave. Days without a record are skipped.
func (e *Engine) DeleteBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	return e.runBatch(ctx, "delete_batch", req, func(ctx context.Context, tx generic.Tx, id generic.EmployeeID, date generic.Date) (*Outcome, error) {
		return e.cancel(ctx, tx, id, date, false)
	})
}

func (e *Engine) runBatch(ctx context.Context, operation string, req BatchRequest, op dayOp) (*BatchResult, error) {
	if req.Target == "" {
		return nil, fmt.Errorf("%w: target is required", generic.ErrInvalidInput)
	}
	if req.Start.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", generic.ErrInvalidInput)
	}
	end := req.End
	if end.IsZero() {
		end = req.Start
	}
	if end.Before(req.Start) {
		return nil, fmt.Errorf("%w: end date %s before start date %s", generic.ErrInvalidInput, end, req.Start)
	}

	targets, err := e.targets(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	days := generic.WorkingDays(e.calendar, req.Start, end)

	timer := metrics.NewTimer()
	result := &BatchResult{
		Target:      req.Target,
		AppliedDays: len(days),
		Failures:    make(map[generic.EmployeeID]error),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.workers)
	for _, id := range targets {
		g.Go(func() error {
			downgraded, err := e.batchEmployee(ctx, id, days, req.Start, op)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures[id] = err
				return nil
			}
			result.Employees++
			result.Downgraded += downgraded
			return nil
		})
	}
	_ = g.Wait()

	timer.ObserveDuration(metrics.ReconciliationDuration.WithLabelValues(operation))
	metrics.ReconciliationsTotal.WithLabelValues(operation, metrics.Result(result.Err())).Inc()
	e.logger.Info().
		Str("operation", operation).
		Str("target", req.Target).
		Str("start", req.Start.String()).
		Str("end", end.String()).
		Int("applied_days", result.AppliedDays).
		Int("employees", result.Employees).
		Int("failures", len(result.Failures)).
		Msg("batch finished")
	return result, nil
}

// batchEmployee processes one employee's days in ascending order, one
// transaction per day, then notifies once with the month of start.
func (e *Engine) batchEmployee(ctx context.Context, id generic.EmployeeID, days []generic.Date, start generic.Date, op dayOp) (int, error) {
	downgraded := 0
	var last *Outcome
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return downgraded, err
		}
		var out *Outcome
		err := e.store.WithTx(ctx, func(tx generic.Tx) error {
			var err error
			out, err = op(ctx, tx, id, day)
			return err
		})
		if err != nil {
			e.notifyBatch(ctx, id, start, last)
			return downgraded, fmt.Errorf("%s: %w", day, err)
		}
		if out.Downgraded {
			downgraded++
			metrics.LeaveDowngradesTotal.WithLabelValues(string(out.Record.Status)).Inc()
		}
		last = out
	}
	e.notifyBatch(ctx, id, start, last)
	return downgraded, nil
}

// notifyBatch publishes once for the month of start, carrying the status
// stored on the last day processed.
func (e *Engine) notifyBatch(ctx context.Context, id generic.EmployeeID, start generic.Date, last *Outcome) {
	var (
		bal    generic.LeaveBalance
		status generic.Status
	)
	if last != nil {
		bal = last.Balance
		if last.Record != nil {
			status = last.Record.Status
		}
	} else {
		emp, err := e.store.GetEmployee(ctx, id)
		if err != nil {
			return
		}
		bal = emp.Balance()
	}
	e.refreshAndNotify(ctx, id, start, status, bal)
}

func (e *Engine) targets(ctx context.Context, target string) ([]generic.EmployeeID, error) {
	if target != AllEmployees {
		emp, err := e.store.GetEmployee(ctx, generic.EmployeeID(target))
		if err != nil {
			return nil, err
		}
		return []generic.EmployeeID{emp.ID}, nil
	}
	emps, err := e.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]generic.EmployeeID, len(emps))
	for i, emp := range emps {
		ids[i] = emp.ID
	}
	return ids, nil
}
