package attendance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
)

func TestApplyStatusBatch_SkipsWeekendAndHoliday(t *testing.T) {
	// GIVEN: Wed 2026-05-06 .. Sat 2026-05-09, with Thu 5/7 a declared holiday
	env := newTestEnv(t, "2026-05-07")
	ctx := context.Background()
	env.addEmployee(t, "e1", "5", 2, 12000)

	// WHEN
	res, err := env.engine.ApplyStatusBatch(ctx, attendance.BatchRequest{
		Target: "e1",
		Status: attendance.StatusAnnualLeave,
		Start:  generic.MustParseDate("2026-05-06"),
		End:    generic.MustParseDate("2026-05-09"),
	})

	// THEN: range length 4 minus Saturday and the holiday
	require.NoError(t, err)
	assert.Equal(t, 2, res.AppliedDays)
	assert.Equal(t, 1, res.Employees)
	assert.NoError(t, res.Err())

	recs, err := env.store.FindRange(ctx, "e1", generic.MustParseDate("2026-05-01"), generic.MustParseDate("2026-05-31"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2026-05-06", recs[0].WorkDate.String())
	assert.Equal(t, "2026-05-08", recs[1].WorkDate.String())
	assert.True(t, env.balance(t, "e1").Annual.Equal(dec("3")))
}

func TestApplyStatusBatch_SequentialBalancePerEmployee(t *testing.T) {
	// GIVEN: two employees with 2.0 days each, a Mon-Wed range
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "a", "2", 2, 12000)
	env.addEmployee(t, "b", "2", 2, 12000)

	// WHEN: annual leave is applied to all
	res, err := env.engine.ApplyStatusBatch(ctx, attendance.BatchRequest{
		Target: attendance.AllEmployees,
		Status: attendance.StatusAnnualLeave,
		Start:  generic.MustParseDate("2026-03-09"),
		End:    generic.MustParseDate("2026-03-11"),
	})

	// THEN: the first two days are granted and the third falls back, for each
	require.NoError(t, err)
	assert.Equal(t, 3, res.AppliedDays)
	assert.Equal(t, 2, res.Employees)
	assert.Equal(t, 2, res.Downgraded)

	for _, id := range []generic.EmployeeID{"a", "b"} {
		recs, err := env.store.FindRange(ctx, id, generic.MustParseDate("2026-03-09"), generic.MustParseDate("2026-03-11"))
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, attendance.StatusAnnualLeave, recs[0].Status)
		assert.Equal(t, attendance.StatusAnnualLeave, recs[1].Status)
		assert.Equal(t, attendance.StatusAnnualLeaveInsufficient, recs[2].Status)

		// one notification per employee, not per day
		sent := env.notifier.forEmployee(id)
		require.Len(t, sent, 1)
		assert.Equal(t, attendance.EventAdminUpdate, sent[0].Type)
		assert.Equal(t, "2026-03-09", sent[0].Date)
		assert.Equal(t, attendance.StatusAnnualLeaveInsufficient, sent[0].Status, "status of the last day")
		assert.Len(t, sent[0].MonthlyLogs, 3)
		assert.Equal(t, int64(192000), *sent[0].NewTotalSalary)
	}
	assert.Len(t, env.notifier.forAdmin(), 2)
}

func TestApplyStatusBatch_EndDefaultsToStart(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee(t, "e1", "2", 2, 12000)

	res, err := env.engine.ApplyStatusBatch(context.Background(), attendance.BatchRequest{
		Target: "e1",
		Status: attendance.StatusPaidVacation,
		Start:  generic.MustParseDate("2026-03-04"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.AppliedDays)
}

func TestApplyStatusBatch_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.ApplyStatusBatch(ctx, attendance.BatchRequest{
		Target: "e1", Status: attendance.StatusAbsent,
		Start: generic.MustParseDate("2026-03-10"), End: generic.MustParseDate("2026-03-09"),
	})
	assert.True(t, generic.IsClientError(err))

	_, err = env.engine.ApplyStatusBatch(ctx, attendance.BatchRequest{Target: "e1", Start: generic.MustParseDate("2026-03-10")})
	assert.True(t, generic.IsClientError(err))

	_, err = env.engine.ApplyStatusBatch(ctx, attendance.BatchRequest{
		Target: "ghost", Status: attendance.StatusAbsent, Start: generic.MustParseDate("2026-03-10"),
	})
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}

// failingStore fails every record write for one employee.
type failingStore struct {
	*store.TxMemory
	fail generic.EmployeeID
}

func (s failingStore) WithTx(ctx context.Context, fn func(generic.Tx) error) error {
	return s.TxMemory.WithTx(ctx, func(tx generic.Tx) error {
		return fn(failingTx{Tx: tx, fail: s.fail})
	})
}

type failingTx struct {
	generic.Tx
	fail generic.EmployeeID
}

var errDiskFull = errors.New("disk full")

func (t failingTx) Upsert(ctx context.Context, rec generic.Record) error {
	if rec.EmployeeID == t.fail {
		return errDiskFull
	}
	return t.Tx.Upsert(ctx, rec)
}

func TestApplyStatusBatch_FailureIsolatedPerEmployee(t *testing.T) {
	// GIVEN: writes for "b" fail
	mem := store.NewTxMemory()
	env := newTestEnv(t)
	env.store = mem
	env.engine = attendance.NewEngine(failingStore{TxMemory: mem, fail: "b"}, generic.NewWorkweekCalendar(nil),
		attendance.WithClock(env.clock),
		attendance.WithNotifier(env.notifier),
	)
	env.addEmployee(t, "a", "2", 2, 12000)
	env.addEmployee(t, "b", "2", 2, 12000)
	env.addEmployee(t, "c", "2", 2, 12000)

	// WHEN
	res, err := env.engine.ApplyStatusBatch(context.Background(), attendance.BatchRequest{
		Target: attendance.AllEmployees,
		Status: attendance.StatusAnnualLeave,
		Start:  generic.MustParseDate("2026-03-09"),
	})

	// THEN: a and c committed, b reported and rolled back
	require.NoError(t, err)
	assert.Equal(t, 2, res.Employees)
	require.Contains(t, res.Failures, generic.EmployeeID("b"))
	assert.ErrorIs(t, res.Failures["b"], errDiskFull)

	var batchErr *generic.BatchError
	require.ErrorAs(t, res.Err(), &batchErr)
	assert.ErrorIs(t, res.Err(), errDiskFull)

	assert.True(t, env.balance(t, "a").Annual.Equal(dec("1")))
	assert.True(t, env.balance(t, "b").Annual.Equal(dec("2")), "failed day rolled back")
	assert.True(t, env.balance(t, "c").Annual.Equal(dec("1")))
}

func TestDeleteBatch_RestoresBalances(t *testing.T) {
	// GIVEN: sick leave Mon-Tue, annual leave Wed
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "e1", "2", 2, 12000)
	_, err := env.engine.ApplyStatusBatch(ctx, attendance.BatchRequest{
		Target: "e1", Status: attendance.StatusSickLeave,
		Start: generic.MustParseDate("2026-03-09"), End: generic.MustParseDate("2026-03-10"),
	})
	require.NoError(t, err)
	_, err = env.engine.ApplyStatus(ctx, "e1", generic.MustParseDate("2026-03-11"), attendance.StatusAnnualLeave)
	require.NoError(t, err)
	require.Equal(t, 0, env.balance(t, "e1").Sick)
	env.notifier.reset()

	// WHEN: the whole week is deleted, including days with no record
	res, err := env.engine.DeleteBatch(ctx, attendance.BatchRequest{
		Target: attendance.AllEmployees,
		Start:  generic.MustParseDate("2026-03-09"),
		End:    generic.MustParseDate("2026-03-15"),
	})

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 5, res.AppliedDays)
	bal := env.balance(t, "e1")
	assert.Equal(t, 2, bal.Sick)
	assert.True(t, bal.Annual.Equal(dec("2")))
	recs, err := env.store.FindRange(ctx, "e1", generic.MustParseDate("2026-03-09"), generic.MustParseDate("2026-03-15"))
	require.NoError(t, err)
	assert.Empty(t, recs)
	sent := env.notifier.forEmployee("e1")
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].Status, "no record left")
}

func TestDeleteBatch_KeepsRestDayRecords(t *testing.T) {
	// GIVEN: a record on Saturday set through the single-day path
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "e1", "2", 2, 12000)
	sat := generic.MustParseDate("2026-03-07")
	_, err := env.engine.ApplyStatus(ctx, "e1", sat, attendance.StatusAnnualLeave)
	require.NoError(t, err)

	// WHEN: a batch delete covers Saturday
	_, err = env.engine.DeleteBatch(ctx, attendance.BatchRequest{Target: "e1", Start: sat, End: sat})

	// THEN: rest days are skipped by batches
	require.NoError(t, err)
	_, err = env.store.Find(ctx, "e1", sat)
	assert.NoError(t, err)
}
