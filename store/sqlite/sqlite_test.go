package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func saveEmployee(t *testing.T, s *sqlite.Store, id, annual string, sick int) {
	t.Helper()
	require.NoError(t, s.SaveEmployee(context.Background(), generic.Employee{
		ID:          generic.EmployeeID(id),
		Name:        id,
		HourlyRate:  12000,
		AnnualLeave: decimal.RequireFromString(annual),
		SickLeave:   sick,
	}))
}

func record(id, employee, date string, status generic.Status) generic.Record {
	return generic.Record{
		ID:         generic.RecordID(id),
		EmployeeID: generic.EmployeeID(employee),
		WorkDate:   generic.MustParseDate(date),
		Status:     status,
	}
}

// =============================================================================
// EMPLOYEES AND LEDGER
// =============================================================================

func TestEmployees_SaveGetList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "b", "2.5", 1)
	saveEmployee(t, s, "a", "0", 0)

	emp, err := s.GetEmployee(ctx, "b")
	require.NoError(t, err)
	assert.True(t, emp.AnnualLeave.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 1, emp.SickLeave)
	assert.Equal(t, int64(12000), emp.HourlyRate)

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, generic.EmployeeID("a"), list[0].ID)

	_, err = s.GetEmployee(ctx, "nobody")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)

	err = s.SaveEmployee(ctx, generic.Employee{Name: "no id"})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestLedger_GuardedAnnualDecrement(t *testing.T) {
	// GIVEN: 1.5 days of annual leave
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "e1", "1.5", 0)

	// WHEN/THEN: a full day fits, a second full day does not, a half does
	ok, err := s.DecrementAnnual(ctx, "e1", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DecrementAnnual(ctx, "e1", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, ok, "balance 0.5 does not cover 1.0")

	ok, err = s.DecrementAnnual(ctx, "e1", decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.True(t, ok)

	emp, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, emp.AnnualLeave.IsZero())

	require.NoError(t, s.IncrementAnnual(ctx, "e1", decimal.NewFromInt(1)))
	emp, err = s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, emp.AnnualLeave.Equal(decimal.NewFromInt(1)))

	_, err = s.DecrementAnnual(ctx, "ghost", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
	assert.ErrorIs(t, s.IncrementAnnual(ctx, "ghost", decimal.NewFromInt(1)), generic.ErrEmployeeNotFound)
}

func TestLedger_GuardedSickDecrement(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "e1", "0", 1)

	ok, err := s.DecrementSick(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DecrementSick(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.IncrementSick(ctx, "e1"))
	emp, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, emp.SickLeave)

	_, err = s.DecrementSick(ctx, "ghost")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}

func TestLedger_ConcurrentDecrementsNeverOverdraw(t *testing.T) {
	// GIVEN: 3 days, 10 concurrent requests for one day each
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "e1", "3", 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.DecrementAnnual(ctx, "e1", decimal.NewFromInt(1))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// THEN
	assert.Equal(t, 3, granted)
	emp, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, emp.AnnualLeave.IsZero())
}

// =============================================================================
// RECORDS
// =============================================================================

func TestRecords_InsertIsUniquePerDay(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "e1", "0", 0)

	require.NoError(t, s.Insert(ctx, record("r1", "e1", "2026-03-03", attendance.StatusPresent)))
	err := s.Insert(ctx, record("r2", "e1", "2026-03-03", attendance.StatusAbsent))
	assert.ErrorIs(t, err, generic.ErrDuplicateRecord)

	require.NoError(t, s.Insert(ctx, record("r3", "e1", "2026-03-04", attendance.StatusAbsent)))
}

func TestRecords_UpsertKeepsIdentity(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "e1", "0", 0)

	first := record("r1", "e1", "2026-03-03", attendance.StatusPresent)
	require.NoError(t, s.Upsert(ctx, first))

	second := record("r2", "e1", "2026-03-03", attendance.StatusAnnualLeave)
	second.WorkingMinutes = 480
	second.DailyWage = 96000
	require.NoError(t, s.Upsert(ctx, second))

	got, err := s.Find(ctx, "e1", generic.MustParseDate("2026-03-03"))
	require.NoError(t, err)
	assert.Equal(t, generic.RecordID("r1"), got.ID)
	assert.Equal(t, attendance.StatusAnnualLeave, got.Status)
	assert.Equal(t, int64(96000), got.DailyWage)

	byID, err := s.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, got.WorkDate, byID.WorkDate)

	_, err = s.FindByID(ctx, "r2")
	assert.ErrorIs(t, err, generic.ErrRecordNotFound)
}

func TestRecords_CloseOutOnlyOnce(t *testing.T) {
	// GIVEN: an open record
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "e1", "0", 0)
	in := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	rec := record("r1", "e1", "2026-03-03", attendance.StatusPresent)
	rec.CheckIn = &in
	require.NoError(t, s.Insert(ctx, rec))

	open, err := s.FindOpen(ctx, rec.WorkDate)
	require.NoError(t, err)
	require.Len(t, open, 1)

	// WHEN: two checkouts arrive
	out := in.Add(9 * time.Hour)
	closing := rec
	closing.CheckOut = &out
	closing.Status = attendance.StatusPresentDeparted
	closing.WorkingMinutes = 480
	closing.DailyWage = 96000

	ok1, err := s.CloseOut(ctx, closing)
	require.NoError(t, err)
	ok2, err := s.CloseOut(ctx, closing)
	require.NoError(t, err)

	// THEN
	assert.True(t, ok1)
	assert.False(t, ok2)

	got, err := s.Find(ctx, "e1", rec.WorkDate)
	require.NoError(t, err)
	require.NotNil(t, got.CheckOut)
	assert.True(t, got.CheckOut.Equal(out))
	assert.True(t, got.CheckIn.Equal(in))
	assert.Equal(t, 480, got.WorkingMinutes)

	open, err = s.FindOpen(ctx, rec.WorkDate)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestRecords_FindOpenByStatus(t *testing.T) {
	// GIVEN: two open records, one already moved to UNCLOSED_ABSENT
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "e1", "0", 0)
	saveEmployee(t, s, "e2", "0", 0)
	in := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	present := record("r1", "e1", "2026-03-03", attendance.StatusPresent)
	present.CheckIn = &in
	unclosed := record("r2", "e2", "2026-03-03", attendance.StatusUnclosedAbsent)
	unclosed.CheckIn = &in
	require.NoError(t, s.Insert(ctx, present))
	require.NoError(t, s.Insert(ctx, unclosed))

	// WHEN
	all, err := s.FindOpen(ctx, present.WorkDate)
	require.NoError(t, err)
	filtered, err := s.FindOpen(ctx, present.WorkDate, attendance.StatusPresent, attendance.StatusLate)
	require.NoError(t, err)

	// THEN
	assert.Len(t, all, 2)
	require.Len(t, filtered, 1)
	assert.Equal(t, generic.EmployeeID("e1"), filtered[0].EmployeeID)
}

func TestRecords_RangesAndDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "a", "0", 0)
	saveEmployee(t, s, "b", "0", 0)
	for i, d := range []string{"2026-03-02", "2026-03-03", "2026-04-01"} {
		require.NoError(t, s.Insert(ctx, record("a"+string(rune('0'+i)), "a", d, attendance.StatusAbsent)))
	}
	require.NoError(t, s.Insert(ctx, record("b0", "b", "2026-03-02", attendance.StatusAbsent)))

	from, to := generic.MonthOf(generic.MustParseDate("2026-03-15"))
	mine, err := s.FindRange(ctx, "a", from, to)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].WorkDate.Before(mine[1].WorkDate))

	all, err := s.FindRangeAll(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, generic.EmployeeID("b"), all[2].EmployeeID)

	require.NoError(t, s.Delete(ctx, "a", generic.MustParseDate("2026-03-02")))
	require.NoError(t, s.Delete(ctx, "a", generic.MustParseDate("2026-03-02")), "missing is not an error")
	_, err = s.Find(ctx, "a", generic.MustParseDate("2026-03-02"))
	assert.ErrorIs(t, err, generic.ErrRecordNotFound)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN
	s := newStore(t)
	ctx := context.Background()
	saveEmployee(t, s, "e1", "1", 0)
	boom := errors.New("boom")

	// WHEN: the unit of work debits leave, writes a record, then fails
	err := s.WithTx(ctx, func(tx generic.Tx) error {
		ok, err := tx.DecrementAnnual(ctx, "e1", decimal.NewFromInt(1))
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, tx.Upsert(ctx, record("r1", "e1", "2026-03-03", attendance.StatusAnnualLeave)))
		return boom
	})

	// THEN: nothing was committed
	assert.ErrorIs(t, err, boom)
	emp, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, emp.AnnualLeave.Equal(decimal.NewFromInt(1)))
	_, err = s.Find(ctx, "e1", generic.MustParseDate("2026-03-03"))
	assert.ErrorIs(t, err, generic.ErrRecordNotFound)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_CalendarView(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveHoliday(ctx, generic.Holiday{
		ID: "h1", Date: generic.MustParseDate("2026-05-05"), Name: "Children's Day",
	}))
	require.NoError(t, s.SaveHoliday(ctx, generic.Holiday{
		ID: "h2", Date: generic.MustParseDate("2020-12-25"), Name: "Christmas", Recurring: true,
	}))

	assert.True(t, s.IsHoliday(generic.MustParseDate("2026-05-05")))
	assert.True(t, s.IsHoliday(generic.MustParseDate("2026-12-25")))
	assert.False(t, s.IsHoliday(generic.MustParseDate("2026-05-06")))

	hs := s.Holidays(2026)
	require.Len(t, hs, 2)
	assert.Equal(t, "2026-12-25", hs[1].Date.String())

	err := s.SaveHoliday(ctx, generic.Holiday{ID: "h3", Date: generic.MustParseDate("2026-05-05"), Name: "Children's Day"})
	assert.ErrorIs(t, err, generic.ErrDuplicateRecord)

	require.NoError(t, s.DeleteHoliday(ctx, "h1"))
	assert.False(t, s.IsHoliday(generic.MustParseDate("2026-05-05")))

	cal := generic.NewWorkweekCalendar(s)
	days := generic.WorkingDays(cal, generic.MustParseDate("2026-12-24"), generic.MustParseDate("2026-12-28"))
	assert.Len(t, days, 2, "24th and 28th; 25th is a holiday, 26-27 a weekend")
}
