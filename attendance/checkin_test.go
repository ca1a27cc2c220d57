package attendance_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

func TestCheckIn_LateBoundaryInclusive(t *testing.T) {
	tests := []struct {
		name         string
		h, m, s      int
		expectStatus generic.Status
	}{
		{"exactly nine is late", 9, 0, 0, attendance.StatusLate},
		{"one second before is present", 8, 59, 59, attendance.StatusPresent},
		{"early morning", 7, 30, 0, attendance.StatusPresent},
		{"afternoon", 13, 0, 0, attendance.StatusLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.addEmployee(t, "e1", "2", 2, 12000)
			env.at(tt.h, tt.m, tt.s)

			rec, err := env.engine.CheckIn(context.Background(), "e1")

			require.NoError(t, err)
			assert.Equal(t, tt.expectStatus, rec.Status)
			assert.NotNil(t, rec.CheckIn)
			assert.Nil(t, rec.CheckOut)
			assert.Zero(t, rec.DailyWage)
			assert.Equal(t, "2026-03-03", rec.WorkDate.String())
		})
	}
}

func TestCheckIn_NotifiesCheckIn(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee(t, "e1", "2", 2, 12000)
	env.at(8, 45, 10)

	_, err := env.engine.CheckIn(context.Background(), "e1")
	require.NoError(t, err)

	sent := env.notifier.forEmployee("e1")
	require.Len(t, sent, 1)
	assert.Equal(t, attendance.EventCheckIn, sent[0].Type)
	assert.Equal(t, attendance.StatusPresent, sent[0].Status)
	assert.Equal(t, "08:45:10", sent[0].Time)
}

func TestCheckIn_DuplicateIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "e1", "2", 2, 12000)

	_, err := env.engine.CheckIn(ctx, "e1")
	require.NoError(t, err)
	_, err = env.engine.CheckIn(ctx, "e1")

	assert.ErrorIs(t, err, generic.ErrAlreadyCheckedIn)
	assert.True(t, generic.IsConflict(err))
	var conflict *generic.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, generic.EmployeeID("e1"), conflict.EmployeeID)
}

func TestCheckIn_AfterAdminStatusIsConflict(t *testing.T) {
	// GIVEN: admin already marked today as annual leave
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "e1", "2", 2, 12000)
	_, err := env.engine.ApplyStatus(ctx, "e1", env.engine.Today(), attendance.StatusAnnualLeave)
	require.NoError(t, err)

	// WHEN/THEN: a record already exists for today
	_, err = env.engine.CheckIn(ctx, "e1")
	assert.ErrorIs(t, err, generic.ErrAlreadyCheckedIn)
}

func TestCheckIn_UnknownEmployee(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.CheckIn(context.Background(), "ghost")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}

func TestCheckOut_PaidMinutesAndStatus(t *testing.T) {
	tests := []struct {
		name        string
		in, out     [3]int
		wantMinutes int
		wantStatus  generic.Status
	}{
		{"before six keeps PRESENT", [3]int{8, 0, 0}, [3]int{17, 30, 0}, 510, attendance.StatusPresent},
		{"six or later departs", [3]int{8, 0, 0}, [3]int{18, 0, 0}, 540, attendance.StatusPresentDeparted},
		{"late always departs", [3]int{9, 30, 0}, [3]int{12, 0, 0}, 90, attendance.StatusLateDeparted},
		{"shorter than break floors at zero", [3]int{8, 0, 0}, [3]int{8, 40, 0}, 0, attendance.StatusPresent},
		{"partial minute truncates", [3]int{8, 0, 0}, [3]int{10, 0, 59}, 60, attendance.StatusPresent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			env.addEmployee(t, "e1", "2", 2, 12000)

			env.at(tt.in[0], tt.in[1], tt.in[2])
			_, err := env.engine.CheckIn(ctx, "e1")
			require.NoError(t, err)

			env.at(tt.out[0], tt.out[1], tt.out[2])
			rec, err := env.engine.CheckOut(ctx, "e1")

			require.NoError(t, err)
			assert.Equal(t, tt.wantMinutes, rec.WorkingMinutes)
			assert.Equal(t, int64(tt.wantMinutes)*12000/60, rec.DailyWage)
			assert.Equal(t, tt.wantStatus, rec.Status)

			stored, err := env.store.Find(ctx, "e1", rec.WorkDate)
			require.NoError(t, err)
			assert.Equal(t, rec.Status, stored.Status)
			assert.NotNil(t, stored.CheckOut)
		})
	}
}

func TestCheckOut_NotifiesWageAndSalary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "e1", "2", 2, 12000)
	env.at(8, 0, 0)
	_, err := env.engine.CheckIn(ctx, "e1")
	require.NoError(t, err)
	env.notifier.reset()

	env.at(17, 30, 0)
	_, err = env.engine.CheckOut(ctx, "e1")
	require.NoError(t, err)

	sent := env.notifier.forEmployee("e1")
	require.Len(t, sent, 1)
	assert.Equal(t, attendance.EventCheckOut, sent[0].Type)
	require.NotNil(t, sent[0].DailyWage)
	assert.Equal(t, int64(102000), *sent[0].DailyWage)
	require.NotNil(t, sent[0].WorkingMinutes)
	assert.Equal(t, 510, *sent[0].WorkingMinutes)

	admin := env.notifier.forAdmin()
	require.Len(t, admin, 1)
	assert.Equal(t, attendance.EventSalaryUpdate, admin[0].Type)
	assert.Equal(t, int64(102000), *admin[0].NewTotalSalary)
}

func TestCheckOut_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "e1", "2", 2, 12000)

	// no record yet
	_, err := env.engine.CheckOut(ctx, "e1")
	assert.ErrorIs(t, err, generic.ErrRecordNotFound)

	// already checked out
	_, err = env.engine.CheckIn(ctx, "e1")
	require.NoError(t, err)
	_, err = env.engine.CheckOut(ctx, "e1")
	require.NoError(t, err)
	_, err = env.engine.CheckOut(ctx, "e1")
	assert.ErrorIs(t, err, generic.ErrAlreadyCheckedOut)
	assert.True(t, generic.IsConflict(err))
}

func TestCheckOut_LeaveRecordWithoutCheckIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addEmployee(t, "e1", "2", 2, 12000)
	_, err := env.engine.ApplyStatus(ctx, "e1", env.engine.Today(), attendance.StatusAnnualLeave)
	require.NoError(t, err)

	_, err = env.engine.CheckOut(ctx, "e1")

	assert.ErrorIs(t, err, generic.ErrRecordNotFound)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestCheckIn_ConcurrentOnlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee(t, "e1", "2", 2, 12000)

	var wg sync.WaitGroup
	var ok, conflict atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.CheckIn(context.Background(), "e1")
			switch {
			case err == nil:
				ok.Add(1)
			case generic.IsConflict(err):
				conflict.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(19), conflict.Load())
}

func TestCheckOut_ConcurrentOnlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee(t, "e1", "2", 2, 12000)
	env.at(8, 0, 0)
	_, err := env.engine.CheckIn(context.Background(), "e1")
	require.NoError(t, err)
	env.at(18, 30, 0)

	var wg sync.WaitGroup
	var ok, conflict atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.CheckOut(context.Background(), "e1")
			switch {
			case err == nil:
				ok.Add(1)
			case generic.IsConflict(err):
				conflict.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(19), conflict.Load())
}
