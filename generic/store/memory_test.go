package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
)

func seedEmployee(t *testing.T, m *store.TxMemory, id string, annual string, sick int) {
	t.Helper()
	require.NoError(t, m.SaveEmployee(context.Background(), generic.Employee{
		ID:          generic.EmployeeID(id),
		Name:        id,
		HourlyRate:  10000,
		AnnualLeave: decimal.RequireFromString(annual),
		SickLeave:   sick,
	}))
}

func TestMemory_InsertEnforcesUniqueness(t *testing.T) {
	m := store.NewTxMemory()
	ctx := context.Background()
	day := generic.MustParseDate("2026-03-03")

	require.NoError(t, m.Insert(ctx, generic.Record{ID: "r1", EmployeeID: "e1", WorkDate: day, Status: "PRESENT"}))
	err := m.Insert(ctx, generic.Record{ID: "r2", EmployeeID: "e1", WorkDate: day, Status: "LATE"})

	assert.ErrorIs(t, err, generic.ErrDuplicateRecord)
	rec, err := m.Find(ctx, "e1", day)
	require.NoError(t, err)
	assert.Equal(t, generic.Status("PRESENT"), rec.Status)
}

func TestMemory_UpsertKeepsIdentity(t *testing.T) {
	m := store.NewTxMemory()
	ctx := context.Background()
	day := generic.MustParseDate("2026-03-03")

	require.NoError(t, m.Upsert(ctx, generic.Record{ID: "r1", EmployeeID: "e1", WorkDate: day, Status: "PRESENT"}))
	require.NoError(t, m.Upsert(ctx, generic.Record{ID: "r2", EmployeeID: "e1", WorkDate: day, Status: "SICK_LEAVE"}))

	rec, err := m.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, generic.Status("SICK_LEAVE"), rec.Status)
	_, err = m.FindByID(ctx, "r2")
	assert.ErrorIs(t, err, generic.ErrRecordNotFound)
}

func TestMemory_CloseOutOnlyOnce(t *testing.T) {
	m := store.NewTxMemory()
	ctx := context.Background()
	day := generic.MustParseDate("2026-03-03")
	in := time.Date(2026, 3, 3, 8, 50, 0, 0, time.UTC)
	out := in.Add(9 * time.Hour)

	require.NoError(t, m.Insert(ctx, generic.Record{ID: "r1", EmployeeID: "e1", WorkDate: day, CheckIn: &in, Status: "PRESENT"}))

	ok, err := m.CloseOut(ctx, generic.Record{EmployeeID: "e1", WorkDate: day, CheckOut: &out, Status: "PRESENT_DEPARTED", WorkingMinutes: 480})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.CloseOut(ctx, generic.Record{EmployeeID: "e1", WorkDate: day, CheckOut: &out, Status: "PRESENT_DEPARTED"})
	require.NoError(t, err)
	assert.False(t, ok, "second close must not update")

	open, err := m.FindOpen(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMemory_FindOpenByStatus(t *testing.T) {
	m := store.NewTxMemory()
	ctx := context.Background()
	day := generic.MustParseDate("2026-03-03")
	in := time.Date(2026, 3, 3, 8, 50, 0, 0, time.UTC)
	require.NoError(t, m.Insert(ctx, generic.Record{ID: "r1", EmployeeID: "e1", WorkDate: day, CheckIn: &in, Status: "LATE"}))
	require.NoError(t, m.Insert(ctx, generic.Record{ID: "r2", EmployeeID: "e2", WorkDate: day, CheckIn: &in, Status: "UNCLOSED_LATE"}))

	all, err := m.FindOpen(ctx, day)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := m.FindOpen(ctx, day, "PRESENT", "LATE")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, generic.EmployeeID("e1"), open[0].EmployeeID)
}

func TestMemory_GuardedDecrements(t *testing.T) {
	m := store.NewTxMemory()
	ctx := context.Background()
	seedEmployee(t, m, "e1", "0.5", 0)

	ok, err := m.DecrementAnnual(ctx, "e1", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, ok, "1.0 exceeds 0.5")

	ok, err = m.DecrementAnnual(ctx, "e1", decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.DecrementSick(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)

	emp, err := m.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, emp.AnnualLeave.IsZero())
	assert.Equal(t, 0, emp.SickLeave)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: an employee with 2 annual days
	m := store.NewTxMemory()
	ctx := context.Background()
	seedEmployee(t, m, "e1", "2", 2)
	day := generic.MustParseDate("2026-03-03")

	// WHEN: a transaction debits leave, writes a record, then fails
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx generic.Tx) error {
		if _, err := tx.DecrementAnnual(ctx, "e1", decimal.NewFromInt(1)); err != nil {
			return err
		}
		if err := tx.Insert(ctx, generic.Record{ID: "r1", EmployeeID: "e1", WorkDate: day, Status: "ANNUAL_LEAVE"}); err != nil {
			return err
		}
		return boom
	})

	// THEN: nothing is visible afterwards
	assert.ErrorIs(t, err, boom)
	emp, err := m.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, emp.AnnualLeave.Equal(decimal.NewFromInt(2)))
	_, err = m.Find(ctx, "e1", day)
	assert.ErrorIs(t, err, generic.ErrRecordNotFound)
}
