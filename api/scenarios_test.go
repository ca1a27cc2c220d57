/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Employees are created
	- Leave balances match the applied statuses
	- Downgrades happen where balances run out
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

func newScenarioServer(t *testing.T) *testServer {
	t.Helper()
	ts := newTestServer(t, tuesday(10, 0))
	h := NewHandler(ts.engine, ts.store, nil, nil)
	h.Resetter = ts.store
	ts.router = NewRouter(h, nil)
	return ts
}

func TestScenario_LeaveMonth(t *testing.T) {
	// GIVEN: leftover data that the load must wipe
	ts := newScenarioServer(t)
	ts.addEmployee(t, "stale", "Stale", 1, "0", 0)

	// WHEN
	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "leave-month"})

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ctx := context.Background()

	emps, err := ts.store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, emps, 3)

	kim, err := ts.store.GetEmployee(ctx, "emp-kim")
	require.NoError(t, err)
	assert.True(t, kim.AnnualLeave.Equal(decimal.RequireFromString("0.5")), kim.AnnualLeave.String())
	assert.Equal(t, 1, kim.SickLeave)

	lee, err := ts.store.GetEmployee(ctx, "emp-lee")
	require.NoError(t, err)
	assert.Zero(t, lee.SickLeave)
	third, err := ts.store.Find(ctx, "emp-lee", generic.MustParseDate("2026-03-09"))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusSickLeaveUnpaid, third.Status)

	park, err := ts.store.GetEmployee(ctx, "emp-park")
	require.NoError(t, err)
	assert.True(t, park.AnnualLeave.IsZero())
	denied, err := ts.store.Find(ctx, "emp-park", generic.MustParseDate("2026-03-03"))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAnnualLeaveInsufficient, denied.Status)
}

func TestScenario_BatchVacation(t *testing.T) {
	ts := newScenarioServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "batch-vacation"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Sun 3/8..Sat 3/14 holds five working days.
	recs, err := ts.store.FindRangeAll(context.Background(), generic.MustParseDate("2026-03-01"), generic.MustParseDate("2026-03-31"))
	require.NoError(t, err)
	assert.Len(t, recs, 15)
	for _, r := range recs {
		assert.Equal(t, attendance.StatusPaidVacation, r.Status)
	}
}

func TestScenario_UnknownAndReset(t *testing.T) {
	ts := newScenarioServer(t)
	ts.addEmployee(t, "e1", "Kim", 1, "0", 0)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The unknown scenario left data in place.
	_, err := ts.store.GetEmployee(context.Background(), "e1")
	require.NoError(t, err)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err = ts.store.GetEmployee(context.Background(), "e1")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)

	rec = ts.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScenarioDTO](t, rec), 3)
}

func TestScenario_DisabledWithoutResetter(t *testing.T) {
	ts := newTestServer(t, tuesday(10, 0))

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "new-team"})

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
