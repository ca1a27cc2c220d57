package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

func TestPolicy_LeaveEffects(t *testing.T) {
	tests := []struct {
		status       generic.Status
		kind         attendance.LeaveKind
		amount       string
		insufficient generic.Status
	}{
		{attendance.StatusAnnualLeave, attendance.LeaveAnnual, "1", attendance.StatusAnnualLeaveInsufficient},
		{attendance.StatusHalfDayLeave, attendance.LeaveAnnual, "0.5", attendance.StatusAnnualLeaveInsufficient},
		{attendance.StatusSickLeave, attendance.LeaveSick, "1", attendance.StatusSickLeaveUnpaid},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := attendance.Policy(tt.status)
			assert.Equal(t, tt.kind, p.Leave.Kind)
			assert.True(t, p.Leave.Amount.Equal(dec(tt.amount)))
			assert.Equal(t, tt.insufficient, p.Insufficient)
			assert.Equal(t, attendance.DebitFor(tt.status), attendance.CreditFor(tt.status), "credit mirrors debit")
		})
	}
}

func TestPolicy_NoLeaveEffect(t *testing.T) {
	for _, s := range []generic.Status{
		attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusPaidVacation,
		attendance.StatusRegularWorkday, attendance.StatusSickLeaveUnpaid,
		attendance.StatusAnnualLeaveInsufficient, "anything else",
	} {
		assert.True(t, attendance.DebitFor(s).IsZero(), s)
		assert.True(t, attendance.CreditFor(s).IsZero(), s)
	}
}

func TestRules_PaidMinutes(t *testing.T) {
	r := attendance.DefaultRules()
	in := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	out := time.Date(2026, 3, 3, 17, 30, 0, 0, time.UTC)
	closed := generic.Record{CheckIn: &in, CheckOut: &out}
	open := generic.Record{CheckIn: &in}

	assert.Equal(t, 480, r.PaidMinutes(attendance.StatusAnnualLeave, generic.Record{}))
	assert.Equal(t, 240, r.PaidMinutes(attendance.StatusHalfDayLeave, generic.Record{}))
	assert.Equal(t, 480, r.PaidMinutes(attendance.StatusPaidVacation, generic.Record{}))
	assert.Equal(t, 510, r.PaidMinutes(attendance.StatusPresentDeparted, closed))
	assert.Zero(t, r.PaidMinutes(attendance.StatusPresent, open))
	assert.Zero(t, r.PaidMinutes(attendance.StatusAbsent, closed))
	assert.Zero(t, r.PaidMinutes("free text", closed))
}

func TestRules_DepartureAsymmetry(t *testing.T) {
	r := attendance.DefaultRules()
	early := time.Date(2026, 3, 3, 17, 59, 59, 0, time.UTC)
	six := time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, attendance.StatusPresent, r.DepartureStatus(attendance.StatusPresent, early))
	assert.Equal(t, attendance.StatusPresentDeparted, r.DepartureStatus(attendance.StatusPresent, six))
	assert.Equal(t, attendance.StatusLateDeparted, r.DepartureStatus(attendance.StatusLate, early))
	assert.Equal(t, generic.Status("OFFSITE"), r.DepartureStatus("OFFSITE", six))
}

func TestParseTimeOfDay(t *testing.T) {
	c, err := attendance.ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, "09:30", c.String())
	assert.True(t, c.Reached(time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)))
	assert.False(t, c.Reached(time.Date(2026, 1, 1, 9, 29, 59, 0, time.UTC)))

	_, err = attendance.ParseTimeOfDay("9am")
	assert.True(t, generic.IsClientError(err))
}
