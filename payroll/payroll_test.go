package payroll_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/payroll"
)

func TestWage_Floors(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		rate    int64
		want    int64
	}{
		{"full day", 480, 10000, 80000},
		{"half day", 240, 10000, 40000},
		{"fractional floors", 1, 10001, 166},
		{"zero minutes", 0, 10000, 0},
		{"negative clamps", -30, 10000, 0},
		{"zero rate", 480, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payroll.Wage(tt.minutes, tt.rate))
		})
	}
}

func TestMonthlyTotal(t *testing.T) {
	recs := []generic.Record{{DailyWage: 80000}, {DailyWage: 40000}, {DailyWage: 0}}
	assert.Equal(t, int64(120000), payroll.MonthlyTotal(recs))
	assert.Zero(t, payroll.MonthlyTotal(nil))
}

func TestSummarize_IncludesEmployeesWithoutRecords(t *testing.T) {
	employees := []generic.Employee{{ID: "a", Name: "Ana"}, {ID: "b", Name: "Ben"}}
	records := []generic.Record{
		{EmployeeID: "a", Status: "PRESENT_DEPARTED", WorkingMinutes: 480, DailyWage: 80000},
		{EmployeeID: "a", Status: "ANNUAL_LEAVE", WorkingMinutes: 480, DailyWage: 80000},
	}

	got := payroll.Summarize(employees, records)

	require.Len(t, got, 2)
	assert.Equal(t, generic.EmployeeID("a"), got[0].EmployeeID)
	assert.Equal(t, 2, got[0].Days)
	assert.Equal(t, int64(160000), got[0].Total)
	assert.Equal(t, 1, got[0].Statuses["ANNUAL_LEAVE"])
	assert.Zero(t, got[1].Total)

	totals := payroll.Totals(got)
	assert.Equal(t, int64(160000), totals["a"])
	assert.Equal(t, int64(0), totals["b"])
}

func TestExportMonthly_WritesBothSheets(t *testing.T) {
	in := time.Date(2026, 3, 3, 8, 55, 0, 0, time.UTC)
	out := in.Add(9 * time.Hour)
	employees := []generic.Employee{{ID: "a", Name: "Ana"}}
	records := []generic.Record{{
		EmployeeID: "a", WorkDate: generic.MustParseDate("2026-03-03"),
		CheckIn: &in, CheckOut: &out, Status: "PRESENT_DEPARTED",
		WorkingMinutes: 480, DailyWage: 80000,
	}}

	var buf bytes.Buffer
	require.NoError(t, payroll.ExportMonthly(&buf, employees, records, time.UTC))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "2026-03-03", "PRESENT_DEPARTED", "08:55:00", "17:55:00", "480", "80000"}, rows[1])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Ana", summary[1][1])
}
