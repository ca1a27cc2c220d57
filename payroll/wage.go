/*
Package payroll converts paid minutes into wages and aggregates them per month.

PURPOSE:
  Wage derivation is the one piece of arithmetic shared by check-out, admin
  status changes and the monthly salary views. Keeping it here, free of any
  storage, means every path rounds the same way.

ROUNDING:
  Wage = floor(minutes * hourlyRate / 60). Integer division on int64 floors
  for the non-negative inputs we accept; negative inputs clamp to zero.

SEE ALSO:
  - export.go: spreadsheet export of a month
  - attendance/engine.go: the caller
*/
package payroll

import (
	"sort"

	"github.com/warp/attendance-engine/generic"
)

// Wage returns the pay for minutes worked at hourlyRate per hour.
func Wage(minutes int, hourlyRate int64) int64 {
	if minutes <= 0 || hourlyRate <= 0 {
		return 0
	}
	return int64(minutes) * hourlyRate / 60
}

// MonthlyTotal sums the daily wages of records.
func MonthlyTotal(records []generic.Record) int64 {
	var total int64
	for _, r := range records {
		total += r.DailyWage
	}
	return total
}

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

// EmployeeSummary aggregates one employee's month.
type EmployeeSummary struct {
	EmployeeID     generic.EmployeeID
	Name           string
	Days           int
	WorkingMinutes int
	Total          int64
	Statuses       map[generic.Status]int
}

// Summarize groups records by employee. Every employee in employees appears
// in the result, with zero totals when they have no records; records of
// unknown employees are still summarized under their ID. Output is ordered
// by employee ID.
func Summarize(employees []generic.Employee, records []generic.Record) []EmployeeSummary {
	byID := make(map[generic.EmployeeID]*EmployeeSummary, len(employees))
	for _, e := range employees {
		byID[e.ID] = &EmployeeSummary{EmployeeID: e.ID, Name: e.Name, Statuses: map[generic.Status]int{}}
	}
	for _, r := range records {
		s, ok := byID[r.EmployeeID]
		if !ok {
			s = &EmployeeSummary{EmployeeID: r.EmployeeID, Statuses: map[generic.Status]int{}}
			byID[r.EmployeeID] = s
		}
		s.Days++
		s.WorkingMinutes += r.WorkingMinutes
		s.Total += r.DailyWage
		s.Statuses[r.Status]++
	}

	out := make([]EmployeeSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

// Totals reduces summaries to employee -> month-to-date wage.
func Totals(summaries []EmployeeSummary) map[generic.EmployeeID]int64 {
	out := make(map[generic.EmployeeID]int64, len(summaries))
	for _, s := range summaries {
		out[s.EmployeeID] = s.Total
	}
	return out
}
