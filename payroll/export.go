package payroll

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/attendance-engine/generic"
)

const (
	recordsSheet = "Records"
	summarySheet = "Summary"
)

var (
	recordHeaders  = []string{"Employee", "Date", "Status", "Check In", "Check Out", "Minutes", "Daily Wage"}
	summaryHeaders = []string{"Employee", "Name", "Days", "Minutes", "Total"}
)

// ExportMonthly writes an .xlsx workbook with one row per record and a
// per-employee summary sheet.
func ExportMonthly(w io.Writer, employees []generic.Employee, records []generic.Record, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), recordsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, recordsSheet, recordHeaders); err != nil {
		return err
	}
	for i, r := range records {
		row := []any{
			string(r.EmployeeID),
			r.WorkDate.String(),
			r.Status.String(),
			clock(r.CheckIn, loc),
			clock(r.CheckOut, loc),
			r.WorkingMinutes,
			r.DailyWage,
		}
		if err := writeRow(f, recordsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeHeader(f, summarySheet, summaryHeaders); err != nil {
		return err
	}
	for i, s := range Summarize(employees, records) {
		row := []any{string(s.EmployeeID), s.Name, s.Days, s.WorkingMinutes, s.Total}
		if err := writeRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return writeRow(f, sheet, 1, row)
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	for col, val := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return fmt.Errorf("failed to set cell value: %w", err)
		}
	}
	return nil
}

func clock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc != nil {
		return t.In(loc).Format("15:04:05")
	}
	return t.Format("15:04:05")
}
