package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/generic"
)

// EventType is the "type" field of every notification.
type EventType string

const (
	EventCheckIn      EventType = "CHECK_IN"
	EventCheckOut     EventType = "CHECK_OUT"
	EventAdminUpdate  EventType = "ADMIN_UPDATE"
	EventLeaveUpdate  EventType = "LEAVE_UPDATE"
	EventSalaryUpdate EventType = "SALARY_UPDATE"
	EventAbsent       EventType = "ABSENT"
)

// Payload is the JSON message pushed to subscribers. Optional fields are
// pointers so that a zero balance or wage is still sent.
type Payload struct {
	Type               EventType          `json:"type"`
	EmployeeID         generic.EmployeeID `json:"employeeId,omitempty"`
	Date               string             `json:"date,omitempty"`
	Status             generic.Status     `json:"status,omitempty"`
	Time               string             `json:"time,omitempty"`
	RemainingLeave     *decimal.Decimal   `json:"remainingLeave,omitempty"`
	RemainingSickLeave *int               `json:"remainingSickLeave,omitempty"`
	DailyWage          *int64             `json:"dailyWage,omitempty"`
	WorkingMinutes     *int               `json:"workingMinutes,omitempty"`
	MonthlyLogs        []RecordView       `json:"monthlyLogs,omitempty"`
	NewTotalSalary     *int64             `json:"newTotalSalary,omitempty"`
}

// Notifier publishes engine events. Implementations must not block the
// caller on slow subscribers and never report delivery failures.
type Notifier interface {
	PublishEmployeeUpdate(ctx context.Context, employeeID generic.EmployeeID, p Payload)
	PublishAdminUpdate(ctx context.Context, p Payload)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) PublishEmployeeUpdate(context.Context, generic.EmployeeID, Payload) {}
func (NopNotifier) PublishAdminUpdate(context.Context, Payload)                        {}

// =============================================================================
// RECORD VIEW - JSON shape of a record in payloads and API responses
// =============================================================================

type RecordView struct {
	ID             generic.RecordID   `json:"id"`
	EmployeeID     generic.EmployeeID `json:"employeeId"`
	WorkDate       string             `json:"workDate"`
	CheckIn        string             `json:"checkIn,omitempty"`
	CheckOut       string             `json:"checkOut,omitempty"`
	Status         generic.Status     `json:"status"`
	WorkingMinutes int                `json:"workingMinutes"`
	DailyWage      int64              `json:"dailyWage"`
}

// ViewOf renders rec with check times as HH:MM:SS in loc.
func ViewOf(rec generic.Record, loc *time.Location) RecordView {
	return RecordView{
		ID:             rec.ID,
		EmployeeID:     rec.EmployeeID,
		WorkDate:       rec.WorkDate.String(),
		CheckIn:        clockString(rec.CheckIn, loc),
		CheckOut:       clockString(rec.CheckOut, loc),
		Status:         rec.Status,
		WorkingMinutes: rec.WorkingMinutes,
		DailyWage:      rec.DailyWage,
	}
}

func ViewsOf(recs []generic.Record, loc *time.Location) []RecordView {
	out := make([]RecordView, len(recs))
	for i, r := range recs {
		out[i] = ViewOf(r, loc)
	}
	return out
}

func clockString(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc != nil {
		return t.In(loc).Format("15:04:05")
	}
	return t.Format("15:04:05")
}
