/*
Package generic provides the persistence-facing core of the attendance engine.

PURPOSE:
  This package contains the domain primitives shared by every layer: the
  employee with its leave balances, the per-day attendance record, the
  calendar day type, and the contracts that storage implementations fulfil.
  Business rules (which status debits which leave, how pay is derived) live
  in the attendance package; this package only knows how the data looks.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: identity, hourly rate, annual leave (decimal), sick leave (int)
  - Record: one attendance row per (employee, work date)
  - Status: the string persisted and sent to clients
  - LeaveBalance: snapshot of both balances after an operation

DESIGN PRINCIPLES:
  1. Precision: annual leave uses decimal.Decimal (granularity 0.5 day)
  2. Type Safety: EmployeeID and RecordID are distinct string types
  3. Wire compatibility: Status is a plain string on the wire and in the DB

SEE ALSO:
  - time.go: Date and holiday calendar
  - store.go: RecordStore, EmployeeStore, LeaveLedger contracts
  - attendance/status.go: status policy table
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RecordID string

// Status is the attendance status as stored and transmitted.
// Known statuses carry a policy (see attendance.Policy); any other value is
// accepted as free text with no leave or pay effect.
type Status string

func (s Status) String() string { return string(s) }
func (s Status) IsZero() bool   { return s == "" }

// =============================================================================
// EMPLOYEE - Owner of the leave balances
// =============================================================================

type Employee struct {
	ID          EmployeeID
	Name        string
	HourlyRate  int64
	AnnualLeave decimal.Decimal // days, multiples of 0.5, never negative
	SickLeave   int             // days, never negative
	CreatedAt   time.Time
}

// Balance returns the employee's current leave balances.
func (e Employee) Balance() LeaveBalance {
	return LeaveBalance{Annual: e.AnnualLeave, Sick: e.SickLeave}
}

// LeaveBalance is the pair of balances reported after every reconciliation.
type LeaveBalance struct {
	Annual decimal.Decimal
	Sick   int
}

// Default balances granted to a new employee when none are supplied.
var (
	DefaultAnnualLeave = decimal.NewFromInt(2)
	DefaultSickLeave   = 2
)

// =============================================================================
// ATTENDANCE RECORD
// =============================================================================

// Record is the attendance entry for one employee on one calendar day.
//
// INVARIANT: at most one Record exists per (EmployeeID, WorkDate). Stores
// enforce this with a uniqueness constraint, not application locking.
type Record struct {
	ID             RecordID
	EmployeeID     EmployeeID
	WorkDate       Date
	CheckIn        *time.Time
	CheckOut       *time.Time
	Status         Status
	WorkingMinutes int
	DailyWage      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOpen reports whether the record has a check-in without a check-out.
func (r Record) IsOpen() bool { return r.CheckIn != nil && r.CheckOut == nil }

// HasStatus reports whether the record holds one of statuses. An empty list
// matches every status.
func (r Record) HasStatus(statuses ...Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (r Record) Clone() Record {
	c := r
	if r.CheckIn != nil {
		t := *r.CheckIn
		c.CheckIn = &t
	}
	if r.CheckOut != nil {
		t := *r.CheckOut
		c.CheckOut = &t
	}
	return c
}
