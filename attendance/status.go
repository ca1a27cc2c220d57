/*
Package attendance implements the attendance and leave reconciliation engine.

PURPOSE:
  Every path that changes an attendance record goes through Engine: the
  employee's own check-in and check-out, an admin setting a status for one
  day or a range, deleting records, and the scheduled closeout jobs. The
  engine keeps three things consistent with each other:
    - the record's status
    - the employee's annual and sick leave balances
    - the record's paid minutes and daily wage

RECONCILIATION:
  Replacing status OLD with NEW on a day is always:
    1. credit back whatever OLD consumed (CreditFor)
    2. try to debit whatever NEW consumes (DebitFor)
    3. if the debit fails, store NEW's unpaid fallback instead
    4. derive paid minutes and wage from the stored status
  Applying the status a record already has is a no-op. Steps 1-4 run in
  one store transaction.

KEY CONCEPTS IN THIS FILE (status.go):
  - Status constants as persisted and sent to clients
  - StatusPolicy: the declarative leave/pay effect of each status

SEE ALSO:
  - effects.go: CreditFor / DebitFor over the ledger
  - rules.go: cutoffs, break, and paid-minute derivation
  - engine.go: the reconciliation itself
*/
package attendance

import (
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// STATUSES
// =============================================================================

const (
	// Set by check-in/check-out.
	StatusPresent         generic.Status = "PRESENT"
	StatusLate            generic.Status = "LATE"
	StatusPresentDeparted generic.Status = "PRESENT_DEPARTED"
	StatusLateDeparted    generic.Status = "LATE_DEPARTED"

	// Leave statuses. These consume balance.
	StatusAnnualLeave  generic.Status = "ANNUAL_LEAVE"
	StatusHalfDayLeave generic.Status = "HALF_DAY_LEAVE"
	StatusSickLeave    generic.Status = "SICK_LEAVE"

	// Fallbacks stored when the balance cannot cover the leave.
	StatusSickLeaveUnpaid         generic.Status = "SICK_LEAVE_UNPAID"
	StatusAnnualLeaveInsufficient generic.Status = "ANNUAL_LEAVE_INSUFFICIENT"

	// Paid full day without touching any balance.
	StatusPaidVacation   generic.Status = "PAID_VACATION"
	StatusRegularWorkday generic.Status = "REGULAR_WORKDAY"

	// Unpaid.
	StatusAbsent         generic.Status = "ABSENT"
	StatusEarlyLeave     generic.Status = "EARLY_LEAVE"
	StatusUnclosedAbsent generic.Status = "UNCLOSED_ABSENT"
	StatusUnclosedLate   generic.Status = "UNCLOSED_LATE"
)

// =============================================================================
// POLICY TABLE
// =============================================================================

// LeaveKind names the balance a status draws on.
type LeaveKind int

const (
	LeaveNone LeaveKind = iota
	LeaveAnnual
	LeaveSick
)

func (k LeaveKind) String() string {
	switch k {
	case LeaveAnnual:
		return "annual"
	case LeaveSick:
		return "sick"
	default:
		return "none"
	}
}

// LeaveEffect is an amount of one balance. Sick leave always moves by one
// day; Amount is only meaningful for annual leave.
type LeaveEffect struct {
	Kind   LeaveKind
	Amount decimal.Decimal
}

func (e LeaveEffect) IsZero() bool { return e.Kind == LeaveNone }

// PayPolicy selects how paid minutes are derived for a status.
type PayPolicy int

const (
	PayNone    PayPolicy = iota // always 0 minutes
	PayFullDay                  // Rules.FullDayMinutes
	PayHalfDay                  // Rules.HalfDayMinutes
	PayWorked                   // elapsed check-in to check-out minus break
)

// StatusPolicy is the declarative effect of storing a status.
type StatusPolicy struct {
	Leave LeaveEffect
	Pay   PayPolicy
	// Insufficient is stored instead when Leave cannot be debited.
	Insufficient generic.Status
}

var (
	oneDay  = decimal.NewFromInt(1)
	halfDay = decimal.NewFromFloat(0.5)
)

var policies = map[generic.Status]StatusPolicy{
	StatusPresent:         {Pay: PayWorked},
	StatusLate:            {Pay: PayWorked},
	StatusPresentDeparted: {Pay: PayWorked},
	StatusLateDeparted:    {Pay: PayWorked},

	StatusAnnualLeave: {
		Leave:        LeaveEffect{Kind: LeaveAnnual, Amount: oneDay},
		Pay:          PayFullDay,
		Insufficient: StatusAnnualLeaveInsufficient,
	},
	StatusHalfDayLeave: {
		Leave:        LeaveEffect{Kind: LeaveAnnual, Amount: halfDay},
		Pay:          PayHalfDay,
		Insufficient: StatusAnnualLeaveInsufficient,
	},
	StatusSickLeave: {
		Leave:        LeaveEffect{Kind: LeaveSick, Amount: oneDay},
		Pay:          PayFullDay,
		Insufficient: StatusSickLeaveUnpaid,
	},

	StatusPaidVacation:   {Pay: PayFullDay},
	StatusRegularWorkday: {Pay: PayFullDay},
}

// Policy returns the effect of status. Statuses outside the table, including
// the unpaid fallbacks and any free text, have no leave effect and no pay.
func Policy(status generic.Status) StatusPolicy {
	return policies[status]
}

// KnownStatuses lists every status with a table entry or a defined meaning.
func KnownStatuses() []generic.Status {
	return []generic.Status{
		StatusPresent, StatusLate, StatusPresentDeparted, StatusLateDeparted,
		StatusAnnualLeave, StatusHalfDayLeave, StatusSickLeave,
		StatusSickLeaveUnpaid, StatusAnnualLeaveInsufficient,
		StatusPaidVacation, StatusRegularWorkday,
		StatusAbsent, StatusEarlyLeave, StatusUnclosedAbsent, StatusUnclosedLate,
	}
}
