/*
ledger.go - Guarded leave-balance mutations

PURPOSE:
  The LeaveLedger is the only way balances change. Every decrement is a
  single check-and-set so two concurrent reconciliations for the same
  employee can never drive a balance below zero.

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: a decrement that would go below zero changes nothing
     and reports false; the caller falls back to an unpaid status.
  2. ATOMIC: the balance check and the write are one statement (SQL) or
     one critical section (memory).
  3. GRANULARITY: annual leave moves in multiples of 0.5 day.

EXAMPLE FLOW:
  1. Employee has 1.0 annual day
  2. Admin applies ANNUAL_LEAVE on Monday: DecrementAnnual(1.0) -> true, 0.0
  3. Admin applies ANNUAL_LEAVE on Tuesday: DecrementAnnual(1.0) -> false
     (record becomes ANNUAL_LEAVE_INSUFFICIENT)
  4. Admin cancels Monday: IncrementAnnual(1.0) -> 1.0

SEE ALSO:
  - store.go: Tx bundles the ledger with record storage
  - attendance/effects.go: which status moves which balance
*/
package generic

import (
	"context"

	"github.com/shopspring/decimal"
)

// LeaveLedger mutates employee leave balances.
type LeaveLedger interface {
	// DecrementAnnual subtracts amount only if the balance covers it.
	DecrementAnnual(ctx context.Context, id EmployeeID, amount decimal.Decimal) (bool, error)

	// IncrementAnnual returns amount to the balance.
	IncrementAnnual(ctx context.Context, id EmployeeID, amount decimal.Decimal) error

	// DecrementSick subtracts one day only if the balance is positive.
	DecrementSick(ctx context.Context, id EmployeeID) (bool, error)

	// IncrementSick returns one day to the balance.
	IncrementSick(ctx context.Context, id EmployeeID) error
}

// HalfDays converts an annual-leave amount to whole half-day units, the
// fixed-point representation stores compare on.
func HalfDays(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(2)).Floor().IntPart()
}

// FromHalfDays is the inverse of HalfDays.
func FromHalfDays(halves int64) decimal.Decimal {
	return decimal.New(halves, 0).Div(decimal.NewFromInt(2))
}
