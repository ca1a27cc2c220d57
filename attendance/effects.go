package attendance

import (
	"context"
	"fmt"

	"github.com/warp/attendance-engine/generic"
)

// DebitFor returns the leave consumed by storing status.
func DebitFor(status generic.Status) LeaveEffect {
	return Policy(status).Leave
}

// CreditFor returns the leave to give back when a record holding status is
// replaced or deleted. Fallback statuses never consumed anything, so a
// downgraded record credits nothing.
func CreditFor(status generic.Status) LeaveEffect {
	return Policy(status).Leave
}

// debit applies e through the ledger. It reports false when the balance
// could not cover it; nothing is changed in that case.
func debit(ctx context.Context, ledger generic.LeaveLedger, id generic.EmployeeID, e LeaveEffect) (bool, error) {
	switch e.Kind {
	case LeaveAnnual:
		ok, err := ledger.DecrementAnnual(ctx, id, e.Amount)
		if err != nil {
			return false, fmt.Errorf("debit annual leave: %w", err)
		}
		return ok, nil
	case LeaveSick:
		ok, err := ledger.DecrementSick(ctx, id)
		if err != nil {
			return false, fmt.Errorf("debit sick leave: %w", err)
		}
		return ok, nil
	default:
		return true, nil
	}
}

func credit(ctx context.Context, ledger generic.LeaveLedger, id generic.EmployeeID, e LeaveEffect) error {
	switch e.Kind {
	case LeaveAnnual:
		if err := ledger.IncrementAnnual(ctx, id, e.Amount); err != nil {
			return fmt.Errorf("credit annual leave: %w", err)
		}
	case LeaveSick:
		if err := ledger.IncrementSick(ctx, id); err != nil {
			return fmt.Errorf("credit sick leave: %w", err)
		}
	}
	return nil
}
