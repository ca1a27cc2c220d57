/*
store.go - Persistence contracts for records, employees and leave balances

PURPOSE:
  Defines the interface between the reconciliation engine and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  RecordStore:   attendance records, one per (employee, work date)
  EmployeeStore: employee directory
  LeaveLedger:   guarded balance mutations (see ledger.go)
  Tx:            all three, bound to one unit of work
  TxStore:       Tx plus WithTx for atomic multi-step reconciliation

UNIQUENESS:
  Insert MUST fail with ErrDuplicateRecord when a record already exists for
  the same (employee, work date). Implementations enforce this with a
  constraint so that two concurrent check-ins cannot both succeed.

CONDITIONAL CLOSE:
  CloseOut writes the checkout only while the stored record is still open
  and reports whether it did. A false return means another request closed
  it first.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: LeaveLedger contract
  - attendance/engine.go: the only writer
*/
package generic

import "context"

// =============================================================================
// RECORD STORE
// =============================================================================

type RecordStore interface {
	// Find returns the record for (employee, date) or ErrRecordNotFound.
	Find(ctx context.Context, employeeID EmployeeID, date Date) (*Record, error)

	// FindByID returns the record with the given ID or ErrRecordNotFound.
	FindByID(ctx context.Context, id RecordID) (*Record, error)

	// FindRange returns the employee's records in [from, to] ordered by date.
	FindRange(ctx context.Context, employeeID EmployeeID, from, to Date) ([]Record, error)

	// FindRangeAll returns all employees' records in [from, to], ordered by
	// employee then date.
	FindRangeAll(ctx context.Context, from, to Date) ([]Record, error)

	// FindOpen returns records on date with a check-in and no check-out.
	// When statuses are given only records holding one of them match, so a
	// record whose status was already moved off them is not returned again.
	// Records with no check-in are never open, even without a check-out.
	FindOpen(ctx context.Context, date Date, statuses ...Status) ([]Record, error)

	// Insert creates a record. Returns ErrDuplicateRecord on conflict.
	Insert(ctx context.Context, rec Record) error

	// Upsert creates or replaces the record for (employee, work date).
	Upsert(ctx context.Context, rec Record) error

	// CloseOut sets check-out, status, minutes and wage only if the stored
	// record has no check-out yet. Returns false when nothing was updated.
	CloseOut(ctx context.Context, rec Record) (bool, error)

	// Delete removes the record for (employee, date). Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, employeeID EmployeeID, date Date) error
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

type EmployeeStore interface {
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	SaveEmployee(ctx context.Context, emp Employee) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// Tx is the view of storage available inside one unit of work.
type Tx interface {
	RecordStore
	EmployeeStore
	LeaveLedger
}

// TxStore wraps Tx with transaction support.
type TxStore interface {
	Tx

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// HolidayStore persists company-declared holidays. It also satisfies
// HolidayCalendar so it can be merged into a MultiCalendar.
type HolidayStore interface {
	HolidayCalendar
	SaveHoliday(ctx context.Context, h Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	ListHolidays(ctx context.Context, from, to Date) ([]Holiday, error)
}
