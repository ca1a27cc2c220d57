/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence contract the attendance engine needs using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences (ON CONFLICT, printf).

INTERFACES IMPLEMENTED:
  generic.TxStore:      records, employees, leave ledger, WithTx
  generic.HolidayStore: company holidays, usable as a HolidayCalendar

KEY TABLES:
  employees:          identity, hourly rate, leave balances
  attendance_records: one row per (employee_id, work_date)
  holidays:           declared holidays, optionally recurring

UNIQUENESS:
  idx_records_employee_date is the only thing standing between two
  simultaneous check-ins for the same employee. Insert maps its violation
  to generic.ErrDuplicateRecord.

LEAVE BALANCES:
  annual_leave_halves is the balance in half days and the source of truth.
  annual_leave mirrors it as a decimal string for humans reading the table.
  Decrements are single guarded UPDATE statements:
    UPDATE employees SET ... WHERE id = ? AND annual_leave_halves >= ?
    UPDATE employees SET ... WHERE id = ? AND sick_leave > 0
  Zero affected rows means insufficient balance (or unknown employee,
  which is checked afterwards).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole unit of work. The pool is limited to one connection so that
  ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := attendance.NewEngine(store, generic.NewWorkweekCalendar(store))

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/ledger.go: LeaveLedger contract
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/log"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	q      queries
	logger zerolog.Logger
}

var (
	_ generic.TxStore      = (*Store)(nil)
	_ generic.HolidayStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{
		db:     db,
		q:      queries{db: db},
		logger: log.WithComponent("sqlite"),
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (owners of the leave balances)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hourly_rate INTEGER NOT NULL DEFAULT 0,
		annual_leave TEXT NOT NULL DEFAULT '0.0',
		annual_leave_halves INTEGER NOT NULL DEFAULT 0 CHECK (annual_leave_halves >= 0),
		sick_leave INTEGER NOT NULL DEFAULT 0 CHECK (sick_leave >= 0),
		created_at TEXT NOT NULL
	);

	-- Attendance records (one per employee per work date)
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		work_date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		status TEXT NOT NULL,
		working_minutes INTEGER NOT NULL DEFAULT 0,
		daily_wage INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one record per employee per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_employee_date
		ON attendance_records(employee_id, work_date);

	-- Closeout jobs scan one day at a time
	CREATE INDEX IF NOT EXISTS idx_records_work_date
		ON attendance_records(work_date);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(generic.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// RECORD STORE (generic.RecordStore interface)
// =============================================================================

func (s *Store) Find(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) (*generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.Find(ctx, employeeID, date)
}

func (s *Store) FindByID(ctx context.Context, id generic.RecordID) (*generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FindByID(ctx, id)
}

func (s *Store) FindRange(ctx context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FindRange(ctx, employeeID, from, to)
}

func (s *Store) FindRangeAll(ctx context.Context, from, to generic.Date) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FindRangeAll(ctx, from, to)
}

func (s *Store) FindOpen(ctx context.Context, date generic.Date, statuses ...generic.Status) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.FindOpen(ctx, date, statuses...)
}

func (s *Store) Insert(ctx context.Context, rec generic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Insert(ctx, rec)
}

func (s *Store) Upsert(ctx context.Context, rec generic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Upsert(ctx, rec)
}

func (s *Store) CloseOut(ctx context.Context, rec generic.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CloseOut(ctx, rec)
}

func (s *Store) Delete(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Delete(ctx, employeeID, date)
}

// =============================================================================
// EMPLOYEES AND LEDGER
// =============================================================================

func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetEmployee(ctx, id)
}

func (s *Store) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListEmployees(ctx)
}

func (s *Store) SaveEmployee(ctx context.Context, emp generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SaveEmployee(ctx, emp)
}

func (s *Store) DecrementAnnual(ctx context.Context, id generic.EmployeeID, amount decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.DecrementAnnual(ctx, id, amount)
}

func (s *Store) IncrementAnnual(ctx context.Context, id generic.EmployeeID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.IncrementAnnual(ctx, id, amount)
}

func (s *Store) DecrementSick(ctx context.Context, id generic.EmployeeID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.DecrementSick(ctx, id)
}

func (s *Store) IncrementSick(ctx context.Context, id generic.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.IncrementSick(ctx, id)
}

// Reset deletes all data. Used by tests and demo resets.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"attendance_records", "employees", "holidays"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint &&
			(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	return false
}
