// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type recordKey struct {
	EmployeeID generic.EmployeeID
	Date       generic.Date
}

// state holds the maps and implements generic.Tx without locking. Callers
// hold the owning Memory's mutex.
type state struct {
	employees map[generic.EmployeeID]generic.Employee
	records   map[recordKey]generic.Record
	byID      map[generic.RecordID]recordKey
}

func newState() *state {
	return &state{
		employees: make(map[generic.EmployeeID]generic.Employee),
		records:   make(map[recordKey]generic.Record),
		byID:      make(map[generic.RecordID]recordKey),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.records {
		c.records[k] = v.Clone()
	}
	for k, v := range s.byID {
		c.byID[k] = v
	}
	return c
}

// Memory is a mutex-guarded generic.Tx.
type Memory struct {
	mu sync.RWMutex
	s  *state
}

func NewMemory() *Memory {
	return &Memory{s: newState()}
}

// =============================================================================
// RECORDS
// =============================================================================

func (m *Memory) Find(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) (*generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.Find(ctx, employeeID, date)
}

func (m *Memory) FindByID(ctx context.Context, id generic.RecordID) (*generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.FindByID(ctx, id)
}

func (m *Memory) FindRange(ctx context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.FindRange(ctx, employeeID, from, to)
}

func (m *Memory) FindRangeAll(ctx context.Context, from, to generic.Date) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.FindRangeAll(ctx, from, to)
}

func (m *Memory) FindOpen(ctx context.Context, date generic.Date, statuses ...generic.Status) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.FindOpen(ctx, date, statuses...)
}

func (m *Memory) Insert(ctx context.Context, rec generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.Insert(ctx, rec)
}

func (m *Memory) Upsert(ctx context.Context, rec generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.Upsert(ctx, rec)
}

func (m *Memory) CloseOut(ctx context.Context, rec generic.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.CloseOut(ctx, rec)
}

func (m *Memory) Delete(ctx context.Context, employeeID generic.EmployeeID, date generic.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.Delete(ctx, employeeID, date)
}

// =============================================================================
// EMPLOYEES AND LEDGER
// =============================================================================

func (m *Memory) GetEmployee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.GetEmployee(ctx, id)
}

func (m *Memory) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.ListEmployees(ctx)
}

func (m *Memory) SaveEmployee(ctx context.Context, emp generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.SaveEmployee(ctx, emp)
}

func (m *Memory) DecrementAnnual(ctx context.Context, id generic.EmployeeID, amount decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.DecrementAnnual(ctx, id, amount)
}

func (m *Memory) IncrementAnnual(ctx context.Context, id generic.EmployeeID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.IncrementAnnual(ctx, id, amount)
}

func (m *Memory) DecrementSick(ctx context.Context, id generic.EmployeeID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.DecrementSick(ctx, id)
}

func (m *Memory) IncrementSick(ctx context.Context, id generic.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.IncrementSick(ctx, id)
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// Transactions are fully serialized.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Tx) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.s.clone()
	if err := fn(tm.s); err != nil {
		tm.s = snapshot
		return err
	}
	return nil
}

// =============================================================================
// UNLOCKED STATE OPERATIONS
// =============================================================================

func (s *state) Find(_ context.Context, employeeID generic.EmployeeID, date generic.Date) (*generic.Record, error) {
	rec, ok := s.records[recordKey{employeeID, date}]
	if !ok {
		return nil, generic.ErrRecordNotFound
	}
	c := rec.Clone()
	return &c, nil
}

func (s *state) FindByID(_ context.Context, id generic.RecordID) (*generic.Record, error) {
	k, ok := s.byID[id]
	if !ok {
		return nil, generic.ErrRecordNotFound
	}
	c := s.records[k].Clone()
	return &c, nil
}

func (s *state) FindRange(_ context.Context, employeeID generic.EmployeeID, from, to generic.Date) ([]generic.Record, error) {
	var out []generic.Record
	for k, rec := range s.records {
		if k.EmployeeID == employeeID && inRange(k.Date, from, to) {
			out = append(out, rec.Clone())
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *state) FindRangeAll(_ context.Context, from, to generic.Date) ([]generic.Record, error) {
	var out []generic.Record
	for k, rec := range s.records {
		if inRange(k.Date, from, to) {
			out = append(out, rec.Clone())
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *state) FindOpen(_ context.Context, date generic.Date, statuses ...generic.Status) ([]generic.Record, error) {
	var out []generic.Record
	for k, rec := range s.records {
		if k.Date.Equal(date) && rec.IsOpen() && rec.HasStatus(statuses...) {
			out = append(out, rec.Clone())
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *state) Insert(_ context.Context, rec generic.Record) error {
	k := recordKey{rec.EmployeeID, rec.WorkDate}
	if _, exists := s.records[k]; exists {
		return generic.ErrDuplicateRecord
	}
	s.put(k, rec)
	return nil
}

func (s *state) Upsert(_ context.Context, rec generic.Record) error {
	k := recordKey{rec.EmployeeID, rec.WorkDate}
	if old, exists := s.records[k]; exists {
		delete(s.byID, old.ID)
		rec.ID = old.ID
		rec.CreatedAt = old.CreatedAt
	}
	s.put(k, rec)
	return nil
}

func (s *state) CloseOut(_ context.Context, rec generic.Record) (bool, error) {
	k := recordKey{rec.EmployeeID, rec.WorkDate}
	cur, exists := s.records[k]
	if !exists || cur.CheckOut != nil {
		return false, nil
	}
	cur.CheckOut = rec.CheckOut
	cur.Status = rec.Status
	cur.WorkingMinutes = rec.WorkingMinutes
	cur.DailyWage = rec.DailyWage
	cur.UpdatedAt = rec.UpdatedAt
	s.records[k] = cur.Clone()
	return true, nil
}

func (s *state) Delete(_ context.Context, employeeID generic.EmployeeID, date generic.Date) error {
	k := recordKey{employeeID, date}
	if rec, ok := s.records[k]; ok {
		delete(s.byID, rec.ID)
		delete(s.records, k)
	}
	return nil
}

func (s *state) put(k recordKey, rec generic.Record) {
	s.records[k] = rec.Clone()
	s.byID[rec.ID] = k
}

func (s *state) GetEmployee(_ context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	emp, ok := s.employees[id]
	if !ok {
		return nil, generic.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (s *state) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	out := make([]generic.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) SaveEmployee(_ context.Context, emp generic.Employee) error {
	if emp.ID == "" {
		return generic.ErrInvalidInput
	}
	s.employees[emp.ID] = emp
	return nil
}

func (s *state) DecrementAnnual(_ context.Context, id generic.EmployeeID, amount decimal.Decimal) (bool, error) {
	emp, ok := s.employees[id]
	if !ok {
		return false, generic.ErrEmployeeNotFound
	}
	if emp.AnnualLeave.LessThan(amount) {
		return false, nil
	}
	emp.AnnualLeave = emp.AnnualLeave.Sub(amount)
	s.employees[id] = emp
	return true, nil
}

func (s *state) IncrementAnnual(_ context.Context, id generic.EmployeeID, amount decimal.Decimal) error {
	emp, ok := s.employees[id]
	if !ok {
		return generic.ErrEmployeeNotFound
	}
	emp.AnnualLeave = emp.AnnualLeave.Add(amount)
	s.employees[id] = emp
	return nil
}

func (s *state) DecrementSick(_ context.Context, id generic.EmployeeID) (bool, error) {
	emp, ok := s.employees[id]
	if !ok {
		return false, generic.ErrEmployeeNotFound
	}
	if emp.SickLeave <= 0 {
		return false, nil
	}
	emp.SickLeave--
	s.employees[id] = emp
	return true, nil
}

func (s *state) IncrementSick(_ context.Context, id generic.EmployeeID) error {
	emp, ok := s.employees[id]
	if !ok {
		return generic.ErrEmployeeNotFound
	}
	emp.SickLeave++
	s.employees[id] = emp
	return nil
}

// Helpers
func inRange(d, from, to generic.Date) bool {
	return !d.Before(from) && !d.After(to)
}

func sortRecords(recs []generic.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].EmployeeID != recs[j].EmployeeID {
			return recs[i].EmployeeID < recs[j].EmployeeID
		}
		return recs[i].WorkDate.Before(recs[j].WorkDate)
	})
}
