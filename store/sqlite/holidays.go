package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// HOLIDAY STORE (generic.HolidayStore interface)
// =============================================================================

// SaveHoliday inserts or replaces a holiday by ID. A second holiday with the
// same date and name is rejected with ErrDuplicateRecord.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	if h.ID == "" || h.Date.IsZero() {
		return fmt.Errorf("%w: holiday id and date are required", generic.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			recurring = excluded.recurring
	`, h.ID, h.Date.String(), h.Name, h.Recurring, formatTime(time.Now()))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("holiday %s on %s: %w", h.Name, h.Date, generic.ErrDuplicateRecord)
		}
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// ListHolidays returns holidays observed in [from, to], recurring ones
// expanded into each year of the range.
func (s *Store) ListHolidays(ctx context.Context, from, to generic.Date) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.queryHolidays(ctx, `
		SELECT id, date, name, recurring FROM holidays
		WHERE (date >= ? AND date <= ?) OR recurring = 1
		ORDER BY date ASC
	`, from.String(), to.String())
	if err != nil {
		return nil, err
	}

	var out []generic.Holiday
	for _, h := range all {
		if !h.Recurring {
			out = append(out, h)
			continue
		}
		for y := from.Year(); y <= to.Year(); y++ {
			d := generic.NewDate(y, h.Date.Month(), h.Date.Day())
			if d.Before(from) || d.After(to) {
				continue
			}
			h := h
			h.Date = d
			out = append(out, h)
		}
	}
	sortHolidays(out)
	return out, nil
}

// IsHoliday checks if a date is a declared holiday. Query failures are
// logged and treated as "not a holiday".
func (s *Store) IsHoliday(date generic.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM holidays
		WHERE date = ? OR (recurring = 1 AND substr(date, 6) = ?)
	`, date.String(), date.String()[5:]).Scan(&count)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date.String()).Msg("holiday lookup failed")
		return false
	}
	return count > 0
}

// Holidays returns the holidays observed in year.
func (s *Store) Holidays(year int) []generic.Holiday {
	from := generic.NewDate(year, time.January, 1)
	to := generic.NewDate(year, time.December, 31)
	hs, err := s.ListHolidays(context.Background(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Int("year", year).Msg("holiday listing failed")
		return nil
	}
	return hs
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]generic.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var (
			h         generic.Holiday
			date      string
			recurring sql.NullBool
		)
		if err := rows.Scan(&h.ID, &date, &h.Name, &recurring); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		h.Recurring = recurring.Bool
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func sortHolidays(hs []generic.Holiday) {
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].Date.Before(hs[j].Date) })
}
