package generic

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// DATE - A calendar day, independent of time zone
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a civil calendar day. The wrapped time is always midnight UTC so
// that equality and ordering never depend on the caller's location.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return Date{t: t}, nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) String() string        { return d.t.Format(DateLayout) }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// At combines the day with a wall-clock time in loc.
func (d Date) At(hour, min, sec int, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, sec, 0, loc)
}

// =============================================================================
// RANGES
// =============================================================================

// DateRange expands [from, to] into individual days in ascending order.
// Returns nil when to is before from.
func DateRange(from, to Date) []Date {
	if to.Before(from) {
		return nil
	}
	days := make([]Date, 0, DaysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func DaysBetween(from, to Date) int { return int(to.t.Sub(from.t).Hours() / 24) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }
func EndOfMonth(year int, month time.Month) Date {
	return StartOfMonth(year, month).AddMonths(1).AddDays(-1)
}

// MonthOf returns the first and last day of the month containing d.
func MonthOf(d Date) (Date, Date) {
	return StartOfMonth(d.Year(), d.Month()), EndOfMonth(d.Year(), d.Month())
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a declared non-working day.
type Holiday struct {
	ID        string
	Date      Date
	Name      string
	Recurring bool // true = same month/day every year
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	IsHoliday(date Date) bool
	Holidays(year int) []Holiday
}

// Calendar answers the one question the engine asks: is this a rest day?
type Calendar interface {
	IsRestDay(date Date) bool
}

// WorkweekCalendar treats Saturday, Sunday and every holiday as rest days.
type WorkweekCalendar struct {
	Holidays HolidayCalendar
}

func NewWorkweekCalendar(holidays HolidayCalendar) *WorkweekCalendar {
	return &WorkweekCalendar{Holidays: holidays}
}

func (c *WorkweekCalendar) IsRestDay(date Date) bool {
	if date.IsWeekend() {
		return true
	}
	return c.Holidays != nil && c.Holidays.IsHoliday(date)
}

// WorkingDays filters rest days out of [from, to].
func WorkingDays(cal Calendar, from, to Date) []Date {
	var days []Date
	for _, d := range DateRange(from, to) {
		if cal == nil || !cal.IsRestDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// StaticCalendar is an immutable in-memory holiday set.
type StaticCalendar struct {
	fixed     map[Date]Holiday
	recurring map[[2]int]Holiday
}

func NewStaticCalendar(holidays ...Holiday) *StaticCalendar {
	c := &StaticCalendar{
		fixed:     make(map[Date]Holiday),
		recurring: make(map[[2]int]Holiday),
	}
	for _, h := range holidays {
		if h.Recurring {
			c.recurring[[2]int{int(h.Date.Month()), h.Date.Day()}] = h
			continue
		}
		c.fixed[h.Date] = h
	}
	return c
}

func (c *StaticCalendar) IsHoliday(date Date) bool {
	if _, ok := c.fixed[date]; ok {
		return true
	}
	_, ok := c.recurring[[2]int{int(date.Month()), date.Day()}]
	return ok
}

func (c *StaticCalendar) Holidays(year int) []Holiday {
	var out []Holiday
	for d, h := range c.fixed {
		if d.Year() == year {
			out = append(out, h)
		}
	}
	for _, h := range c.recurring {
		h.Date = NewDate(year, h.Date.Month(), h.Date.Day())
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// MultiCalendar is the union of several holiday calendars, e.g. the
// configured national holidays plus company days stored in the database.
type MultiCalendar []HolidayCalendar

func (m MultiCalendar) IsHoliday(date Date) bool {
	for _, c := range m {
		if c != nil && c.IsHoliday(date) {
			return true
		}
	}
	return false
}

func (m MultiCalendar) Holidays(year int) []Holiday {
	seen := make(map[Date]bool)
	var out []Holiday
	for _, c := range m {
		if c == nil {
			continue
		}
		for _, h := range c.Holidays(year) {
			if seen[h.Date] {
				continue
			}
			seen[h.Date] = true
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
