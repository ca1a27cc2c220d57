package attendance

import (
	"fmt"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// TimeOfDay is a wall-clock cutoff such as 09:00.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: time of day %q must be HH:MM", generic.ErrInvalidInput, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Reached reports whether t's wall clock is at or after the cutoff.
func (c TimeOfDay) Reached(t time.Time) bool {
	h, m, s := t.Clock()
	secs := h*3600 + m*60 + s
	return secs >= c.Hour*3600+c.Minute*60
}

// Rules holds the working-time constants of the company.
type Rules struct {
	LateCutoff      TimeOfDay // check-in at or after this is LATE
	DepartureCutoff TimeOfDay // PRESENT becomes PRESENT_DEPARTED only at or after this
	BreakMinutes    int       // deducted from every worked span
	FullDayMinutes  int
	HalfDayMinutes  int
}

// DefaultRules: 09:00 start, 18:00 end, one hour break, 8 hour day.
func DefaultRules() Rules {
	return Rules{
		LateCutoff:      TimeOfDay{Hour: 9},
		DepartureCutoff: TimeOfDay{Hour: 18},
		BreakMinutes:    60,
		FullDayMinutes:  480,
		HalfDayMinutes:  240,
	}
}

// ArrivalStatus is the status assigned at check-in.
func (r Rules) ArrivalStatus(at time.Time) generic.Status {
	if r.LateCutoff.Reached(at) {
		return StatusLate
	}
	return StatusPresent
}

// DepartureStatus is the status after check-out. A late arrival always
// becomes LATE_DEPARTED; an on-time arrival becomes PRESENT_DEPARTED only
// when leaving at or after the departure cutoff. Anything else is kept.
func (r Rules) DepartureStatus(current generic.Status, at time.Time) generic.Status {
	switch current {
	case StatusLate:
		return StatusLateDeparted
	case StatusPresent:
		if r.DepartureCutoff.Reached(at) {
			return StatusPresentDeparted
		}
	}
	return current
}

// WorkedMinutes is the whole minutes between in and out minus the break,
// never negative.
func (r Rules) WorkedMinutes(in, out time.Time) int {
	mins := int(out.Sub(in) / time.Minute)
	mins -= r.BreakMinutes
	if mins < 0 {
		return 0
	}
	return mins
}

// PaidMinutes derives the paid minutes of rec once it holds status.
func (r Rules) PaidMinutes(status generic.Status, rec generic.Record) int {
	switch Policy(status).Pay {
	case PayFullDay:
		return r.FullDayMinutes
	case PayHalfDay:
		return r.HalfDayMinutes
	case PayWorked:
		if rec.CheckIn == nil || rec.CheckOut == nil {
			return 0
		}
		return r.WorkedMinutes(*rec.CheckIn, *rec.CheckOut)
	default:
		return 0
	}
}
