/*
Package factory provides YAML/JSON to Go conversion for the working calendar.

PURPOSE:
  Converts a calendar file into a generic.StaticCalendar and attendance.Rules.
  Holidays change every year and differ per country; keeping them in a file
  means a new year or locale is a configuration change, not a release.

FILE SCHEMA (YAML shown; the same keys work in JSON):
  country: KR
  holidays:
    - date: 2026-01-01
      name: New Year's Day
    - date: 2000-12-25
      name: Christmas
      recurring: true        # same month/day every year
  rules:                     # optional, missing keys keep defaults
    late_cutoff: "09:00"
    departure_cutoff: "18:00"
    break_minutes: 60
    full_day_minutes: 480
    half_day_minutes: 240

FORMAT DETECTION:
  Input whose first non-blank byte is '{' is decoded as JSON, anything else
  as YAML.

USAGE:
  cal, rules, err := factory.LoadFile("holidays.yaml")
  engine := attendance.NewEngine(store, generic.NewWorkweekCalendar(cal),
      attendance.WithRules(rules))

  // Without a file
  cal := factory.DefaultCalendar()

SEE ALSO:
  - generic/time.go: StaticCalendar, WorkweekCalendar
  - attendance/rules.go: Rules
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// FILE SCHEMA TYPES
// =============================================================================

// CalendarFile is the on-disk representation of a working calendar.
type CalendarFile struct {
	Country  string        `json:"country,omitempty" yaml:"country,omitempty"`
	Holidays []HolidayJSON `json:"holidays" yaml:"holidays"`
	Rules    *RulesJSON    `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// HolidayJSON represents one holiday entry.
type HolidayJSON struct {
	Date      string `json:"date" yaml:"date"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Recurring bool   `json:"recurring,omitempty" yaml:"recurring,omitempty"`
}

// RulesJSON represents working-time rules. Zero values keep the default.
type RulesJSON struct {
	LateCutoff      string `json:"late_cutoff,omitempty" yaml:"late_cutoff,omitempty"`
	DepartureCutoff string `json:"departure_cutoff,omitempty" yaml:"departure_cutoff,omitempty"`
	BreakMinutes    *int   `json:"break_minutes,omitempty" yaml:"break_minutes,omitempty"`
	FullDayMinutes  int    `json:"full_day_minutes,omitempty" yaml:"full_day_minutes,omitempty"`
	HalfDayMinutes  int    `json:"half_day_minutes,omitempty" yaml:"half_day_minutes,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// Decode parses a calendar file in YAML or JSON.
func Decode(data []byte) (*CalendarFile, error) {
	var f CalendarFile
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("invalid calendar JSON: %w", err)
		}
		return &f, nil
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid calendar YAML: %w", err)
	}
	return &f, nil
}

// ParseCalendar converts a calendar file into a StaticCalendar.
func ParseCalendar(data []byte) (*generic.StaticCalendar, error) {
	f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	holidays, err := f.holidays()
	if err != nil {
		return nil, err
	}
	return generic.NewStaticCalendar(holidays...), nil
}

// ParseRules extracts working-time rules, starting from the defaults.
func ParseRules(data []byte) (attendance.Rules, error) {
	f, err := Decode(data)
	if err != nil {
		return attendance.Rules{}, err
	}
	return f.rules()
}

// LoadFile reads path and returns both the calendar and the rules.
func LoadFile(path string) (*generic.StaticCalendar, attendance.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, attendance.Rules{}, fmt.Errorf("read calendar file: %w", err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, attendance.Rules{}, err
	}
	holidays, err := f.holidays()
	if err != nil {
		return nil, attendance.Rules{}, err
	}
	rules, err := f.rules()
	if err != nil {
		return nil, attendance.Rules{}, err
	}
	return generic.NewStaticCalendar(holidays...), rules, nil
}

func (f *CalendarFile) holidays() ([]generic.Holiday, error) {
	out := make([]generic.Holiday, 0, len(f.Holidays))
	for i, h := range f.Holidays {
		d, err := generic.ParseDate(h.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %d: %w", i, err)
		}
		out = append(out, generic.Holiday{
			ID:        fmt.Sprintf("%s-%s", f.countryOr("XX"), d),
			Date:      d,
			Name:      h.Name,
			Recurring: h.Recurring,
		})
	}
	return out, nil
}

func (f *CalendarFile) rules() (attendance.Rules, error) {
	r := attendance.DefaultRules()
	if f.Rules == nil {
		return r, nil
	}
	if f.Rules.LateCutoff != "" {
		c, err := attendance.ParseTimeOfDay(f.Rules.LateCutoff)
		if err != nil {
			return r, err
		}
		r.LateCutoff = c
	}
	if f.Rules.DepartureCutoff != "" {
		c, err := attendance.ParseTimeOfDay(f.Rules.DepartureCutoff)
		if err != nil {
			return r, err
		}
		r.DepartureCutoff = c
	}
	if f.Rules.BreakMinutes != nil {
		if *f.Rules.BreakMinutes < 0 {
			return r, fmt.Errorf("%w: break_minutes must not be negative", generic.ErrInvalidInput)
		}
		r.BreakMinutes = *f.Rules.BreakMinutes
	}
	if f.Rules.FullDayMinutes > 0 {
		r.FullDayMinutes = f.Rules.FullDayMinutes
	}
	if f.Rules.HalfDayMinutes > 0 {
		r.HalfDayMinutes = f.Rules.HalfDayMinutes
	}
	return r, nil
}

func (f *CalendarFile) countryOr(def string) string {
	if f.Country == "" {
		return def
	}
	return f.Country
}
