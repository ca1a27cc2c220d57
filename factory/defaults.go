package factory

import (
	"github.com/warp/attendance-engine/generic"
)

// DefaultCountry is used when no calendar file is configured.
const DefaultCountry = "KR"

// koreanHolidays2026 lists the 2026 public holidays of the Republic of Korea,
// including substitute holidays.
var koreanHolidays2026 = []HolidayJSON{
	{Date: "2026-01-01", Name: "New Year's Day"},
	{Date: "2026-02-16", Name: "Seollal holiday"},
	{Date: "2026-02-17", Name: "Seollal"},
	{Date: "2026-02-18", Name: "Seollal holiday"},
	{Date: "2026-03-01", Name: "Independence Movement Day"},
	{Date: "2026-03-02", Name: "Independence Movement Day (substitute)"},
	{Date: "2026-05-05", Name: "Children's Day / Buddha's Birthday"},
	{Date: "2026-06-06", Name: "Memorial Day"},
	{Date: "2026-08-15", Name: "Liberation Day"},
	{Date: "2026-08-17", Name: "Liberation Day (substitute)"},
	{Date: "2026-09-24", Name: "Chuseok holiday"},
	{Date: "2026-09-25", Name: "Chuseok"},
	{Date: "2026-09-26", Name: "Chuseok holiday"},
	{Date: "2026-10-03", Name: "National Foundation Day"},
	{Date: "2026-10-05", Name: "National Foundation Day (substitute)"},
	{Date: "2026-10-09", Name: "Hangeul Day"},
	{Date: "2026-12-25", Name: "Christmas Day"},
}

// DefaultCalendarFile returns the built-in calendar definition.
func DefaultCalendarFile() *CalendarFile {
	hs := make([]HolidayJSON, len(koreanHolidays2026))
	copy(hs, koreanHolidays2026)
	return &CalendarFile{Country: DefaultCountry, Holidays: hs}
}

// DefaultHolidays returns the built-in holiday list.
func DefaultHolidays() []generic.Holiday {
	hs, err := DefaultCalendarFile().holidays()
	if err != nil {
		// the built-in table is constant and valid
		panic(err)
	}
	return hs
}

// DefaultCalendar returns the built-in holidays as a StaticCalendar.
func DefaultCalendar() *generic.StaticCalendar {
	return generic.NewStaticCalendar(DefaultHolidays()...)
}
