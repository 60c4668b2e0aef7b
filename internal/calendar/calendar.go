// Package calendar resolves valid US equity trading dates. Holidays are
// computed from the NYSE schedule rather than approximated with a
// weekday check, since a missed holiday shifts every rolling-window
// alignment downstream.
package calendar

import (
	"time"

	"github.com/dmarsh/strider/internal/contracts"
)

// TradingDates returns the ordered market-open dates in [start, end],
// inclusive. Weekends and NYSE full-day holidays are excluded.
func TradingDates(start, end time.Time) ([]time.Time, error) {
	s, e := contracts.Day(start), contracts.Day(end)
	if s.After(e) {
		return nil, &contracts.ConfigError{Field: "calendar.range", Message: "start must not be after end"}
	}

	var dates []time.Time
	holidays := map[time.Time]bool{}
	for y := s.Year(); y <= e.Year(); y++ {
		for _, h := range holidaysForYear(y) {
			holidays[h] = true
		}
	}

	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if holidays[d] {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// IsTradingDay reports whether a single date is a market-open day.
func IsTradingDay(date time.Time) bool {
	d := contracts.Day(date)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	for _, h := range holidaysForYear(d.Year()) {
		if h.Equal(d) {
			return false
		}
	}
	return true
}

// holidaysForYear returns the NYSE full-day closures for one year,
// already shifted for weekend observance.
func holidaysForYear(year int) []time.Time {
	hs := []time.Time{
		observed(date(year, time.January, 1)),           // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Washington's Birthday
		goodFriday(year),                                  // Good Friday
		lastWeekday(year, time.May, time.Monday),          // Memorial Day
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date(year, time.December, 25)),           // Christmas
	}
	hs = append(hs, observed(date(year, time.July, 4))) // Independence Day
	if year >= 2022 {
		hs = append(hs, observed(date(year, time.June, 19))) // Juneteenth
	}
	return hs
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// observed shifts a fixed-date holiday: Saturday observes Friday,
// Sunday observes Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the nth given weekday of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := date(year, month, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := date(year, month+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// goodFriday is two days before Easter Sunday (Gregorian computus).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := date(year, time.Month(month), day)
	return easter.AddDate(0, 0, -2)
}
