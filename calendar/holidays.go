package calendar

import "time"

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
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
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func isTargetHoliday(t time.Time) bool {
	d, m := t.Day(), t.Month()
	easter := easterSunday(t.Year())
	switch {
	case m == time.January && d == 1:
		return true
	case sameDay(t, easter.AddDate(0, 0, -2)), sameDay(t, easter.AddDate(0, 0, 1)):
		return true
	case m == time.May && d == 1:
		return true
	case m == time.December && (d == 25 || d == 26):
		return true
	}
	return false
}

// nthWeekday returns the n-th weekday of a month; n < 0 counts from the end.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	if n > 0 {
		t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		for t.Weekday() != wd {
			t = t.AddDate(0, 0, 1)
		}
		return t.AddDate(0, 0, 7*(n-1))
	}
	t := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	for t.Weekday() != wd {
		t = t.AddDate(0, 0, -1)
	}
	return t.AddDate(0, 0, 7*(n+1))
}

// observed shifts fixed-date holidays falling on weekends (Sat -> Fri, Sun -> Mon).
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

// isUSGovBondHoliday follows the SIFMA recommendation used for SOFR fixings.
func isUSGovBondHoliday(t time.Time) bool {
	y := t.Year()
	fixed := []time.Time{
		observed(time.Date(y, time.July, 4, 0, 0, 0, 0, time.UTC)),
		observed(time.Date(y, time.November, 11, 0, 0, 0, 0, time.UTC)),
		observed(time.Date(y, time.December, 25, 0, 0, 0, 0, time.UTC)),
	}
	if y >= 2022 {
		fixed = append(fixed, observed(time.Date(y, time.June, 19, 0, 0, 0, 0, time.UTC)))
	}
	// New Year's Day on a Saturday is not moved back into the previous year.
	if ny := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC); ny.Weekday() != time.Saturday {
		fixed = append(fixed, observed(ny))
	}
	for _, h := range fixed {
		if sameDay(t, h) {
			return true
		}
	}

	floating := []time.Time{
		nthWeekday(y, time.January, time.Monday, 3),   // Martin Luther King Jr.
		nthWeekday(y, time.February, time.Monday, 3),  // Presidents'
		nthWeekday(y, time.May, time.Monday, -1),      // Memorial
		nthWeekday(y, time.September, time.Monday, 1), // Labor
		nthWeekday(y, time.October, time.Monday, 2),   // Columbus
		nthWeekday(y, time.November, time.Thursday, 4),
		easterSunday(y).AddDate(0, 0, -2),
	}
	for _, h := range floating {
		if sameDay(t, h) {
			return true
		}
	}
	return false
}
