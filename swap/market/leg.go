package market

import (
	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/utils"
)

// LegType distinguishes floating vs fixed.
type LegType string

const (
	LegFloating LegType = "FLOATING"
	LegFixed    LegType = "FIXED"
)

// Frequency enumerates payment frequencies in months.
type Frequency int

const (
	FreqAnnual    Frequency = 12
	FreqSemi      Frequency = 6
	FreqQuarterly Frequency = 3
	FreqMonthly   Frequency = 1
)

// FrequencyFromPeriod maps a tenor such as 3M or 1Y to a Frequency.
func FrequencyFromPeriod(p utils.Period) (Frequency, bool) {
	m := p.Months()
	switch Frequency(m) {
	case FreqAnnual, FreqSemi, FreqQuarterly, FreqMonthly:
		return Frequency(m), true
	}
	return 0, false
}

// ScheduleDirection selects the roll direction of date generation.
type ScheduleDirection string

const (
	ScheduleForward  ScheduleDirection = "FORWARD"
	ScheduleBackward ScheduleDirection = "BACKWARD"
)

// LegConvention captures standard swap leg settings.
type LegConvention struct {
	LegType           LegType
	ReferenceRate     ReferenceIndex
	DayCount          utils.DayCount
	PayFrequency      Frequency
	PayDelayDays      int
	Calendar          calendar.CalendarID
	ScheduleDirection ScheduleDirection
}
