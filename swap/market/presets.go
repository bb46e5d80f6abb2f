package market

import (
	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/utils"
)

// Legs of the priced Bermudan underlying: quarterly ACT/360 on TARGET dates,
// generated forward from the effective date.
var (
	SOFRFixedQuarterly = LegConvention{
		LegType:           LegFixed,
		DayCount:          utils.Act360,
		PayFrequency:      FreqQuarterly,
		Calendar:          calendar.TARGET,
		ScheduleDirection: ScheduleForward,
	}
	SOFRFloatQuarterly = LegConvention{
		LegType:           LegFloating,
		ReferenceRate:     SOFR,
		DayCount:          utils.Act360,
		PayFrequency:      FreqQuarterly,
		Calendar:          calendar.TARGET,
		ScheduleDirection: ScheduleForward,
	}
)

// Legs of the calibration swaptions' underlyings: annual ACT/360 on the
// SOFR fixing calendar.
var (
	SOFRFixedAnnual = LegConvention{
		LegType:           LegFixed,
		DayCount:          utils.Act360,
		PayFrequency:      FreqAnnual,
		Calendar:          calendar.USD,
		ScheduleDirection: ScheduleForward,
	}
	SOFRFloatAnnual = LegConvention{
		LegType:           LegFloating,
		ReferenceRate:     SOFR,
		DayCount:          utils.Act360,
		PayFrequency:      FreqAnnual,
		Calendar:          calendar.USD,
		ScheduleDirection: ScheduleForward,
	}
)
