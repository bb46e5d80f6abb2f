package swap

import (
	"fmt"
	"time"

	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/swap/market"
	"github.com/meenmo/g2lib/utils"
)

// GenerateSchedule builds the payment schedule for a leg.
//
// Unadjusted dates are effective + i*frequency (forward) or maturity - i*frequency
// (backward), each rolled from the anchor date so month ends do not drift. The
// stub, if any, sits at the end for forward generation and at the front for
// backward generation.
func GenerateSchedule(effective, maturity time.Time, leg market.LegConvention) ([]SchedulePeriod, error) {
	if !maturity.After(effective) {
		return nil, fmt.Errorf("GenerateSchedule: maturity %s not after effective %s", utils.FormatDate(maturity), utils.FormatDate(effective))
	}
	if leg.PayFrequency <= 0 {
		return nil, fmt.Errorf("GenerateSchedule: unsupported pay frequency %d", leg.PayFrequency)
	}

	var unadjusted []time.Time
	months := int(leg.PayFrequency)
	if leg.ScheduleDirection == market.ScheduleBackward {
		for i := 0; ; i++ {
			d := utils.AddMonth(maturity, -i*months)
			if !d.After(effective) {
				break
			}
			unadjusted = append([]time.Time{d}, unadjusted...)
		}
		unadjusted = append([]time.Time{effective}, unadjusted...)
	} else {
		for i := 0; ; i++ {
			d := utils.AddMonth(effective, i*months)
			if !d.Before(maturity) {
				break
			}
			unadjusted = append(unadjusted, d)
		}
		unadjusted = append(unadjusted, maturity)
	}

	periods := make([]SchedulePeriod, 0, len(unadjusted)-1)
	for i := 0; i < len(unadjusted)-1; i++ {
		start := calendar.Adjust(leg.Calendar, unadjusted[i])
		end := calendar.Adjust(leg.Calendar, unadjusted[i+1])
		if !end.After(start) {
			continue
		}
		pay := end
		if leg.PayDelayDays != 0 {
			pay = calendar.AddBusinessDays(leg.Calendar, end, leg.PayDelayDays)
		}
		periods = append(periods, SchedulePeriod{
			StartDate:   start,
			EndDate:     end,
			PayDate:     pay,
			AccrualDays: int(utils.Days(start, end)),
		})
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("GenerateSchedule: empty schedule %s to %s", utils.FormatDate(effective), utils.FormatDate(maturity))
	}
	return periods, nil
}

// Coupons converts a schedule into coupons with accruals on the leg day count.
// Fixed legs get Amount = notional * rate * accrual; floating amounts stay zero
// until projected.
func Coupons(periods []SchedulePeriod, leg market.LegConvention, notional, rate float64) []Coupon {
	out := make([]Coupon, len(periods))
	for i, p := range periods {
		alpha := utils.YearFraction(p.StartDate, p.EndDate, leg.DayCount)
		amount := 0.0
		if leg.LegType == market.LegFixed {
			amount = notional * rate * alpha
		}
		out[i] = Coupon{
			AccrualStart: p.StartDate,
			AccrualEnd:   p.EndDate,
			PaymentDate:  p.PayDate,
			Accrual:      alpha,
			Amount:       amount,
		}
	}
	return out
}
