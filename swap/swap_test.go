package swap

import (
	"math"
	"testing"
	"time"

	"github.com/meenmo/g2lib/curve"
	"github.com/meenmo/g2lib/swap/market"
	"github.com/meenmo/g2lib/utils"
)

func TestGenerateScheduleForwardQuarterly(t *testing.T) {
	t.Parallel()

	effective := utils.Date(2023, time.August, 31)
	maturity := utils.Date(2026, time.August, 31)
	periods, err := GenerateSchedule(effective, maturity, market.SOFRFixedQuarterly)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(periods) != 12 {
		t.Fatalf("periods: got %d want 12", len(periods))
	}
	want := []time.Time{
		utils.Date(2023, time.November, 30),
		utils.Date(2024, time.February, 29),
		utils.Date(2024, time.May, 31),
		utils.Date(2024, time.August, 30),
	}
	for i, w := range want {
		if !periods[i].EndDate.Equal(w) {
			t.Fatalf("period %d end: got %s want %s", i, utils.FormatDate(periods[i].EndDate), utils.FormatDate(w))
		}
		if i > 0 && !periods[i].StartDate.Equal(periods[i-1].EndDate) {
			t.Fatalf("period %d does not chain", i)
		}
	}
	if !periods[11].EndDate.Equal(maturity) {
		t.Fatalf("last end: got %s", utils.FormatDate(periods[11].EndDate))
	}
}

func TestGenerateScheduleBackwardFrontStub(t *testing.T) {
	t.Parallel()

	leg := market.SOFRFixedAnnual
	leg.ScheduleDirection = market.ScheduleBackward
	effective := utils.Date(2024, time.March, 15)
	maturity := utils.Date(2026, time.June, 15)
	periods, err := GenerateSchedule(effective, maturity, leg)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(periods) != 3 {
		t.Fatalf("periods: got %d want 3", len(periods))
	}
	if !periods[0].EndDate.Equal(utils.Date(2024, time.June, 17)) {
		t.Fatalf("stub end: got %s", utils.FormatDate(periods[0].EndDate))
	}
}

func TestGenerateScheduleRejectsInvertedDates(t *testing.T) {
	t.Parallel()

	d := utils.Date(2024, time.March, 15)
	if _, err := GenerateSchedule(d, d, market.SOFRFixedAnnual); err == nil {
		t.Fatalf("expected error for empty schedule")
	}
}

func TestVanillaSwapFairRateZeroesNPV(t *testing.T) {
	t.Parallel()

	ref := utils.Date(2023, time.August, 30)
	c := curve.Flat(ref, 0.045, 10)
	s, err := NewVanillaSwap(Payer, 10000, 0.05, utils.Date(2023, time.August, 31), utils.Date(2026, time.August, 31),
		market.SOFRFixedQuarterly, market.SOFRFloatQuarterly)
	if err != nil {
		t.Fatalf("NewVanillaSwap: %v", err)
	}
	k, err := s.FairRate(c)
	if err != nil {
		t.Fatalf("FairRate: %v", err)
	}
	pv, err := s.WithFixedRate(k).NPV(c)
	if err != nil {
		t.Fatalf("NPV: %v", err)
	}
	if math.Abs(pv.TotalPV) > 1e-9 {
		t.Fatalf("NPV at fair rate: %g", pv.TotalPV)
	}

	// Floating leg telescopes to N * (P(start) - P(end)).
	want := 10000 * (c.DiscountDate(s.Start) - c.DiscountDate(s.Maturity))
	if math.Abs(pv.FloatingLegPV-want) > 1e-9 {
		t.Fatalf("floating PV: got %v want %v", pv.FloatingLegPV, want)
	}
}

func TestVanillaSwapPayerReceiverSymmetry(t *testing.T) {
	t.Parallel()

	ref := utils.Date(2023, time.August, 30)
	c := curve.Flat(ref, 0.04, 10)
	start, end := utils.Date(2023, time.August, 31), utils.Date(2026, time.August, 31)
	payer, _ := NewVanillaSwap(Payer, 10000, 0.066, start, end, market.SOFRFixedQuarterly, market.SOFRFloatQuarterly)
	receiver, _ := NewVanillaSwap(Receiver, 10000, 0.066, start, end, market.SOFRFixedQuarterly, market.SOFRFloatQuarterly)
	p, _ := payer.NPV(c)
	r, _ := receiver.NPV(c)
	if math.Abs(p.TotalPV+r.TotalPV) > 1e-12 {
		t.Fatalf("payer %v + receiver %v != 0", p.TotalPV, r.TotalPV)
	}
	if p.TotalPV >= 0 {
		t.Fatalf("payer at 6.6%% on a 4%% curve should be negative, got %v", p.TotalPV)
	}
}

func TestNilCurve(t *testing.T) {
	t.Parallel()

	s := &VanillaSwap{}
	if _, err := s.NPV(nil); err != ErrNilCurve {
		t.Fatalf("expected ErrNilCurve, got %v", err)
	}
	var c *curve.Curve
	if _, err := s.Annuity(c); err != ErrNilCurve {
		t.Fatalf("expected ErrNilCurve for typed nil, got %v", err)
	}
}
