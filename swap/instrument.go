package swap

import (
	"fmt"
	"time"

	"github.com/meenmo/g2lib/swap/market"
)

// VanillaSwap is a fixed-vs-floating swap on a single curve.
type VanillaSwap struct {
	Type      Type
	Notional  float64
	FixedRate float64
	Start     time.Time
	Maturity  time.Time
	Fixed     []Coupon
	Floating  []Coupon
}

// NewVanillaSwap generates both legs from effective to maturity.
func NewVanillaSwap(typ Type, notional, fixedRate float64, effective, maturity time.Time, fixedLeg, floatLeg market.LegConvention) (*VanillaSwap, error) {
	if fixedLeg.LegType != market.LegFixed {
		return nil, fmt.Errorf("NewVanillaSwap: fixed leg convention has type %s", fixedLeg.LegType)
	}
	if floatLeg.LegType != market.LegFloating {
		return nil, fmt.Errorf("NewVanillaSwap: floating leg convention has type %s", floatLeg.LegType)
	}
	fixedPeriods, err := GenerateSchedule(effective, maturity, fixedLeg)
	if err != nil {
		return nil, fmt.Errorf("NewVanillaSwap: fixed leg: %w", err)
	}
	floatPeriods, err := GenerateSchedule(effective, maturity, floatLeg)
	if err != nil {
		return nil, fmt.Errorf("NewVanillaSwap: floating leg: %w", err)
	}
	return &VanillaSwap{
		Type:      typ,
		Notional:  notional,
		FixedRate: fixedRate,
		Start:     fixedPeriods[0].StartDate,
		Maturity:  fixedPeriods[len(fixedPeriods)-1].EndDate,
		Fixed:     Coupons(fixedPeriods, fixedLeg, notional, fixedRate),
		Floating:  Coupons(floatPeriods, floatLeg, notional, 0),
	}, nil
}

// FloatingAmounts returns the floating coupons with projected amounts.
func (s *VanillaSwap) FloatingAmounts(curve DiscountCurve) ([]Coupon, error) {
	if isNilInterface(curve) {
		return nil, ErrNilCurve
	}
	return projectFloating(s.Floating, s.Notional, curve), nil
}

// NPV values both legs off curve. TotalPV is from the holder's side: positive
// for a payer when floating is worth more than fixed.
func (s *VanillaSwap) NPV(curve DiscountCurve) (PV, error) {
	if isNilInterface(curve) {
		return PV{}, ErrNilCurve
	}
	fixed := fixedLegPV(s.Fixed, curve)
	floating := fixedLegPV(projectFloating(s.Floating, s.Notional, curve), curve)
	total := floating - fixed
	if s.Type == Receiver {
		total = -total
	}
	return PV{FixedLegPV: fixed, FloatingLegPV: floating, TotalPV: total}, nil
}

// Annuity is sum(alpha_i * P(pay_i)) over the fixed leg, per unit notional.
func (s *VanillaSwap) Annuity(curve DiscountCurve) (float64, error) {
	if isNilInterface(curve) {
		return 0, ErrNilCurve
	}
	return annuity(s.Fixed, curve), nil
}

// FairRate is the fixed rate that zeroes the NPV.
func (s *VanillaSwap) FairRate(curve DiscountCurve) (float64, error) {
	pv, err := s.NPV(curve)
	if err != nil {
		return 0, fmt.Errorf("FairRate: %w", err)
	}
	a := annuity(s.Fixed, curve)
	if a == 0 {
		return 0, fmt.Errorf("FairRate: annuity is zero")
	}
	return pv.FloatingLegPV / (s.Notional * a), nil
}

// WithFixedRate returns a copy of the swap struck at rate.
func (s *VanillaSwap) WithFixedRate(rate float64) *VanillaSwap {
	out := *s
	out.FixedRate = rate
	out.Fixed = make([]Coupon, len(s.Fixed))
	for i, c := range s.Fixed {
		c.Amount = s.Notional * rate * c.Accrual
		out.Fixed[i] = c
	}
	return &out
}
