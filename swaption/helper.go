package swaption

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/marketdata"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/solver"
	"github.com/meenmo/g2lib/swap"
	"github.com/meenmo/g2lib/swap/market"
	"github.com/meenmo/g2lib/utils"
)

// TermStructure is the discounting surface a helper is built on.
type TermStructure interface {
	ReferenceDate() time.Time
	TimeFromReference(d time.Time) float64
	DiscountDate(d time.Time) float64
}

// helperNotional scales the calibration swaptions; prices are compared
// relative to it.
const helperNotional = 1.0

// Helper is an ATM European swaption quoted by Black volatility, used as a
// calibration target.
type Helper struct {
	Maturity utils.Period
	Length   utils.Period
	Vol      *marketdata.Quote

	Exercise time.Time
	Swap     *swap.VanillaSwap
	Strike   float64

	curve    TermStructure
	engine   Engine
	volTime  float64
	annuity  float64
	exercise *Exercise
}

// NewHelper builds the ATM underlying: exercise on the USD calendar after
// maturity, swap starting on the exercise date and running for length.
func NewHelper(maturity, length utils.Period, vol *marketdata.Quote, ts TermStructure, engine Engine) (*Helper, error) {
	if vol == nil {
		return nil, fmt.Errorf("NewHelper %s: nil volatility quote", helperName(maturity, length))
	}
	if ts == nil {
		return nil, fmt.Errorf("NewHelper %s: %w", helperName(maturity, length), swap.ErrNilCurve)
	}
	ref := ts.ReferenceDate()
	exercise := calendar.Advance(market.SOFRFixedAnnual.Calendar, ref, maturity)
	end := calendar.Advance(market.SOFRFixedAnnual.Calendar, exercise, length)

	// Annual fixed against annual SOFR is the convention chosen for the quoted swaptions.
	underlying, err := swap.NewVanillaSwap(swap.Payer, helperNotional, 0, exercise, end, market.SOFRFixedAnnual, market.SOFRFloatAnnual)
	if err != nil {
		return nil, fmt.Errorf("NewHelper %s: %w", helperName(maturity, length), err)
	}
	strike, err := underlying.FairRate(ts)
	if err != nil {
		return nil, fmt.Errorf("NewHelper %s: %w", helperName(maturity, length), err)
	}
	underlying = underlying.WithFixedRate(strike)
	annuity, err := underlying.Annuity(ts)
	if err != nil {
		return nil, fmt.Errorf("NewHelper %s: %w", helperName(maturity, length), err)
	}

	h := &Helper{
		Maturity: maturity,
		Length:   length,
		Vol:      vol,
		Exercise: exercise,
		Swap:     underlying,
		Strike:   strike,
		curve:    ts,
		engine:   engine,
		volTime:  utils.YearFraction(ref, exercise, utils.Act365F),
		annuity:  annuity,
	}
	h.exercise = ExerciseFromSwap(underlying, []time.Time{exercise}, ts)
	if err := h.exercise.Validate(); err != nil {
		return nil, fmt.Errorf("NewHelper %s: %w", h.Name(), err)
	}
	return h, nil
}

func helperName(maturity, length utils.Period) string {
	short := func(p utils.Period) string {
		if p.Unit == utils.UnitYears {
			return fmt.Sprint(p.N)
		}
		return p.String()
	}
	return short(maturity) + "x" + short(length)
}

// Name is the grid label, e.g. "1x7".
func (h *Helper) Name() string { return helperName(h.Maturity, h.Length) }

// SetEngine replaces the pricing engine.
func (h *Helper) SetEngine(e Engine) { h.engine = e }

// Terms exposes the helper in model time.
func (h *Helper) Terms() *Exercise { return h.exercise }

// VolTime is the ACT/365F time to exercise used with the Black quote.
func (h *Helper) VolTime() float64 { return h.volTime }

// ModelValue prices the helper with its engine under m.
func (h *Helper) ModelValue(m *model.G2) (float64, error) {
	if h.engine == nil {
		return 0, fmt.Errorf("helper %s: no pricing engine", h.Name())
	}
	v, err := h.engine.Price(m, h.exercise)
	if err != nil {
		return 0, fmt.Errorf("helper %s: %w", h.Name(), err)
	}
	return v, nil
}

// BlackPrice is the market convention price at volatility vol.
func (h *Helper) BlackPrice(vol float64) float64 {
	std := vol * math.Sqrt(h.volTime)
	return h.Swap.Notional * h.annuity * Black(h.Swap.Type == swap.Payer, h.Strike, h.Strike, std)
}

// MarketValue is the Black price at the current quote.
func (h *Helper) MarketValue() float64 { return h.BlackPrice(h.Vol.Value()) }

// ImpliedVolatility inverts the Black price. A target that cannot be reached
// inside [minVol, maxVol] reports an *ImpliedVolatilityError.
func (h *Helper) ImpliedVolatility(target, accuracy float64, maxEval int, minVol, maxVol float64) (float64, error) {
	fail := func(reason string, err error) (float64, error) {
		return 0, &ImpliedVolatilityError{Helper: h.Name(), Target: target, MinVol: minVol, MaxVol: maxVol, Reason: reason, Err: err}
	}
	if math.IsNaN(target) || target <= 0 {
		return fail("non-positive target price", nil)
	}
	if minVol <= 0 || maxVol <= minVol {
		return fail("invalid volatility bounds", nil)
	}
	f := func(v float64) float64 { return h.BlackPrice(v) - target }
	vol, err := solver.Brent(f, minVol, maxVol, accuracy, maxEval)
	if err != nil {
		if errors.Is(err, solver.ErrNotBracketed) {
			return fail("price outside the bounds' range", err)
		}
		return fail("root search failed", err)
	}
	return vol, nil
}

// ExerciseFromSwap maps a swap and its exercise dates into model time on ts.
func ExerciseFromSwap(s *swap.VanillaSwap, exercise []time.Time, ts TermStructure) *Exercise {
	e := &Exercise{
		Payer:    s.Type == swap.Payer,
		Notional: s.Notional,
		Strike:   s.FixedRate,
		End:      ts.TimeFromReference(s.Maturity),
	}
	for _, d := range exercise {
		e.Times = append(e.Times, ts.TimeFromReference(d))
	}
	for _, c := range s.Fixed {
		e.AccrualStarts = append(e.AccrualStarts, ts.TimeFromReference(c.AccrualStart))
		e.PayTimes = append(e.PayTimes, ts.TimeFromReference(c.PaymentDate))
		e.Accruals = append(e.Accruals, c.Accrual)
	}
	if n := len(s.Floating); n > 0 {
		e.End = ts.TimeFromReference(s.Floating[n-1].PaymentDate)
	}
	return e
}

// HelpersFromMarket builds one helper per (row, column) cell of the vol grid.
func HelpersFromMarket(m *marketdata.Market, cells [][2]int, ts TermStructure, engine Engine) ([]*Helper, error) {
	out := make([]*Helper, 0, len(cells))
	for _, c := range cells {
		q, err := m.Vol(c[0], c[1])
		if err != nil {
			return nil, fmt.Errorf("HelpersFromMarket: %w", err)
		}
		h, err := NewHelper(m.Maturities[c[0]], m.Lengths[c[1]], q, ts, engine)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
