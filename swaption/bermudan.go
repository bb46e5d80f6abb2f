package swaption

import (
	"fmt"
	"time"

	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/swap"
	"github.com/meenmo/g2lib/swap/market"
	"github.com/meenmo/g2lib/utils"
)

// Bermudan is a swaption exercisable into the remaining underlying on each of
// its exercise dates.
type Bermudan struct {
	Swap          *swap.VanillaSwap
	ExerciseDates []time.Time
}

// NewBermudan validates and returns the option.
func NewBermudan(s *swap.VanillaSwap, exercise []time.Time) (*Bermudan, error) {
	dates := append([]time.Time(nil), exercise...)
	utils.SortDates(dates)
	b := &Bermudan{Swap: s, ExerciseDates: dates}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewBermudanFromConfig builds the quarterly underlying from cfg and exercises
// on every fixed accrual start.
func NewBermudanFromConfig(cfg config.BermudanConfig) (*Bermudan, error) {
	start, err := utils.ParseDate(cfg.Settlement)
	if err != nil {
		return nil, fmt.Errorf("NewBermudanFromConfig: %w", err)
	}
	tenor, err := utils.ParsePeriod(cfg.Tenor)
	if err != nil {
		return nil, fmt.Errorf("NewBermudanFromConfig: %w", err)
	}
	freq, err := utils.ParsePeriod(cfg.Frequency)
	if err != nil {
		return nil, fmt.Errorf("NewBermudanFromConfig: %w", err)
	}
	fixed, floating := market.SOFRFixedQuarterly, market.SOFRFloatQuarterly
	pf, ok := market.FrequencyFromPeriod(freq)
	if !ok {
		return nil, fmt.Errorf("NewBermudanFromConfig: unsupported frequency %s", freq)
	}
	fixed.PayFrequency, floating.PayFrequency = pf, pf

	typ := swap.Receiver
	if cfg.Payer {
		typ = swap.Payer
	}
	end := calendar.Advance(fixed.Calendar, start, tenor)
	s, err := swap.NewVanillaSwap(typ, cfg.Notional, cfg.FixedRate, start, end, fixed, floating)
	if err != nil {
		return nil, fmt.Errorf("NewBermudanFromConfig: %w", err)
	}
	exercise := make([]time.Time, len(s.Fixed))
	for i, c := range s.Fixed {
		exercise[i] = c.AccrualStart
	}
	return NewBermudan(s, exercise)
}

// Validate checks that every exercise date starts a fixed coupon.
func (b *Bermudan) Validate() error {
	if b.Swap == nil {
		return fmt.Errorf("Bermudan: nil underlying")
	}
	if len(b.ExerciseDates) == 0 {
		return fmt.Errorf("Bermudan: no exercise dates")
	}
	if b.Swap.Notional <= 0 {
		return fmt.Errorf("Bermudan: notional %g must be positive", b.Swap.Notional)
	}
	starts := make(map[string]bool, len(b.Swap.Fixed))
	for _, c := range b.Swap.Fixed {
		starts[utils.FormatDate(c.AccrualStart)] = true
	}
	for i, d := range b.ExerciseDates {
		if i > 0 && !d.After(b.ExerciseDates[i-1]) {
			return fmt.Errorf("Bermudan: duplicate exercise date %s", utils.FormatDate(d))
		}
		if !starts[utils.FormatDate(d)] {
			return fmt.Errorf("Bermudan: exercise date %s is not a fixed accrual start", utils.FormatDate(d))
		}
	}
	return nil
}

// Exercise maps the option into model time on ts. Exercise dates on or before
// the reference date are dropped.
func (b *Bermudan) Exercise(ts TermStructure) (*Exercise, error) {
	ref := ts.ReferenceDate()
	var live []time.Time
	for _, d := range b.ExerciseDates {
		if d.After(ref) {
			live = append(live, d)
		}
	}
	if len(live) == 0 {
		return nil, fmt.Errorf("Bermudan: all exercise dates are on or before %s", utils.FormatDate(ref))
	}
	e := ExerciseFromSwap(b.Swap, live, ts)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("Bermudan: %w", err)
	}
	return e, nil
}
