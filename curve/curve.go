package curve

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/g2lib/utils"
)

// Curve is a discount curve over pillar times measured from the reference
// date. Interpolation is log-linear in discount factors, i.e. piecewise flat
// forwards; beyond the last pillar the last forward is held flat.
type Curve struct {
	reference   time.Time
	dayCount    utils.DayCount
	dates       []time.Time
	times       []float64 // times[0] == 0
	logDFs      []float64 // logDFs[0] == 0
	extrapolate bool
	instruments []OIS
}

// Pillar is one solved node of the curve.
type Pillar struct {
	Date time.Time
	Time float64
	DF   float64
}

// FromDiscountFactors builds a curve from explicit pillar DFs. The reference
// date itself is implied with DF 1 and must not be passed.
func FromDiscountFactors(reference time.Time, dayCount utils.DayCount, dates []time.Time, dfs []float64, extrapolate bool) (*Curve, error) {
	if len(dates) != len(dfs) {
		return nil, fmt.Errorf("FromDiscountFactors: %d dates for %d discount factors", len(dates), len(dfs))
	}
	c := newCurve(reference, dayCount, extrapolate)
	for i, d := range dates {
		if err := c.push(d, dfs[i]); err != nil {
			return nil, fmt.Errorf("FromDiscountFactors: %w", err)
		}
	}
	return c, nil
}

// Flat returns a continuously compounded flat curve with annual pillars to
// horizonYears, mostly for tests.
func Flat(reference time.Time, rate float64, horizonYears int) *Curve {
	c := newCurve(reference, utils.Act365F, true)
	for y := 1; y <= horizonYears; y++ {
		d := reference.AddDate(y, 0, 0)
		t := utils.YearFraction(reference, d, c.dayCount)
		c.dates = append(c.dates, d)
		c.times = append(c.times, t)
		c.logDFs = append(c.logDFs, -rate*t)
	}
	return c
}

func newCurve(reference time.Time, dayCount utils.DayCount, extrapolate bool) *Curve {
	return &Curve{
		reference:   reference,
		dayCount:    dayCount,
		dates:       []time.Time{reference},
		times:       []float64{0},
		logDFs:      []float64{0},
		extrapolate: extrapolate,
	}
}

func (c *Curve) push(d time.Time, df float64) error {
	t := c.TimeFromReference(d)
	if t <= c.times[len(c.times)-1] {
		return fmt.Errorf("pillar %s not after %s", utils.FormatDate(d), utils.FormatDate(c.dates[len(c.dates)-1]))
	}
	if !(df > 0) || math.IsInf(df, 0) {
		return fmt.Errorf("pillar %s: non-positive discount factor %g", utils.FormatDate(d), df)
	}
	c.dates = append(c.dates, d)
	c.times = append(c.times, t)
	c.logDFs = append(c.logDFs, math.Log(df))
	return nil
}

func (c *Curve) ReferenceDate() time.Time { return c.reference }
func (c *Curve) DayCount() utils.DayCount { return c.dayCount }
func (c *Curve) Extrapolate() bool { return c.extrapolate }
func (c *Curve) MaxTime() float64 { return c.times[len(c.times)-1] }
func (c *Curve) Instruments() []OIS { return c.instruments }

// TimeFromReference converts a date to curve time.
func (c *Curve) TimeFromReference(d time.Time) float64 {
	return utils.YearFraction(c.reference, d, c.dayCount)
}

// CheckRange reports whether t can be priced off the curve.
func (c *Curve) CheckRange(t float64) error {
	if t < 0 {
		return fmt.Errorf("CheckRange: negative time %g", t)
	}
	if t > c.MaxTime()+1e-12 && !c.extrapolate {
		return fmt.Errorf("CheckRange: time %g beyond last pillar %g and extrapolation disabled", t, c.MaxTime())
	}
	return nil
}

// Discount returns P(0, t). Callers validate t with CheckRange; times past the
// last pillar are always extrapolated here.
func (c *Curve) Discount(t float64) float64 {
	return math.Exp(c.logDiscount(t))
}

// DiscountDate returns P(0, d).
func (c *Curve) DiscountDate(d time.Time) float64 {
	return c.Discount(c.TimeFromReference(d))
}

func (c *Curve) logDiscount(t float64) float64 {
	if t <= 0 {
		return 0
	}
	n := len(c.times)
	if n == 1 {
		return 0
	}
	idx := sort.SearchFloat64s(c.times, t)
	if idx < n && c.times[idx] == t {
		return c.logDFs[idx]
	}
	if idx >= n {
		idx = n - 1
	}
	t1, t2 := c.times[idx-1], c.times[idx]
	l1, l2 := c.logDFs[idx-1], c.logDFs[idx]
	return l1 + (l2-l1)*(t-t1)/(t2-t1)
}

// ZeroRate is the continuously compounded zero rate to t.
func (c *Curve) ZeroRate(t float64) float64 {
	if t <= 0 {
		t = 1e-4
	}
	return -c.logDiscount(t) / t
}

// Forward is the continuously compounded forward rate over [t1, t2].
func (c *Curve) Forward(t1, t2 float64) float64 {
	if t2 <= t1 {
		t2 = t1 + 1e-4
	}
	return (c.logDiscount(t1) - c.logDiscount(t2)) / (t2 - t1)
}

// IsMonotone reports whether discount factors are non-increasing in time.
func (c *Curve) IsMonotone() bool {
	for i := 1; i < len(c.logDFs); i++ {
		if c.logDFs[i] > c.logDFs[i-1] {
			return false
		}
	}
	return true
}

// Pillars returns the solved nodes, reference date included.
func (c *Curve) Pillars() []Pillar {
	out := make([]Pillar, len(c.times))
	for i := range c.times {
		out[i] = Pillar{Date: c.dates[i], Time: c.times[i], DF: math.Exp(c.logDFs[i])}
	}
	return out
}
