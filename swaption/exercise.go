package swaption

import (
	"fmt"
	"math"

	"github.com/meenmo/g2lib/model"
)

// Exercise is an option on a fixed-vs-floating swap expressed in model time,
// the form every engine prices. Exercise k enters the remaining swap whose
// first accrual starts at or after Times[k]; the floating leg is worth
// Notional * (P(start) - P(End)).
type Exercise struct {
	Payer    bool
	Notional float64
	Strike   float64

	Times         []float64
	AccrualStarts []float64
	PayTimes      []float64
	Accruals      []float64
	End           float64
}

// Validate checks ordering of exercise and coupon times.
func (e *Exercise) Validate() error {
	if len(e.Times) == 0 {
		return fmt.Errorf("Exercise: no exercise times")
	}
	n := len(e.PayTimes)
	if n == 0 || len(e.AccrualStarts) != n || len(e.Accruals) != n {
		return fmt.Errorf("Exercise: inconsistent fixed leg (%d starts, %d pays, %d accruals)", len(e.AccrualStarts), n, len(e.Accruals))
	}
	if e.Times[0] <= 0 {
		return fmt.Errorf("Exercise: first exercise time %g not in the future", e.Times[0])
	}
	for i := 1; i < len(e.Times); i++ {
		if e.Times[i] <= e.Times[i-1] {
			return fmt.Errorf("Exercise: exercise times not strictly increasing at %d", i)
		}
	}
	if last := e.Times[len(e.Times)-1]; last > e.AccrualStarts[n-1]+timeEps {
		return fmt.Errorf("Exercise: last exercise %g after last accrual start %g", last, e.AccrualStarts[n-1])
	}
	for i := 0; i < n; i++ {
		if e.PayTimes[i] <= e.AccrualStarts[i] {
			return fmt.Errorf("Exercise: coupon %d pays before it starts", i)
		}
	}
	if e.End < e.PayTimes[n-1]-timeEps {
		return fmt.Errorf("Exercise: end %g before last payment %g", e.End, e.PayTimes[n-1])
	}
	return nil
}

const timeEps = 1e-10

// LastTime is the latest exercise time.
func (e *Exercise) LastTime() float64 { return e.Times[len(e.Times)-1] }

// firstCoupon is the index of the first coupon entered by exercising at t.
func (e *Exercise) firstCoupon(t float64) int {
	for i, s := range e.AccrualStarts {
		if s >= t-timeEps {
			return i
		}
	}
	return len(e.AccrualStarts)
}

// Payoff returns the exercise value at exercise k as a function of the factor
// state, from the model's closed-form bond prices.
func (e *Exercise) Payoff(m *model.G2, k int) func(x, y float64) float64 {
	p := m.Params()
	te := e.Times[k]
	first := e.firstCoupon(te)
	w := -1.0
	if e.Payer {
		w = 1.0
	}
	if first == len(e.AccrualStarts) {
		return func(x, y float64) float64 { return 0 }
	}

	// value(x, y) = w * N * sum_j c_j A_j exp(-Ba_j x - Bb_j y)
	// with +1 on the floating start and -1 - K alpha on the final payment.
	type term struct{ c, a, ba, bb float64 }
	terms := make([]term, 0, len(e.PayTimes)-first+2)
	add := func(c, T float64) {
		terms = append(terms, term{c: c, a: m.A(te, T), ba: model.B(p.A, T-te), bb: model.B(p.B, T-te)})
	}
	add(1, e.AccrualStarts[first])
	for i := first; i < len(e.PayTimes); i++ {
		add(-e.Strike*e.Accruals[i], e.PayTimes[i])
	}
	add(-1, e.End)

	scale := w * e.Notional
	return func(x, y float64) float64 {
		v := 0.0
		for _, t := range terms {
			v += t.c * t.a * math.Exp(-t.ba*x-t.bb*y)
		}
		return scale * v
	}
}

// European reports whether the option has a single exercise at the start of
// the underlying.
func (e *Exercise) European() bool {
	return len(e.Times) == 1 && math.Abs(e.AccrualStarts[0]-e.Times[0]) <= timeEps
}

// terms converts a European exercise to the analytic formula's input.
func (e *Exercise) terms() (model.SwaptionTerms, error) {
	if !e.European() {
		return model.SwaptionTerms{}, fmt.Errorf("analytic pricing needs a single exercise at the swap start")
	}
	if math.Abs(e.End-e.PayTimes[len(e.PayTimes)-1]) > timeEps {
		return model.SwaptionTerms{}, fmt.Errorf("analytic pricing needs the floating leg to end on the last fixed payment")
	}
	return model.SwaptionTerms{
		Payer:    e.Payer,
		Notional: e.Notional,
		Strike:   e.Strike,
		Exercise: e.Times[0],
		PayTimes: e.PayTimes,
		Accruals: e.Accruals,
	}, nil
}
