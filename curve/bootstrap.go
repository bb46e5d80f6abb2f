package curve

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/marketdata"
	"github.com/meenmo/g2lib/solver"
	"github.com/meenmo/g2lib/utils"
)

// InstrumentKind is the type of instrument behind a curve node.
type InstrumentKind int

const (
	InstrumentOIS InstrumentKind = iota
)

// Node is one curve input: an instrument of the given tenor quoted by Quote.
type Node struct {
	Tenor utils.Period
	Kind  InstrumentKind
	Quote *marketdata.Quote
}

// NodesFromMarket turns the OIS strip of a market into curve nodes sharing its quotes.
func NodesFromMarket(m *marketdata.Market) []Node {
	nodes := make([]Node, 0, len(m.OIS))
	for _, q := range m.OIS {
		nodes = append(nodes, Node{Tenor: q.Tenor, Kind: InstrumentOIS, Quote: q.Quote})
	}
	return nodes
}

// BootstrapError is returned when a pillar cannot be solved.
type BootstrapError struct {
	Node       int
	Tenor      utils.Period
	Iterations int
	Reason     string
	Err        error
}

func (e *BootstrapError) Error() string {
	msg := fmt.Sprintf("bootstrap node %d (%s): %s", e.Node, e.Tenor, e.Reason)
	if e.Iterations > 0 {
		msg += fmt.Sprintf(" after %d iterations", e.Iterations)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// Coupon is one fixed-leg period of an OIS.
type Coupon struct {
	AccrualStart time.Time
	AccrualEnd   time.Time
	PaymentDate  time.Time
	Accrual      float64
}

// OIS is the bootstrap instrument of one node, fixed at the quote value used.
type OIS struct {
	Node     int
	Tenor    utils.Period
	Rate     float64
	Spot     time.Time
	Maturity time.Time
	Coupons  []Coupon
}

// NPV per unit notional, receiving fixed. With telescoping overnight
// compounding the floating leg is P(spot) - P(maturity).
func (o OIS) NPV(c *Curve) float64 {
	fixed := 0.0
	for _, cpn := range o.Coupons {
		fixed += cpn.Accrual * c.DiscountDate(cpn.PaymentDate)
	}
	return o.Rate*fixed - (c.DiscountDate(o.Spot) - c.DiscountDate(o.Maturity))
}

// newOIS builds annual fixed coupons rolling backward from maturity, ACT/360,
// paid on the accrual end date.
func newOIS(node int, n Node, spot time.Time, cal calendar.CalendarID) OIS {
	unadjustedEnd := n.Tenor.AddTo(spot)

	var unadjusted []time.Time
	current := unadjustedEnd
	for current.After(spot) {
		unadjusted = append([]time.Time{current}, unadjusted...)
		current = utils.AddMonth(current, -12)
	}
	unadjusted = append([]time.Time{spot}, unadjusted...)

	coupons := make([]Coupon, 0, len(unadjusted)-1)
	for i := 0; i < len(unadjusted)-1; i++ {
		start := calendar.Adjust(cal, unadjusted[i])
		end := calendar.Adjust(cal, unadjusted[i+1])
		coupons = append(coupons, Coupon{
			AccrualStart: start,
			AccrualEnd:   end,
			PaymentDate:  end,
			Accrual:      utils.YearFraction(start, end, utils.Act360),
		})
	}
	return OIS{
		Node:     node,
		Tenor:    n.Tenor,
		Rate:     n.Quote.Value(),
		Spot:     spot,
		Maturity: coupons[len(coupons)-1].PaymentDate,
		Coupons:  coupons,
	}
}

// Bootstrap solves pillar discount factors sequentially by increasing tenor so
// that every OIS reprices to zero. The curve time basis is ACT/360.
func Bootstrap(reference time.Time, nodes []Node, cal calendar.CalendarID, cfg config.CurveConfig) (*Curve, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("Bootstrap: no nodes")
	}
	for i, n := range nodes {
		if n.Kind != InstrumentOIS {
			return nil, &BootstrapError{Node: i, Tenor: n.Tenor, Reason: "unsupported instrument kind"}
		}
		if n.Quote == nil {
			return nil, &BootstrapError{Node: i, Tenor: n.Tenor, Reason: "missing quote"}
		}
		if i > 0 && !n.Tenor.AddTo(reference).After(nodes[i-1].Tenor.AddTo(reference)) {
			return nil, &BootstrapError{Node: i, Tenor: n.Tenor, Reason: fmt.Sprintf("tenor not after %s", nodes[i-1].Tenor)}
		}
	}

	spot := calendar.AddBusinessDays(cal, reference, cfg.SettlementDays)
	c := newCurve(reference, utils.Act360, cfg.Extrapolate)
	opts := solver.NewtonOptions{
		Tolerance:           cfg.ConvergenceTolerance,
		MaxIterations:       cfg.MaxBootstrapIterations,
		DerivativeThreshold: cfg.DerivativeThreshold,
		Damping:             cfg.DampingFactor,
	}

	for i, n := range nodes {
		inst := newOIS(i, n, spot, cal)
		prevT := c.times[len(c.times)-1]
		prevLog := c.logDFs[len(c.logDFs)-1]
		tMat := c.TimeFromReference(inst.Maturity)
		if tMat <= prevT {
			return nil, &BootstrapError{Node: i, Tenor: n.Tenor, Reason: "maturity does not extend the curve"}
		}

		// df returns P(t) and dP/dx where x is the unknown pillar DF.
		df := func(t, x float64) (float64, float64) {
			if t <= prevT {
				return c.Discount(t), 0
			}
			ratio := (t - prevT) / (tMat - prevT)
			p := math.Exp(prevLog*(1-ratio) + math.Log(x)*ratio)
			return p, ratio * p / x
		}
		fdf := func(x float64) (float64, float64) {
			if x <= 0 {
				return math.NaN(), math.NaN()
			}
			f, dfdx := 0.0, 0.0
			for _, cpn := range inst.Coupons {
				p, dp := df(c.TimeFromReference(cpn.PaymentDate), x)
				f += inst.Rate * cpn.Accrual * p
				dfdx += inst.Rate * cpn.Accrual * dp
			}
			pStart, dStart := df(c.TimeFromReference(inst.Spot), x)
			pEnd, dEnd := df(tMat, x)
			return f - (pStart - pEnd), dfdx - (dStart - dEnd)
		}

		prevDF := math.Exp(prevLog)
		guess := prevDF * math.Exp(-inst.Rate*(tMat-prevT))
		x, iters, err := solver.SafeNewton(fdf, guess, cfg.MinDiscountFactor, 2*prevDF, opts)
		if err != nil {
			return nil, &BootstrapError{Node: i, Tenor: n.Tenor, Iterations: iters, Reason: "root search did not converge", Err: err}
		}
		if !(x > 0) {
			return nil, &BootstrapError{Node: i, Tenor: n.Tenor, Iterations: iters, Reason: fmt.Sprintf("non-positive discount factor %g", x)}
		}
		if err := c.push(inst.Maturity, x); err != nil {
			return nil, &BootstrapError{Node: i, Tenor: n.Tenor, Iterations: iters, Reason: "invalid pillar", Err: err}
		}
		c.instruments = append(c.instruments, inst)
	}
	return c, nil
}
