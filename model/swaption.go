package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/g2lib/solver"
)

// SwaptionTerms describes a European swaption in model time. The underlying
// starts at Exercise; fixed coupon i pays Strike*Accruals[i] at PayTimes[i]
// and the notional is returned with the last coupon.
type SwaptionTerms struct {
	Payer    bool
	Notional float64
	Strike   float64
	Exercise float64
	PayTimes []float64
	Accruals []float64
}

func (s SwaptionTerms) validate() error {
	if s.Exercise <= 0 {
		return fmt.Errorf("exercise time %g must be positive", s.Exercise)
	}
	if len(s.PayTimes) == 0 || len(s.PayTimes) != len(s.Accruals) {
		return fmt.Errorf("%d pay times for %d accruals", len(s.PayTimes), len(s.Accruals))
	}
	prev := s.Exercise
	for _, t := range s.PayTimes {
		if t <= prev {
			return fmt.Errorf("pay time %g not after %g", t, prev)
		}
		prev = t
	}
	return nil
}

// quadraturePoints is the Gauss-Legendre order used on each sub-interval.
const quadraturePoints = 8

// Swaption prices a European swaption in closed form up to a one-dimensional
// integral over x(T) (Brigo-Mercurio, G2++ swaption formula). The integral
// covers mu_x ± rangeSD standard deviations split into intervals panels.
func (m *G2) Swaption(s SwaptionTerms, rangeSD float64, intervals int) (float64, error) {
	if err := s.validate(); err != nil {
		return 0, fmt.Errorf("Swaption: %w", err)
	}
	if rangeSD <= 0 || intervals <= 0 {
		return 0, fmt.Errorf("Swaption: range %g and intervals %d must be positive", rangeSD, intervals)
	}
	f, err := newSwaptionIntegrand(m, s)
	if err != nil {
		return 0, fmt.Errorf("Swaption: %w", err)
	}

	lo := f.mux - rangeSD*f.sigmax
	hi := f.mux + rangeSD*f.sigmax
	width := (hi - lo) / float64(intervals)
	integral := 0.0
	for k := 0; k < intervals; k++ {
		a := lo + float64(k)*width
		integral += quad.Fixed(f.eval, a, a+width, quadraturePoints, quad.Legendre{}, 0)
	}
	if f.err != nil {
		return 0, fmt.Errorf("Swaption: %w", f.err)
	}
	return s.Notional * f.w * m.curve.Discount(s.Exercise) * integral, nil
}

type swaptionIntegrand struct {
	w                   float64
	mux, muy            float64
	sigmax, sigmay      float64
	rhoxy, txy          float64
	coupons, aT, ba, bb []float64
	lambda              []float64
	phi                 distuv.Normal
	err                 error
}

func newSwaptionIntegrand(m *G2, s SwaptionTerms) (*swaptionIntegrand, error) {
	p := m.Params()
	a, b, sigma, eta, rho := p.A, p.B, p.Sigma, p.Eta, p.Rho
	T := s.Exercise

	f := &swaptionIntegrand{w: -1, phi: distuv.UnitNormal}
	if s.Payer {
		f.w = 1
	}
	f.mux = -((sigma*sigma/(a*a)+rho*sigma*eta/(a*b))*(1-math.Exp(-a*T)) -
		0.5*sigma*sigma/(a*a)*(1-math.Exp(-2*a*T)) -
		rho*sigma*eta/(b*(a+b))*(1-math.Exp(-(b+a)*T)))
	f.muy = -((eta*eta/(b*b)+rho*sigma*eta/(a*b))*(1-math.Exp(-b*T)) -
		0.5*eta*eta/(b*b)*(1-math.Exp(-2*b*T)) -
		rho*sigma*eta/(a*(a+b))*(1-math.Exp(-(b+a)*T)))
	f.sigmax = p.StdDevX(T)
	f.sigmay = p.StdDevY(T)
	f.rhoxy = rho * eta * sigma * (1 - math.Exp(-(a+b)*T)) / ((a + b) * f.sigmax * f.sigmay)
	if math.Abs(f.rhoxy) >= 1 {
		return nil, fmt.Errorf("degenerate factor correlation %g at T=%g", f.rhoxy, T)
	}
	f.txy = math.Sqrt(1 - f.rhoxy*f.rhoxy)

	n := len(s.PayTimes)
	f.coupons = make([]float64, n)
	f.aT = make([]float64, n)
	f.ba = make([]float64, n)
	f.bb = make([]float64, n)
	f.lambda = make([]float64, n)
	for i, t := range s.PayTimes {
		f.coupons[i] = s.Strike * s.Accruals[i]
		f.aT[i] = m.a(p, T, t)
		f.ba[i] = B(a, t-T)
		f.bb[i] = B(b, t-T)
	}
	f.coupons[n-1] += 1
	return f, nil
}

func (f *swaptionIntegrand) eval(x float64) float64 {
	for i := range f.lambda {
		f.lambda[i] = f.coupons[i] * f.aT[i] * math.Exp(-f.ba[i]*x)
	}
	yb, err := f.criticalY()
	if err != nil {
		if f.err == nil {
			f.err = err
		}
		return 0
	}

	h1 := (yb-f.muy)/(f.sigmay*f.txy) - f.rhoxy*(x-f.mux)/(f.sigmax*f.txy)
	value := f.phi.CDF(-f.w * h1)
	for i, bb := range f.bb {
		h2 := h1 + bb*f.sigmay*f.txy
		kappa := -bb * (f.muy - 0.5*f.txy*f.txy*f.sigmay*f.sigmay*bb + f.rhoxy*f.sigmay*(x-f.mux)/f.sigmax)
		value -= f.lambda[i] * math.Exp(kappa) * f.phi.CDF(-f.w*h2)
	}
	z := (x - f.mux) / f.sigmax
	return math.Exp(-0.5*z*z) * value / (f.sigmax * math.Sqrt(2*math.Pi))
}

// criticalY solves sum(lambda_i exp(-Bb_i y)) = 1, decreasing in y.
func (f *swaptionIntegrand) criticalY() (float64, error) {
	g := func(y float64) float64 {
		v := -1.0
		for i, l := range f.lambda {
			v += l * math.Exp(-f.bb[i]*y)
		}
		return v
	}
	lo, hi, err := solver.Bracket(g, -0.1, 0.1, -100, 100, 100)
	if err != nil {
		return 0, fmt.Errorf("critical y: %w", err)
	}
	return solver.Brent(g, lo, hi, 1e-12, 1000)
}
