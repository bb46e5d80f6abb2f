package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// sigmaP is the volatility of log P(T, S) seen from 0.
func (p Params) sigmaP(T, S float64) float64 {
	a, b := p.A, p.B
	temp := 1 - math.Exp(-(a+b)*T)
	temp1 := 1 - math.Exp(-a*(S-T))
	temp2 := 1 - math.Exp(-b*(S-T))
	v := 0.5*p.Sigma*p.Sigma*temp1*temp1*(1-math.Exp(-2*a*T))/(a*a*a) +
		0.5*p.Eta*p.Eta*temp2*temp2*(1-math.Exp(-2*b*T))/(b*b*b) +
		2*p.Rho*p.Sigma*p.Eta/(a*b*(a+b))*temp1*temp2*temp
	return math.Sqrt(v)
}

// ZeroBondOption prices an option expiring at T on the zero bond maturing at
// S, per unit face.
func (m *G2) ZeroBondOption(call bool, strike, T, S float64) float64 {
	v := m.Params().sigmaP(T, S)
	f := m.curve.Discount(S)
	k := m.curve.Discount(T) * strike
	if v <= 0 {
		if call {
			return math.Max(f-k, 0)
		}
		return math.Max(k-f, 0)
	}
	d1 := math.Log(f/k)/v + 0.5*v
	d2 := d1 - v
	n := distuv.UnitNormal
	if call {
		return f*n.CDF(d1) - k*n.CDF(d2)
	}
	return k*n.CDF(-d2) - f*n.CDF(-d1)
}
