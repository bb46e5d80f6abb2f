package model

import (
	"fmt"
	"math"
)

// NumParams is the dimension of the G2++ parameter vector.
const NumParams = 5

// Params are the G2++ parameters: mean reversion and volatility of each
// factor plus their instantaneous correlation.
type Params struct {
	A     float64
	Sigma float64
	B     float64
	Eta   float64
	Rho   float64
}

// Validate enforces a, b, sigma, eta > 0 and -1 <= rho <= 1.
func (p Params) Validate() error {
	for _, v := range p.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("Validate: non-finite parameter in %v", p)
		}
	}
	switch {
	case p.A <= 0:
		return fmt.Errorf("Validate: a must be positive, got %g", p.A)
	case p.B <= 0:
		return fmt.Errorf("Validate: b must be positive, got %g", p.B)
	case p.Sigma <= 0:
		return fmt.Errorf("Validate: sigma must be positive, got %g", p.Sigma)
	case p.Eta <= 0:
		return fmt.Errorf("Validate: eta must be positive, got %g", p.Eta)
	case p.Rho < -1 || p.Rho > 1:
		return fmt.Errorf("Validate: rho must be in [-1, 1], got %g", p.Rho)
	}
	return nil
}

// Vector returns (a, sigma, b, eta, rho).
func (p Params) Vector() []float64 {
	return []float64{p.A, p.Sigma, p.B, p.Eta, p.Rho}
}

// ParamsFromVector is the inverse of Vector.
func ParamsFromVector(v []float64) Params {
	return Params{A: v[0], Sigma: v[1], B: v[2], Eta: v[3], Rho: v[4]}
}

func (p Params) String() string {
	return fmt.Sprintf("a=%.6g sigma=%.6g b=%.6g eta=%.6g rho=%.6g", p.A, p.Sigma, p.B, p.Eta, p.Rho)
}

// B is (1 - exp(-k t)) / k.
func B(k, t float64) float64 {
	return (1 - math.Exp(-k*t)) / k
}

// V is the variance of the integral of x + y over [0, t].
func (p Params) V(t float64) float64 {
	expat := math.Exp(-p.A * t)
	expbt := math.Exp(-p.B * t)
	cx := p.Sigma / p.A
	cy := p.Eta / p.B
	vx := cx * cx * (t + (2*expat-0.5*expat*expat-1.5)/p.A)
	vy := cy * cy * (t + (2*expbt-0.5*expbt*expbt-1.5)/p.B)
	vxy := 2 * p.Rho * cx * cy * (t + (expat-1)/p.A + (expbt-1)/p.B - (expat*expbt-1)/(p.A+p.B))
	return vx + vy + vxy
}

// StdDevX is the standard deviation of x(t) started at 0.
func (p Params) StdDevX(t float64) float64 {
	return p.Sigma * math.Sqrt(0.5*(1-math.Exp(-2*p.A*t))/p.A)
}

// StdDevY is the standard deviation of y(t) started at 0.
func (p Params) StdDevY(t float64) float64 {
	return p.Eta * math.Sqrt(0.5*(1-math.Exp(-2*p.B*t))/p.B)
}

// StepMoments are the exact conditional moments of (x, y) over one step:
// x(t+dt) ~ DecayX*x(t) + N(0, VarX), likewise y, with covariance Cov.
type StepMoments struct {
	DecayX float64
	DecayY float64
	VarX   float64
	VarY   float64
	Cov    float64
}

// FactorStep returns the OU transition moments over dt.
func (p Params) FactorStep(dt float64) StepMoments {
	return StepMoments{
		DecayX: math.Exp(-p.A * dt),
		DecayY: math.Exp(-p.B * dt),
		VarX:   p.Sigma * p.Sigma * (1 - math.Exp(-2*p.A*dt)) / (2 * p.A),
		VarY:   p.Eta * p.Eta * (1 - math.Exp(-2*p.B*dt)) / (2 * p.B),
		Cov:    p.Rho * p.Sigma * p.Eta * (1 - math.Exp(-(p.A+p.B)*dt)) / (p.A + p.B),
	}
}
