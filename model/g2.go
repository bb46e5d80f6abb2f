package model

import (
	"fmt"
	"math"
	"sync"
)

// DiscountCurve is the initial term structure the model is fitted to.
type DiscountCurve interface {
	Discount(t float64) float64
}

// G2 is the two-factor Gaussian short-rate model
//
//	r(t) = x(t) + y(t) + phi(t)
//	dx = -a x dt + sigma dW1,  dy = -b y dt + eta dW2,  dW1 dW2 = rho dt
//
// with phi fitted so that P(0, T) reproduces the curve exactly.
//
// Parameters change only through SetParams (calibration is the single
// writer). Pricers take a Snapshot and never see later updates.
type G2 struct {
	curve DiscountCurve

	mu     sync.RWMutex
	params Params
}

func NewG2(curve DiscountCurve, p Params) (*G2, error) {
	if curve == nil {
		return nil, fmt.Errorf("NewG2: nil curve")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("NewG2: %w", err)
	}
	return &G2{curve: curve, params: p}, nil
}

func (m *G2) Curve() DiscountCurve { return m.curve }

func (m *G2) Params() Params {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params
}

// SetParams replaces the parameters in place.
func (m *G2) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("SetParams: %w", err)
	}
	m.mu.Lock()
	m.params = p
	m.mu.Unlock()
	return nil
}

// WithParams returns an independent model on the same curve.
func (m *G2) WithParams(p Params) (*G2, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("WithParams: %w", err)
	}
	return &G2{curve: m.curve, params: p}, nil
}

// Snapshot freezes the current parameters into a new model.
func (m *G2) Snapshot() *G2 {
	return &G2{curve: m.curve, params: m.Params()}
}

// A is the deterministic factor of the bond price P(t, T).
func (m *G2) A(t, T float64) float64 {
	return m.a(m.Params(), t, T)
}

func (m *G2) a(p Params, t, T float64) float64 {
	return m.curve.Discount(T) / m.curve.Discount(t) * math.Exp(0.5*(p.V(T-t)-p.V(T)+p.V(t)))
}

// DiscountBond is P(t, T) given the factor state (x, y) at t.
func (m *G2) DiscountBond(t, T, x, y float64) float64 {
	p := m.Params()
	return m.a(p, t, T) * math.Exp(-B(p.A, T-t)*x-B(p.B, T-t)*y)
}

// PhiIntegral is the integral of phi over [t1, t2].
func (m *G2) PhiIntegral(t1, t2 float64) float64 {
	p := m.Params()
	return math.Log(m.curve.Discount(t1)) - math.Log(m.curve.Discount(t2)) + 0.5*(p.V(t2)-p.V(t1))
}

// Phi is the instantaneous shift at t.
func (m *G2) Phi(t float64) float64 {
	const h = 1e-4
	p := m.Params()
	lo := math.Max(t-h, 0)
	fwd := (math.Log(m.curve.Discount(lo)) - math.Log(m.curve.Discount(lo+2*h))) / (2 * h)
	ea := 1 - math.Exp(-p.A*t)
	eb := 1 - math.Exp(-p.B*t)
	return fwd +
		0.5*p.Sigma*p.Sigma/(p.A*p.A)*ea*ea +
		0.5*p.Eta*p.Eta/(p.B*p.B)*eb*eb +
		p.Rho*p.Sigma*p.Eta/(p.A*p.B)*ea*eb
}

// Coefficients of the backward pricing PDE over [t1, t2]:
//
//	V_t + 1/2 s_x^2 V_xx + 1/2 s_y^2 V_yy + rho s_x s_y V_xy - a x V_x - b y V_y - (x + y + Shift) V = 0
type Coefficients struct {
	MeanRevX float64
	MeanRevY float64
	VarX     float64 // sigma^2
	VarY     float64 // eta^2
	CovXY    float64 // rho*sigma*eta
	Shift    float64 // average phi over the step
}

func (m *G2) Coefficients(t1, t2 float64) Coefficients {
	p := m.Params()
	shift := m.Phi(t1)
	if t2 > t1 {
		shift = m.PhiIntegral(t1, t2) / (t2 - t1)
	}
	return Coefficients{
		MeanRevX: p.A,
		MeanRevY: p.B,
		VarX:     p.Sigma * p.Sigma,
		VarY:     p.Eta * p.Eta,
		CovXY:    p.Rho * p.Sigma * p.Eta,
		Shift:    shift,
	}
}
