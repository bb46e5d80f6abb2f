package swaption

import (
	"fmt"

	"github.com/meenmo/g2lib/model"
)

// Engine prices an Exercise under a model snapshot. Implementations are the
// analytic formula (European only), the lattice and the finite-difference
// scheme.
type Engine interface {
	Price(m *model.G2, e *Exercise) (float64, error)
}

// AnalyticEngine is the closed-form G2++ European swaption pricer used as the
// calibration objective.
type AnalyticEngine struct {
	Range     float64
	Intervals int
}

func NewAnalyticEngine(rangeSD float64, intervals int) *AnalyticEngine {
	return &AnalyticEngine{Range: rangeSD, Intervals: intervals}
}

func (a *AnalyticEngine) Price(m *model.G2, e *Exercise) (float64, error) {
	terms, err := e.terms()
	if err != nil {
		return 0, fmt.Errorf("AnalyticEngine: %w", err)
	}
	return m.Swaption(terms, a.Range, a.Intervals)
}
