package lattice

import (
	"fmt"

	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/grid"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/swaption"
)

// Engine prices swaptions on a Tree built per valuation.
type Engine struct {
	Steps    int
	MaxNodes int
}

func NewEngine(cfg config.LatticeConfig) *Engine {
	return &Engine{Steps: cfg.Steps, MaxNodes: cfg.MaxNodes}
}

// Price values e by backward induction, exercising optimally at each of its
// exercise times.
func (en *Engine) Price(m *model.G2, e *swaption.Exercise) (float64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("lattice: %w", err)
	}
	g, err := grid.New(e.Times, en.Steps)
	if err != nil {
		return 0, fmt.Errorf("lattice: %w", err)
	}
	snap := m.Snapshot()
	tree, err := Build(snap, g, en.MaxNodes)
	if err != nil {
		return 0, err
	}

	exercise := make(map[int]Payoff, len(e.Times))
	for k, te := range e.Times {
		i, err := g.Index(te)
		if err != nil {
			return 0, fmt.Errorf("lattice: %w", err)
		}
		exercise[i] = e.Payoff(snap, k)
	}
	zero := func(x, y float64) float64 { return 0 }
	return tree.Rollback(zero, exercise), nil
}

// ZeroBond prices the unit bond maturing at T on the tree.
func (en *Engine) ZeroBond(m *model.G2, T float64) (float64, error) {
	g, err := grid.New([]float64{T}, en.Steps)
	if err != nil {
		return 0, fmt.Errorf("lattice: %w", err)
	}
	tree, err := Build(m.Snapshot(), g, en.MaxNodes)
	if err != nil {
		return 0, err
	}
	return tree.Rollback(func(x, y float64) float64 { return 1 }, nil), nil
}
