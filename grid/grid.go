package grid

import (
	"fmt"
	"math"
	"sort"
)

// closeEnough is the tolerance under which two times are the same grid point.
const closeEnough = 1e-10

// TimeGrid is a strictly increasing set of times starting at 0 that contains
// every mandatory time.
type TimeGrid struct {
	times     []float64
	mandatory []float64
}

// New spreads roughly steps intervals over [0, max(mandatory)], splitting each
// span between consecutive mandatory times evenly with at least one step.
func New(mandatory []float64, steps int) (*TimeGrid, error) {
	if steps < 1 {
		return nil, fmt.Errorf("grid.New: steps %d must be positive", steps)
	}
	m := make([]float64, 0, len(mandatory))
	for _, t := range mandatory {
		if math.IsNaN(t) || t < 0 {
			return nil, fmt.Errorf("grid.New: invalid mandatory time %g", t)
		}
		m = append(m, t)
	}
	sort.Float64s(m)
	m = dedup(m)
	if len(m) == 0 || m[len(m)-1] <= closeEnough {
		return nil, fmt.Errorf("grid.New: no positive mandatory time")
	}

	end := m[len(m)-1]
	dtMax := end / float64(steps)
	times := []float64{0}
	prev := 0.0
	for _, next := range m {
		if next <= closeEnough {
			continue
		}
		n := int(math.Round((next - prev) / dtMax))
		if n < 1 {
			n = 1
		}
		dt := (next - prev) / float64(n)
		for i := 1; i < n; i++ {
			times = append(times, prev+float64(i)*dt)
		}
		times = append(times, next)
		prev = next
	}
	return &TimeGrid{times: times, mandatory: m}, nil
}

func dedup(sorted []float64) []float64 {
	out := sorted[:0]
	for _, t := range sorted {
		if len(out) > 0 && t-out[len(out)-1] <= closeEnough {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (g *TimeGrid) Len() int { return len(g.times) }
func (g *TimeGrid) At(i int) float64 { return g.times[i] }
func (g *TimeGrid) Times() []float64 { return append([]float64(nil), g.times...) }
func (g *TimeGrid) Mandatory() []float64 { return append([]float64(nil), g.mandatory...) }
func (g *TimeGrid) Dt(i int) float64 { return g.times[i+1] - g.times[i] }
func (g *TimeGrid) Last() float64 { return g.times[len(g.times)-1] }

// Index returns the position of t on the grid.
func (g *TimeGrid) Index(t float64) (int, error) {
	i := sort.SearchFloat64s(g.times, t-closeEnough)
	if i < len(g.times) && math.Abs(g.times[i]-t) <= closeEnough {
		return i, nil
	}
	return 0, fmt.Errorf("grid: time %g is not a grid point", t)
}
