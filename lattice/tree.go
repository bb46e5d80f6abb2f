// Package lattice prices on a recombining two-factor trinomial tree for the
// G2++ factors. The x factor branches as an Ornstein-Uhlenbeck trinomial
// tree; y branches conditionally on the chosen x child so that means,
// variances and the covariance of each step are matched exactly.
package lattice

import (
	"fmt"
	"math"

	"github.com/meenmo/g2lib/grid"
	"github.com/meenmo/g2lib/model"
)

// probTolerance absorbs round-off in branch probabilities.
const probTolerance = 1e-12

// NodeError reports a node whose branching is invalid or a slice that is
// too large.
type NodeError struct {
	Step   int
	Time   float64
	J, L   int
	Reason string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("lattice: step %d (t=%.6f) node (%d,%d): %s", e.Step, e.Time, e.J, e.L, e.Reason)
}

// step holds the moments of one grid interval and the spacing of the slice it
// leads into.
type step struct {
	dt       float64
	decayX   float64
	decayY   float64
	varX     float64
	condVarY float64
	beta     float64
	dx, dy   float64 // spacing of the next slice
}

// slice is the rectangle of node indexes at one grid time.
type slice struct {
	jMin, jMax int
	lMin, lMax int
	dx, dy     float64
	phi        float64 // shift applied over the interval that starts here
}

func (s *slice) nx() int   { return s.jMax - s.jMin + 1 }
func (s *slice) ny() int   { return s.lMax - s.lMin + 1 }
func (s *slice) size() int { return s.nx() * s.ny() }

func (s *slice) index(j, l int) int { return (j-s.jMin)*s.ny() + (l - s.lMin) }

type branch struct {
	j, l int
	p    float64
}

// Tree is a G2++ lattice fitted to the model's curve on a TimeGrid.
type Tree struct {
	model  *model.G2
	grid   *grid.TimeGrid
	steps  []step
	slices []slice
}

// Build lays out the tree slice by slice and fits the shift of every interval
// from Arrow-Debreu prices so the tree reprices the curve's zero bonds.
func Build(m *model.G2, g *grid.TimeGrid, maxNodes int) (*Tree, error) {
	p := m.Params()
	n := g.Len() - 1
	t := &Tree{
		model:  m,
		grid:   g,
		steps:  make([]step, n),
		slices: make([]slice, n+1),
	}
	for i := 0; i < n; i++ {
		dt := g.Dt(i)
		mom := p.FactorStep(dt)
		if mom.VarX <= 0 || mom.VarY <= 0 {
			return nil, &NodeError{Step: i, Time: g.At(i), Reason: "non-positive factor variance"}
		}
		cond := mom.VarY - mom.Cov*mom.Cov/mom.VarX
		if cond <= 1e-12*mom.VarY {
			return nil, &NodeError{Step: i, Time: g.At(i), Reason: fmt.Sprintf("factors perfectly correlated (rho=%g)", p.Rho)}
		}
		t.steps[i] = step{
			dt:       dt,
			decayX:   mom.DecayX,
			decayY:   mom.DecayY,
			varX:     mom.VarX,
			condVarY: cond,
			beta:     mom.Cov / mom.VarX,
			dx:       math.Sqrt(3 * mom.VarX),
			dy:       math.Sqrt(3 * cond),
		}
	}

	t.slices[0] = slice{}
	for i := 0; i < n; i++ {
		next, err := t.nextSlice(i)
		if err != nil {
			return nil, err
		}
		if next.size() > maxNodes {
			return nil, &NodeError{Step: i + 1, Time: g.At(i + 1), J: next.nx(), L: next.ny(),
				Reason: fmt.Sprintf("%d nodes exceed the limit of %d", next.size(), maxNodes)}
		}
		t.slices[i+1] = next
	}
	if err := t.fitShift(); err != nil {
		return nil, err
	}
	return t, nil
}

// nextSlice bounds the children of slice i.
func (t *Tree) nextSlice(i int) (slice, error) {
	cur, st := &t.slices[i], &t.steps[i]
	next := slice{dx: st.dx, dy: st.dy, jMin: math.MaxInt, jMax: math.MinInt, lMin: math.MaxInt, lMax: math.MinInt}
	for j := cur.jMin; j <= cur.jMax; j++ {
		mx := float64(j) * cur.dx * st.decayX
		k := int(math.Round(mx / st.dx))
		next.jMin = min(next.jMin, k-1)
		next.jMax = max(next.jMax, k+1)
		for d := -1; d <= 1; d++ {
			shift := st.beta * (float64(k+d)*st.dx - mx)
			for _, l := range []int{cur.lMin, cur.lMax} {
				c := int(math.Round((float64(l)*cur.dy*st.decayY + shift) / st.dy))
				next.lMin = min(next.lMin, c-1)
				next.lMax = max(next.lMax, c+1)
			}
		}
	}
	if next.jMin > next.jMax || next.lMin > next.lMax {
		return slice{}, &NodeError{Step: i, Time: t.grid.At(i), Reason: "empty slice"}
	}
	return next, nil
}

// trinomial returns (down, middle, up) probabilities matching offset e and
// variance v on spacing d.
func trinomial(e, v, d float64) [3]float64 {
	d2 := d * d
	s := (v + e*e) / d2
	return [3]float64{0.5*s - e/(2*d), 1 - s, 0.5*s + e/(2*d)}
}

// branches writes the nine children of node (j, l) of slice i.
func (t *Tree) branches(i, j, l int, out *[9]branch) {
	cur, st := &t.slices[i], &t.steps[i]
	mx := float64(j) * cur.dx * st.decayX
	k := int(math.Round(mx / st.dx))
	px := trinomial(mx-float64(k)*st.dx, st.varX, st.dx)
	yDecayed := float64(l) * cur.dy * st.decayY
	n := 0
	for a := 0; a < 3; a++ {
		kx := k + a - 1
		my := yDecayed + st.beta*(float64(kx)*st.dx-mx)
		c := int(math.Round(my / st.dy))
		py := trinomial(my-float64(c)*st.dy, st.condVarY, st.dy)
		for b := 0; b < 3; b++ {
			out[n] = branch{j: kx, l: c + b - 1, p: px[a] * py[b]}
			n++
		}
	}
}

// checkBranches validates probabilities of node (j, l) of slice i.
func (t *Tree) checkBranches(i, j, l int, br *[9]branch) error {
	sum := 0.0
	for _, b := range br {
		if b.p < -probTolerance || b.p > 1+probTolerance || math.IsNaN(b.p) {
			return &NodeError{Step: i, Time: t.grid.At(i), J: j, L: l, Reason: fmt.Sprintf("probability %g out of [0,1]", b.p)}
		}
		sum += b.p
	}
	if math.Abs(sum-1) > 1e-10 {
		return &NodeError{Step: i, Time: t.grid.At(i), J: j, L: l, Reason: fmt.Sprintf("probabilities sum to %g", sum)}
	}
	return nil
}

// fitShift runs Arrow-Debreu prices forward. The shift of interval i solves
// sum Q_i exp(-(phi_i + x + y) dt_i) = P(0, t_{i+1}) in closed form.
func (t *Tree) fitShift() error {
	curve := t.model.Curve()
	q := []float64{1}
	var br [9]branch
	for i := range t.steps {
		cur, st := &t.slices[i], &t.steps[i]
		ex, ey := t.stateDiscounts(i)

		sum := 0.0
		for j := cur.jMin; j <= cur.jMax; j++ {
			for l := cur.lMin; l <= cur.lMax; l++ {
				if v := q[cur.index(j, l)]; v != 0 {
					sum += v * ex[j-cur.jMin] * ey[l-cur.lMin]
				}
			}
		}
		target := curve.Discount(t.grid.At(i + 1))
		if sum <= 0 || target <= 0 {
			return &NodeError{Step: i, Time: t.grid.At(i), Reason: "cannot fit the shift"}
		}
		cur.phi = math.Log(sum/target) / st.dt
		df := math.Exp(-cur.phi * st.dt)

		next := &t.slices[i+1]
		qn := make([]float64, next.size())
		for j := cur.jMin; j <= cur.jMax; j++ {
			for l := cur.lMin; l <= cur.lMax; l++ {
				v := q[cur.index(j, l)]
				t.branches(i, j, l, &br)
				if err := t.checkBranches(i, j, l, &br); err != nil {
					return err
				}
				if v == 0 {
					continue
				}
				v *= df * ex[j-cur.jMin] * ey[l-cur.lMin]
				for _, b := range br {
					qn[next.index(b.j, b.l)] += v * b.p
				}
			}
		}
		q = qn
	}
	return nil
}

// stateDiscounts returns exp(-x dt) per row and exp(-y dt) per column of
// slice i.
func (t *Tree) stateDiscounts(i int) ([]float64, []float64) {
	cur, dt := &t.slices[i], t.steps[i].dt
	ex := make([]float64, cur.nx())
	for j := range ex {
		ex[j] = math.Exp(-float64(j+cur.jMin) * cur.dx * dt)
	}
	ey := make([]float64, cur.ny())
	for l := range ey {
		ey[l] = math.Exp(-float64(l+cur.lMin) * cur.dy * dt)
	}
	return ex, ey
}

// Grid is the time grid the tree was built on.
func (t *Tree) Grid() *grid.TimeGrid { return t.grid }

// Phi is the fitted shift of interval i.
func (t *Tree) Phi(i int) float64 { return t.slices[i].phi }

// Nodes counts the nodes of slice i.
func (t *Tree) Nodes(i int) int { return t.slices[i].size() }

// State returns the factor values of node (j, l) of slice i.
func (t *Tree) State(i, j, l int) (x, y float64) {
	s := &t.slices[i]
	return float64(j) * s.dx, float64(l) * s.dy
}
