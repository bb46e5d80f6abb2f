package fdm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// mesher holds the nodes of one factor at the normal quantiles of
// (invEps, 1-invEps) scaled by the factor's deviation. Nodes cluster around
// zero and thin out in the tails; an odd size puts a node on zero.
type mesher struct {
	locs []float64
}

func newMesher(size int, std, invEps float64) *mesher {
	dp := (1 - 2*invEps) / float64(size-1)
	locs := make([]float64, size)
	for i := 0; i < (size+1)/2; i++ {
		locs[i] = std * distuv.UnitNormal.Quantile(invEps+float64(i)*dp)
		locs[size-1-i] = -locs[i]
	}
	if size%2 == 1 {
		locs[size/2] = 0
	}
	return &mesher{locs: locs}
}

func (m *mesher) size() int { return len(m.locs) }

func (m *mesher) dminus(i int) float64 { return m.locs[i] - m.locs[i-1] }
func (m *mesher) dplus(i int) float64  { return m.locs[i+1] - m.locs[i] }

// minSpacing is the narrowest gap between neighbouring nodes.
func (m *mesher) minSpacing() float64 {
	h := math.Inf(1)
	for i := 1; i < len(m.locs); i++ {
		h = math.Min(h, m.dminus(i))
	}
	return h
}

// stencil is a derivative at one node as weights on at most three nodes.
type stencil struct {
	idx [3]int
	w   [3]float64
}

// firstDerivative is central inside, exact for quadratics on the uneven
// spacing, and one-sided at the two edges.
func (m *mesher) firstDerivative(i int) stencil {
	n := len(m.locs)
	switch i {
	case 0:
		h := m.dplus(0)
		return stencil{idx: [3]int{0, 1, 1}, w: [3]float64{-1 / h, 1 / h, 0}}
	case n - 1:
		h := m.dminus(i)
		return stencil{idx: [3]int{i - 1, i, i}, w: [3]float64{-1 / h, 1 / h, 0}}
	}
	hm, hp := m.dminus(i), m.dplus(i)
	return stencil{
		idx: [3]int{i - 1, i, i + 1},
		w:   [3]float64{-hp / (hm * (hm + hp)), (hp - hm) / (hm * hp), hm / (hp * (hm + hp))},
	}
}

// secondDerivative is defined at interior nodes only.
func (m *mesher) secondDerivative(i int) stencil {
	hm, hp := m.dminus(i), m.dplus(i)
	return stencil{
		idx: [3]int{i - 1, i, i + 1},
		w:   [3]float64{2 / (hm * (hm + hp)), -2 / (hm * hp), 2 / (hp * (hm + hp))},
	}
}

// bracket returns i and the weight w such that v = (1-w) locs[i] + w locs[i+1].
func (m *mesher) bracket(v float64) (int, float64) {
	n := len(m.locs)
	i := sort.SearchFloat64s(m.locs, v) - 1
	i = max(0, min(i, n-2))
	return i, (v - m.locs[i]) / m.dplus(i)
}
