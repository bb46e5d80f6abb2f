package lattice

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Payoff is a claim value as a function of the factor state.
type Payoff func(x, y float64) float64

// Rollback values a claim paying terminal at the last grid time. At grid
// indexes present in exercise, the holder takes max(continuation, payoff).
// Each slice is final before the previous one is computed; rows of a slice
// are evaluated concurrently.
func (t *Tree) Rollback(terminal Payoff, exercise map[int]Payoff) float64 {
	n := len(t.steps)
	last := &t.slices[n]
	values := make([]float64, last.size())
	t.fill(n, values, func(x, y float64, _ float64) float64 { return terminal(x, y) })
	if pay, ok := exercise[n]; ok {
		t.fill(n, values, func(x, y float64, v float64) float64 { return math.Max(v, pay(x, y)) })
	}

	for i := n - 1; i >= 0; i-- {
		cur := &t.slices[i]
		next := values
		values = make([]float64, cur.size())
		ex, ey := t.stateDiscounts(i)
		df := math.Exp(-cur.phi * t.steps[i].dt)
		nextSlice := &t.slices[i+1]

		t.forRows(cur, func(jFrom, jTo int) {
			var br [9]branch
			for j := jFrom; j < jTo; j++ {
				for l := cur.lMin; l <= cur.lMax; l++ {
					t.branches(i, j, l, &br)
					c := 0.0
					for _, b := range br {
						c += b.p * next[nextSlice.index(b.j, b.l)]
					}
					values[cur.index(j, l)] = c * df * ex[j-cur.jMin] * ey[l-cur.lMin]
				}
			}
		})
		if pay, ok := exercise[i]; ok {
			t.fill(i, values, func(x, y float64, cont float64) float64 { return math.Max(cont, pay(x, y)) })
		}
	}
	return values[0]
}

// fill replaces every value of slice i with f(x, y, value).
func (t *Tree) fill(i int, values []float64, f func(x, y, v float64) float64) {
	s := &t.slices[i]
	t.forRows(s, func(jFrom, jTo int) {
		for j := jFrom; j < jTo; j++ {
			x := float64(j) * s.dx
			for l := s.lMin; l <= s.lMax; l++ {
				k := s.index(j, l)
				values[k] = f(x, float64(l)*s.dy, values[k])
			}
		}
	})
}

// forRows splits the rows of s into blocks, one goroutine per block.
func (t *Tree) forRows(s *slice, work func(jFrom, jTo int)) {
	rows := s.nx()
	blocks := min(runtime.GOMAXPROCS(0), rows)
	if s.size() < 4096 {
		blocks = 1
	}
	var g errgroup.Group
	for b := 0; b < blocks; b++ {
		from := s.jMin + b*rows/blocks
		to := s.jMin + (b+1)*rows/blocks
		g.Go(func() error {
			work(from, to)
			return nil
		})
	}
	_ = g.Wait()
}
