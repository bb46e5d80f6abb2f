package fdm

import (
	"github.com/meenmo/g2lib/model"
)

// tridiag holds the three bands of a one-dimensional operator.
type tridiag struct {
	lower, diag, upper []float64
}

func newTridiag(n int) *tridiag {
	return &tridiag{lower: make([]float64, n), diag: make([]float64, n), upper: make([]float64, n)}
}

// axisOp builds 1/2 v D2 - k z D1 - (z + shift/2) on one axis. Edges use a
// one-sided first derivative and no curvature.
func axisOp(m *mesher, halfVar, meanRev, shift float64, op *tridiag) {
	n := m.size()
	for i, z := range m.locs {
		drift := -meanRev * z
		rate := z + 0.5*shift
		d1 := m.firstDerivative(i)
		switch i {
		case 0:
			op.lower[i] = 0
			op.diag[i] = drift*d1.w[0] - rate
			op.upper[i] = drift * d1.w[1]
		case n - 1:
			op.lower[i] = drift * d1.w[0]
			op.diag[i] = drift*d1.w[1] - rate
			op.upper[i] = 0
		default:
			d2 := m.secondDerivative(i)
			op.lower[i] = halfVar*d2.w[0] + drift*d1.w[0]
			op.diag[i] = halfVar*d2.w[1] + drift*d1.w[1] - rate
			op.upper[i] = halfVar*d2.w[2] + drift*d1.w[2]
		}
	}
}

// apply writes op*line into out for a strided line of a flat array.
func (op *tridiag) apply(u []float64, start, stride, n int, out []float64) {
	for i := 0; i < n; i++ {
		v := op.diag[i] * u[start+i*stride]
		if i > 0 {
			v += op.lower[i] * u[start+(i-1)*stride]
		}
		if i < n-1 {
			v += op.upper[i] * u[start+(i+1)*stride]
		}
		out[i] = v
	}
}

// solveImplicit solves (I - c op) v = rhs with the Thomas algorithm; scratch
// must have length n.
func (op *tridiag) solveImplicit(c float64, rhs, v, scratch []float64) {
	n := len(rhs)
	b := 1 - c*op.diag[0]
	v[0] = rhs[0] / b
	for i := 1; i < n; i++ {
		scratch[i] = -c * op.upper[i-1] / b
		b = 1 - c*op.diag[i] - (-c*op.lower[i])*scratch[i]
		v[i] = (rhs[i] - (-c*op.lower[i])*v[i-1]) / b
	}
	for i := n - 2; i >= 0; i-- {
		v[i] -= scratch[i+1] * v[i+1]
	}
}

// mixed adds rho sigma eta V_xy to out as the product of the two first
// derivative stencils.
func mixed(u []float64, mx, my *mesher, cov float64, out []float64) {
	nx, ny := mx.size(), my.size()
	sy := make([]stencil, ny)
	for j := range sy {
		sy[j] = my.firstDerivative(j)
	}
	parallel(nx, func(from, to int) {
		for i := from; i < to; i++ {
			sx := mx.firstDerivative(i)
			for j := 0; j < ny; j++ {
				d := 0.0
				for a, wa := range sx.w {
					if wa == 0 {
						continue
					}
					row := sx.idx[a] * ny
					for b, wb := range sy[j].w {
						d += wa * wb * u[row+sy[j].idx[b]]
					}
				}
				out[i*ny+j] += cov * d
			}
		}
	})
}

// operators assembles the split operators for the step [t1, t2].
func operators(m *model.G2, mx, my *mesher, t1, t2 float64, opX, opY *tridiag) model.Coefficients {
	c := m.Coefficients(t1, t2)
	axisOp(mx, 0.5*c.VarX, c.MeanRevX, c.Shift, opX)
	axisOp(my, 0.5*c.VarY, c.MeanRevY, c.Shift, opY)
	return c
}
