package fdm

import (
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/curve"
	"github.com/meenmo/g2lib/lattice"
	"github.com/meenmo/g2lib/marketdata"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/swaption"
	"github.com/meenmo/g2lib/utils"
)

var testParams = model.Params{A: 0.08, Sigma: 0.012, B: 0.4, Eta: 0.008, Rho: -0.6}

func flatModel(t *testing.T) (*curve.Curve, *model.G2) {
	t.Helper()
	c := curve.Flat(utils.Date(2023, time.August, 30), 0.04, 30)
	m, err := model.NewG2(c, testParams)
	require.NoError(t, err)
	return c, m
}

func defaultEngine() *Engine { return NewEngine(config.Default().FDM) }

func TestThomasSolve(t *testing.T) {
	t.Parallel()

	op := &tridiag{
		lower: []float64{0, 1, 2, 1},
		diag:  []float64{-3, -4, -5, -2},
		upper: []float64{1, 1, 1, 0},
	}
	want := []float64{1, -2, 0.5, 3}
	const c = 0.7
	// rhs = (I - c op) want
	applied := make([]float64, 4)
	op.apply(want, 0, 1, 4, applied)
	rhs := make([]float64, 4)
	for i := range rhs {
		rhs[i] = want[i] - c*applied[i]
	}
	got := make([]float64, 4)
	op.solveImplicit(c, rhs, got, make([]float64, 4))
	for i := range want {
		require.InDelta(t, want[i], got[i], 1e-12)
	}
}

func TestMesherIsSymmetric(t *testing.T) {
	t.Parallel()

	m := newMesher(51, 0.02, 1e-5)
	require.Equal(t, 0.0, m.locs[25])
	require.Equal(t, -m.locs[0], m.locs[50])
	require.InDelta(t, 4.2649*0.02, m.locs[50], 1e-4)
	require.True(t, sort.Float64sAreSorted(m.locs))

	// nodes are densest at zero
	require.InDelta(t, m.minSpacing(), m.dplus(25), 1e-15)
	require.Greater(t, m.dplus(0), 10*m.dplus(25))

	h := m.dplus(10)
	i, w := m.bracket(m.locs[10] + 0.25*h)
	require.Equal(t, 10, i)
	require.InDelta(t, 0.25, w, 1e-9)
	i, _ = m.bracket(1)
	require.Equal(t, 49, i)
	i, w = m.bracket(0)
	require.InDelta(t, 0, m.locs[i]+w*m.dplus(i), 1e-15)
}

func TestStencilsExactOnQuadratics(t *testing.T) {
	t.Parallel()

	m := newMesher(21, 0.03, 1e-5)
	f := func(z float64) float64 { return 2 - 3*z + 7*z*z }
	apply := func(st stencil) float64 {
		v := 0.0
		for k, w := range st.w {
			v += w * f(m.locs[st.idx[k]])
		}
		return v
	}
	for i := 1; i < m.size()-1; i++ {
		z := m.locs[i]
		require.InDelta(t, -3+14*z, apply(m.firstDerivative(i)), 1e-9, "node %d", i)
		require.InDelta(t, 14, apply(m.secondDerivative(i)), 1e-7, "node %d", i)
	}
	// one-sided at the edges: exact on lines
	g := func(z float64) float64 { return 1 + 5*z }
	for _, i := range []int{0, m.size() - 1} {
		st := m.firstDerivative(i)
		v := 0.0
		for k, w := range st.w {
			v += w * g(m.locs[st.idx[k]])
		}
		require.InDelta(t, 5, v, 1e-9)
	}
}

func TestMixedDerivativeOfProduct(t *testing.T) {
	t.Parallel()

	mx := newMesher(15, 0.02, 1e-5)
	my := newMesher(11, 0.01, 1e-5)
	ny := my.size()
	u := make([]float64, mx.size()*ny)
	for i, x := range mx.locs {
		for j, y := range my.locs {
			u[i*ny+j] = 4 * x * y
		}
	}
	out := make([]float64, len(u))
	mixed(u, mx, my, 0.5, out)
	for k := range out {
		require.InDelta(t, 2, out[k], 1e-9)
	}
}

func TestZeroBondMatchesCurve(t *testing.T) {
	t.Parallel()

	c, m := flatModel(t)
	for _, T := range []float64{1, 3, 5} {
		p, err := defaultEngine().ZeroBond(m, T)
		require.NoError(t, err)
		require.InEpsilon(t, c.Discount(T), p, 1e-4, "T=%g", T)
	}
}

func TestEuropeanSwaptionMatchesAnalytic(t *testing.T) {
	t.Parallel()

	c, m := flatModel(t)
	h, err := swaption.NewHelper(utils.MustPeriod("2Y"), utils.MustPeriod("3Y"), marketdata.NewQuote(0.2), c, swaption.NewAnalyticEngine(6, 16))
	require.NoError(t, err)
	want, err := h.ModelValue(m)
	require.NoError(t, err)

	for _, scheme := range []Scheme{Douglas, Hundsdorfer} {
		en := defaultEngine()
		en.Scheme = scheme
		if scheme == Douglas {
			en.Theta = 0.5
		}
		got, err := en.Price(m, h.Terms())
		require.NoError(t, err)
		require.InEpsilon(t, want, got, 0.01, "%s", scheme)
	}
}

func TestBermudanAgreesWithLattice(t *testing.T) {
	t.Parallel()

	c, m := flatModel(t)
	cfg := config.Default().Bermudan
	cfg.FixedRate = 0.04
	b, err := swaption.NewBermudanFromConfig(cfg)
	require.NoError(t, err)
	e, err := b.Exercise(c)
	require.NoError(t, err)

	pde, err := defaultEngine().Price(m, e)
	require.NoError(t, err)
	tree, err := lattice.NewEngine(config.Default().Lattice).Price(m, e)
	require.NoError(t, err)
	require.Greater(t, pde, 0.0)
	require.InEpsilon(t, tree, pde, 0.01)
}

func TestBermudanConvergesUnderRefinement(t *testing.T) {
	t.Parallel()

	c, m := flatModel(t)
	cfg := config.Default().Bermudan
	cfg.FixedRate = 0.04
	b, err := swaption.NewBermudanFromConfig(cfg)
	require.NoError(t, err)
	e, err := b.Exercise(c)
	require.NoError(t, err)

	var prices []float64
	for _, n := range []int{20, 40, 80, 160} {
		en := defaultEngine()
		en.XGrid, en.YGrid, en.TimeSteps = n+1, n+1, 2*n
		p, err := en.Price(m, e)
		require.NoError(t, err, "n=%d", n)
		prices = append(prices, p)
	}
	for k := 2; k < len(prices); k++ {
		prev := math.Abs(prices[k-1] - prices[k-2])
		require.Less(t, math.Abs(prices[k]-prices[k-1]), prev, "refinement %d: %v", k, prices)
	}

	tree, err := lattice.NewEngine(config.Default().Lattice).Price(m, e)
	require.NoError(t, err)
	require.InEpsilon(t, tree, prices[len(prices)-1], 0.01)
}

func TestDampingStepsKeepPrice(t *testing.T) {
	t.Parallel()

	_, m := flatModel(t)
	plain, err := defaultEngine().ZeroBond(m, 2)
	require.NoError(t, err)
	en := defaultEngine()
	en.DampingSteps = 2
	damped, err := en.ZeroBond(m, 2)
	require.NoError(t, err)
	require.InEpsilon(t, plain, damped, 1e-4)
}

func TestExplicitSchemeUnstable(t *testing.T) {
	t.Parallel()

	_, m := flatModel(t)
	en := defaultEngine()
	en.Theta = 0
	en.TimeSteps = 5
	_, err := en.ZeroBond(m, 3)
	var ie *InstabilityError
	require.True(t, errors.As(err, &ie), "got %v", err)
	require.Greater(t, ie.Ratio, 1.0)
}

func TestDegenerateGrid(t *testing.T) {
	t.Parallel()

	_, m := flatModel(t)
	en := defaultEngine()
	en.XGrid = 2
	_, err := en.ZeroBond(m, 1)
	var ie *InstabilityError
	require.True(t, errors.As(err, &ie), "got %v", err)
	require.False(t, math.IsNaN(ie.Theta))
}
