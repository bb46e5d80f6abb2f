package lattice

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/curve"
	"github.com/meenmo/g2lib/grid"
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

func TestBranchesMatchStepMoments(t *testing.T) {
	t.Parallel()

	_, m := flatModel(t)
	g, err := grid.New([]float64{2}, 20)
	require.NoError(t, err)
	tree, err := Build(m, g, 1_000_000)
	require.NoError(t, err)

	for _, i := range []int{0, 5, 12} {
		cur, st := &tree.slices[i], &tree.steps[i]
		mom := testParams.FactorStep(st.dt)
		var br [9]branch
		for _, node := range [][2]int{{cur.jMin, cur.lMin}, {0, 0}, {cur.jMax, cur.lMax}, {cur.jMax, cur.lMin}} {
			j, l := node[0], node[1]
			x, y := tree.State(i, j, l)
			tree.branches(i, j, l, &br)
			require.NoError(t, tree.checkBranches(i, j, l, &br))

			var ex, ey, exx, eyy, exy float64
			for _, b := range br {
				xn, yn := float64(b.j)*st.dx, float64(b.l)*st.dy
				ex += b.p * xn
				ey += b.p * yn
				exx += b.p * xn * xn
				eyy += b.p * yn * yn
				exy += b.p * xn * yn
			}
			mx, my := x*mom.DecayX, y*mom.DecayY
			require.InDelta(t, mx, ex, 1e-13)
			require.InDelta(t, my, ey, 1e-13)
			require.InDelta(t, mom.VarX, exx-ex*ex, 1e-13)
			require.InDelta(t, mom.VarY, eyy-ey*ey, 1e-13)
			require.InDelta(t, mom.Cov, exy-ex*ey, 1e-13)
		}
	}
}

func TestZeroBondRepricesCurve(t *testing.T) {
	t.Parallel()

	c, m := flatModel(t)
	en := NewEngine(config.LatticeConfig{Steps: 40, MaxNodes: 1_000_000})
	for _, T := range []float64{0.5, 3.5, 7} {
		p, err := en.ZeroBond(m, T)
		require.NoError(t, err)
		require.InDelta(t, c.Discount(T), p, 1e-10, "T=%g", T)
	}
}

func TestBondOptionConvergesToAnalytic(t *testing.T) {
	t.Parallel()

	c, m := flatModel(t)
	const T, S = 3.0, 4.0
	strike := c.Discount(S) / c.Discount(T)
	want := m.ZeroBondOption(true, strike, T, S)

	g, err := grid.New([]float64{T}, 120)
	require.NoError(t, err)
	tree, err := Build(m, g, 2_000_000)
	require.NoError(t, err)
	got := tree.Rollback(func(x, y float64) float64 {
		return max(m.DiscountBond(T, S, x, y)-strike, 0)
	}, nil)
	require.InEpsilon(t, want, got, 0.03)
}

func TestEuropeanSwaptionMatchesAnalytic(t *testing.T) {
	t.Parallel()

	c, m := flatModel(t)
	h, err := swaption.NewHelper(utils.MustPeriod("2Y"), utils.MustPeriod("3Y"), marketdata.NewQuote(0.2), c, swaption.NewAnalyticEngine(6, 16))
	require.NoError(t, err)
	want, err := h.ModelValue(m)
	require.NoError(t, err)

	got, err := NewEngine(config.LatticeConfig{Steps: 100, MaxNodes: 2_000_000}).Price(m, h.Terms())
	require.NoError(t, err)
	require.InEpsilon(t, want, got, 0.03)
}

func TestBermudanDominatesFirstEuropean(t *testing.T) {
	t.Parallel()

	c, m := flatModel(t)
	cfg := config.Default().Bermudan
	cfg.FixedRate = 0.04
	b, err := swaption.NewBermudanFromConfig(cfg)
	require.NoError(t, err)
	e, err := b.Exercise(c)
	require.NoError(t, err)

	en := NewEngine(config.LatticeConfig{Steps: 50, MaxNodes: 2_000_000})
	berm, err := en.Price(m, e)
	require.NoError(t, err)

	// Each single exercise is a European option the Bermudan holder also owns;
	// the grids differ, so allow for discretization.
	for _, k := range []int{0, 4, 8} {
		single := *e
		single.Times = []float64{e.Times[k]}
		eu, err := en.Price(m, &single)
		require.NoError(t, err)
		require.GreaterOrEqual(t, berm, eu*0.98, "exercise %d", k)
	}
	require.Greater(t, berm, 0.0)
}

func TestNodeLimit(t *testing.T) {
	t.Parallel()

	_, m := flatModel(t)
	_, err := NewEngine(config.LatticeConfig{Steps: 50, MaxNodes: 100}).ZeroBond(m, 5)
	var ne *NodeError
	require.True(t, errors.As(err, &ne), "got %v", err)
	require.Contains(t, ne.Reason, "exceed")
}

func TestPerfectCorrelationRejected(t *testing.T) {
	t.Parallel()

	c, _ := flatModel(t)
	p := testParams
	p.B, p.Eta, p.Rho = p.A, p.Sigma, -1
	m, err := model.NewG2(c, p)
	require.NoError(t, err)
	_, err = NewEngine(config.LatticeConfig{Steps: 10, MaxNodes: 1_000_000}).ZeroBond(m, 1)
	var ne *NodeError
	require.True(t, errors.As(err, &ne), "got %v", err)
}
