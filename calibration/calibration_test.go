package calibration

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/curve"
	"github.com/meenmo/g2lib/marketdata"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/swaption"
)

var truth = model.Params{A: 0.08, Sigma: 0.012, B: 0.4, Eta: 0.008, Rho: -0.6}

type fixture struct {
	market  *marketdata.Market
	curve   *curve.Curve
	helpers []*swaption.Helper
}

func referenceFixture(t *testing.T) fixture {
	t.Helper()
	mkt := marketdata.Reference()
	c, err := curve.Bootstrap(mkt.EvaluationDate, curve.NodesFromMarket(mkt), calendar.USD, config.Default().Curve)
	require.NoError(t, err)
	hs, err := swaption.HelpersFromMarket(mkt, mkt.Diagonal(), c, swaption.NewAnalyticEngine(6, 16))
	require.NoError(t, err)
	return fixture{market: mkt, curve: c, helpers: hs}
}

// syntheticFixture replaces the diagonal quotes with the vols implied by truth.
func syntheticFixture(t *testing.T) fixture {
	t.Helper()
	f := referenceFixture(t)
	m, err := model.NewG2(f.curve, truth)
	require.NoError(t, err)
	for _, h := range f.helpers {
		v, err := h.ModelValue(m)
		require.NoError(t, err)
		vol, err := h.ImpliedVolatility(v, 1e-12, 1000, 0.01, 2)
		require.NoError(t, err)
		h.Vol.SetValue(vol)
	}
	return f
}

func defaultOptions() Options {
	return OptionsFromConfig(config.Default().Calibration)
}

func TestRecoversSyntheticPrices(t *testing.T) {
	t.Parallel()

	f := syntheticFixture(t)
	start := model.Params{A: 0.1, Sigma: 0.014, B: 0.5, Eta: 0.007, Rho: -0.5}
	m, err := model.NewG2(f.curve, start)
	require.NoError(t, err)

	res, err := Calibrate(context.Background(), m, f.helpers, defaultOptions())
	require.NoError(t, err)
	require.False(t, res.EndCriteria.Soft())
	require.Equal(t, res.Params, m.Params())
	for _, r := range res.Report {
		require.NoError(t, r.Err)
		require.InDelta(t, 0, r.Diff, 2e-3, "helper %s", r.Helper)
		require.InDelta(t, r.MarketValue, r.ModelValue, 1e-5, "helper %s", r.Helper)
	}
}

func TestCalibrationIsIdempotent(t *testing.T) {
	t.Parallel()

	f := syntheticFixture(t)
	m, err := model.NewG2(f.curve, truth)
	require.NoError(t, err)

	res, err := Calibrate(context.Background(), m, f.helpers, defaultOptions())
	require.NoError(t, err)
	require.Less(t, res.Cost, 1e-16)
	for i, v := range truth.Vector() {
		require.InEpsilon(t, v, res.Params.Vector()[i], 1e-4)
	}
}

func TestReferenceDiagonalFit(t *testing.T) {
	t.Parallel()

	f := referenceFixture(t)
	cfg := config.Default().Calibration
	m, err := model.NewG2(f.curve, model.ParamsFromVector(cfg.Initial[:]))
	require.NoError(t, err)

	require.Equal(t, string(RelativePriceError), cfg.ErrorType)
	res, err := Calibrate(context.Background(), m, f.helpers, OptionsFromConfig(cfg))
	require.NoError(t, err)
	require.False(t, res.EndCriteria.Soft(), "ended with %s", res.EndCriteria)
	require.NotEqual(t, EndStationaryPoint, res.EndCriteria)
	require.NoError(t, res.Params.Validate())
	for _, r := range res.Report {
		require.NoError(t, r.Err)
		require.Less(t, math.Abs(r.Diff), 0.05, "helper %s: model %.4f market %.4f", r.Helper, r.ModelVol, r.MarketVol)
	}
}

// Under absolute price residuals the short expiries dominate and the fit
// drifts to the a, b -> 0 boundary, where every step is rejected. That run
// must end as a soft stall rather than as a converged stationary point.
func TestRejectedStepsEndAsStall(t *testing.T) {
	t.Parallel()

	f := referenceFixture(t)
	cfg := config.Default().Calibration
	cfg.ErrorType = string(PriceError)
	m, err := model.NewG2(f.curve, model.ParamsFromVector(cfg.Initial[:]))
	require.NoError(t, err)

	opt := OptionsFromConfig(cfg)
	rejected := 0
	opt.Observer = func(it Iteration) {
		if !it.Accepted {
			rejected++
		}
	}
	res, err := Calibrate(context.Background(), m, f.helpers, opt)
	var soft *Error
	require.True(t, errors.As(err, &soft), "got %v", err)
	require.Contains(t, []EndType{EndMaxStalledSteps, EndMaxIterations}, soft.End)
	require.NotNil(t, res)
	require.NotEqual(t, EndStationaryPoint, res.EndCriteria)
	require.Positive(t, rejected)
	require.LessOrEqual(t, res.InfeasibleTrials+res.FailedTrials, rejected)
}

func TestBudgetExhaustionIsSoft(t *testing.T) {
	t.Parallel()

	f := syntheticFixture(t)
	start := model.Params{A: 0.1, Sigma: 0.01, B: 0.1, Eta: 0.01, Rho: -0.75}
	m, err := model.NewG2(f.curve, start)
	require.NoError(t, err)

	opt := defaultOptions()
	opt.EndCriteria.MaxIterations = 1
	calls := 0
	opt.Observer = func(Iteration) { calls++ }

	res, err := Calibrate(context.Background(), m, f.helpers, opt)
	var soft *Error
	require.True(t, errors.As(err, &soft), "got %v", err)
	require.Equal(t, EndMaxIterations, soft.End)
	require.NotNil(t, res)
	require.Equal(t, res.Params, m.Params())
	require.Equal(t, 1, calls)
}

func TestPriceErrorTypesAgreeAtTruth(t *testing.T) {
	t.Parallel()

	f := syntheticFixture(t)
	for _, et := range []ErrorType{PriceError, RelativePriceError, ImpliedVolError} {
		m, err := model.NewG2(f.curve, truth)
		require.NoError(t, err)
		obj, err := newObjective(m, f.helpers, et)
		require.NoError(t, err)
		r := make([]float64, obj.size())
		require.NoError(t, obj.residuals(truth, r))
		for i := range r {
			require.InDelta(t, 0, r[i], 1e-8, "%s helper %d", et, i)
		}
	}
	_, err := newObjective(nil, f.helpers, ErrorType("bogus"))
	require.Error(t, err)
}

func TestInfeasibleTrialIsFlagged(t *testing.T) {
	t.Parallel()

	f := referenceFixture(t)
	m, err := model.NewG2(f.curve, truth)
	require.NoError(t, err)
	obj, err := newObjective(m, f.helpers, PriceError)
	require.NoError(t, err)

	bad := truth
	bad.Rho = -1.5
	err = obj.residuals(bad, make([]float64, obj.size()))
	require.True(t, infeasible(err))
}

func TestInfeasibleTrialIsCounted(t *testing.T) {
	t.Parallel()

	f := syntheticFixture(t)
	// rho sits on the boundary; the first steps push it past -1.
	start := model.Params{A: 0.08, Sigma: 0.02, B: 0.4, Eta: 0.004, Rho: -0.9999}
	m, err := model.NewG2(f.curve, start)
	require.NoError(t, err)

	opt := defaultOptions()
	opt.EndCriteria.MaxIterations = 30
	var flagged int
	opt.Observer = func(it Iteration) {
		if it.Infeasible {
			require.False(t, it.Accepted)
			flagged++
		}
	}
	res, err := Calibrate(context.Background(), m, f.helpers, opt)
	if err != nil {
		var soft *Error
		require.True(t, errors.As(err, &soft), "hard failure: %v", err)
	}
	require.Equal(t, flagged, res.InfeasibleTrials)
	require.NoError(t, res.Params.Validate())
}

func TestZeroVolQuoteReportsImpliedVolError(t *testing.T) {
	t.Parallel()

	f := referenceFixture(t)
	f.helpers[2].Vol.SetValue(0)
	m, err := model.NewG2(f.curve, truth)
	require.NoError(t, err)

	report, err := Report(m, f.helpers)
	require.NoError(t, err)
	require.Equal(t, 0.0, report[2].MarketValue)
	// The model price is still positive and invertible; the market side is zero.
	require.NoError(t, report[2].Err)
	require.InDelta(t, report[2].ModelVol, report[2].Diff, 1e-15)

	_, err = f.helpers[2].ImpliedVolatility(report[2].MarketValue, 1e-4, 1000, 0.05, 0.5)
	var ive *swaption.ImpliedVolatilityError
	require.True(t, errors.As(err, &ive))
}

func TestNelderMeadReducesCost(t *testing.T) {
	t.Parallel()

	f := syntheticFixture(t)
	start := model.Params{A: 0.1, Sigma: 0.014, B: 0.5, Eta: 0.007, Rho: -0.5}
	m, err := model.NewG2(f.curve, start)
	require.NoError(t, err)

	obj, err := newObjective(m, f.helpers, PriceError)
	require.NoError(t, err)
	r := make([]float64, obj.size())
	require.NoError(t, obj.residuals(start, r))
	initial := cost(r)

	opt := defaultOptions()
	opt.Method = NelderMead
	opt.ErrorType = PriceError
	opt.EndCriteria.MaxIterations = 200
	res, err := Calibrate(context.Background(), m, f.helpers, opt)
	if err != nil {
		var soft *Error
		require.True(t, errors.As(err, &soft), "hard failure: %v", err)
	}
	require.Less(t, res.Cost, initial)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	f := referenceFixture(t)
	m, err := model.NewG2(f.curve, truth)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Calibrate(ctx, m, f.helpers, defaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestSolveDampedSolvesNormalEquations(t *testing.T) {
	t.Parallel()

	jac := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 7})
	r := mat.NewVecDense(3, []float64{1, -1, 2})
	var jtj mat.SymDense
	jtj.SymOuterK(1, jac.T())
	var g mat.VecDense
	g.MulVec(jac.T(), r)

	const mu = 0.5
	diag := []float64{jtj.At(0, 0), jtj.At(1, 1)}
	step, err := solveDamped(&jtj, &g, mu, diag)
	require.NoError(t, err)

	// (J^T J + mu D) dx + g = 0
	for i := 0; i < 2; i++ {
		lhs := g.AtVec(i) + mu*diag[i]*step.AtVec(i)
		for j := 0; j < 2; j++ {
			lhs += jtj.At(i, j) * step.AtVec(j)
		}
		require.InDelta(t, 0, lhs, 1e-12)
	}
}

func TestScaledGradientIsZeroAtLeastSquaresSolution(t *testing.T) {
	t.Parallel()

	// r = (1, -1) is orthogonal to the single column (1, 1).
	jac := mat.NewDense(2, 1, []float64{1, 1})
	require.InDelta(t, 0, scaledGradient(jac, []float64{0}, []float64{1, -1}), 1e-15)
	require.InDelta(t, 1, scaledGradient(jac, []float64{2}, []float64{1, 1}), 1e-15)
}
