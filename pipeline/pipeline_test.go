package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/g2lib/calibration"
	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/curve"
	"github.com/meenmo/g2lib/fdm"
	"github.com/meenmo/g2lib/lattice"
	"github.com/meenmo/g2lib/marketdata"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/swaption"
)

// smallConfig keeps the reference setup but shrinks the grids and the
// optimizer budget.
func smallConfig() config.Config {
	cfg := config.Default()
	cfg.Calibration.MaxIterations = 5
	cfg.Lattice.Steps = 20
	cfg.FDM.TimeSteps = 24
	cfg.FDM.XGrid = 31
	cfg.FDM.YGrid = 31
	return cfg
}

func newPipeline(t *testing.T, cfg config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, marketdata.Reference())
	require.NoError(t, err)
	return p
}

func TestRunReference(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, smallConfig())
	var iterations int
	p.Observer = func(calibration.Iteration) { iterations++ }

	res, err := p.Run(context.Background())
	if err != nil {
		require.Equal(t, KindCalibration, Classify(err), "unexpected failure: %v", err)
	}
	require.NotNil(t, res.Curve)
	require.NotNil(t, res.Calibration)
	require.Positive(t, iterations)
	require.Len(t, res.Calibration.Report, 6)
	require.Len(t, res.Bermudan.ExerciseDates, 12)

	require.Len(t, res.Prices, 2)
	require.Equal(t, EngineTree, res.Prices[0].Engine)
	require.Equal(t, EngineFDM, res.Prices[1].Engine)
	for _, pr := range res.Prices {
		require.NoError(t, pr.Err, pr.Engine)
		require.Positive(t, pr.NPV, pr.Engine)
		require.Less(t, pr.NPV, 10000.0, pr.Engine)
	}
}

func TestRunReferenceAtDefaults(t *testing.T) {
	if testing.Short() {
		t.Skip("full calibration and default grids")
	}
	t.Parallel()

	p := newPipeline(t, config.Default())
	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.False(t, res.Calibration.EndCriteria.Soft())
	require.NotEqual(t, calibration.EndStationaryPoint, res.Calibration.EndCriteria)
	for _, r := range res.Calibration.Report {
		require.NoError(t, r.Err)
		require.Less(t, math.Abs(r.Diff), 0.05, "helper %s", r.Helper)
	}

	require.Len(t, res.Prices, 2)
	tree, pde := res.Prices[0], res.Prices[1]
	require.NoError(t, tree.Err)
	require.NoError(t, pde.Err)
	require.InEpsilon(t, tree.NPV, pde.NPV, 0.01, "tree %.4f fdm %.4f", tree.NPV, pde.NPV)
}

func TestCurveRebuildsOnQuoteBump(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, smallConfig())
	c1, err := p.Curve()
	require.NoError(t, err)
	c2, err := p.Curve()
	require.NoError(t, err)
	require.Same(t, c1, c2)

	q := p.Market().OIS[3].Quote
	q.SetValue(q.Value() + 1e-4)
	c3, err := p.Curve()
	require.NoError(t, err)
	require.NotSame(t, c1, c3)
	require.Less(t, c3.Discount(5), c1.Discount(5))
}

func TestExplicitFDMIsClassified(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	cfg.Engines = []string{EngineFDM}
	cfg.FDM.Theta = 0
	cfg.FDM.TimeSteps = 5
	cfg.FDM.XGrid, cfg.FDM.YGrid = 51, 51
	p := newPipeline(t, cfg)

	c, err := p.Curve()
	require.NoError(t, err)
	m, err := model.NewG2(c, model.Params{A: 0.05, Sigma: 0.01, B: 0.3, Eta: 0.008, Rho: -0.5})
	require.NoError(t, err)

	_, prices, err := p.Price(context.Background(), m, c)
	require.Error(t, err)
	require.Equal(t, KindInstability, Classify(err))
	require.Len(t, prices, 1)
	require.Error(t, prices[0].Err)
}

func TestCancelledRun(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, smallConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx)
	require.Error(t, err)
	require.Equal(t, KindCancelled, Classify(err))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	cfg.Engines = []string{"montecarlo"}
	_, err := New(cfg, marketdata.Reference())
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	soft := &calibration.Error{End: calibration.EndMaxIterations, Iterations: 400}
	cases := []struct {
		err  error
		want Kind
		code int
	}{
		{nil, KindNone, 0},
		{errors.New("boom"), KindOther, 1},
		{fmt.Errorf("curve: %w", &curve.BootstrapError{Node: 2}), KindBootstrap, 3},
		{fmt.Errorf("calibrate: %w", &swaption.ImpliedVolatilityError{Helper: "1x7"}), KindImpliedVol, 4},
		{fmt.Errorf("calibrate: %w", soft), KindCalibration, 5},
		{fmt.Errorf("tree: %w", &lattice.NodeError{Reason: "negative probability"}), KindLattice, 6},
		{fmt.Errorf("fdm: %w", &fdm.InstabilityError{Reason: "explicit ratio exceeds 1"}), KindInstability, 7},
		{errors.Join(soft, &fdm.InstabilityError{}), KindInstability, 7},
		{fmt.Errorf("run: %w", context.Canceled), KindCancelled, 130},
	}
	for _, tc := range cases {
		got := Classify(tc.err)
		require.Equal(t, tc.want, got, "%v", tc.err)
		require.Equal(t, tc.code, got.ExitCode(), "%v", tc.err)
	}
}

func TestRecordCarriesResiduals(t *testing.T) {
	t.Parallel()

	res := &Result{
		Calibration: &calibration.Result{
			Params:      model.Params{A: 0.05, Sigma: 0.01, B: 0.3, Eta: 0.008, Rho: -0.5},
			Iterations:  12,
			EndCriteria: calibration.EndStationaryFunctionValue,
			Report: []calibration.Residual{
				{Helper: "1x7", ModelVol: 0.341, MarketVol: 0.3428, Diff: -0.0018},
				{Helper: "2x5", Err: &swaption.ImpliedVolatilityError{Helper: "2x5", Reason: "no bracket"}},
			},
		},
		Prices: []Price{{Engine: EngineTree, NPV: 12.5}, {Engine: EngineFDM, Err: errors.New("failed")}},
	}
	run := res.Record(calibration.LevenbergMarquardt)
	require.Equal(t, "lm", run.Method)
	require.Equal(t, [5]float64{0.05, 0.01, 0.3, 0.008, -0.5}, run.Params)
	require.Len(t, run.Residuals, 2)
	require.Empty(t, run.Residuals[0].Error)
	require.NotEmpty(t, run.Residuals[1].Error)
	require.Equal(t, "failed", run.Prices[1].Error)
	require.Equal(t, calibration.EndStationaryFunctionValue.String(), run.EndCriteria)
}
