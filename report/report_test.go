package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meenmo/g2lib/calibration"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/pipeline"
	"github.com/meenmo/g2lib/swaption"
	"github.com/meenmo/g2lib/utils"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		EvaluationDate: utils.Date(2023, time.August, 30),
		Calibration: &calibration.Result{
			Params:           model.Params{A: 0.05, Sigma: 0.01, B: 0.3, Eta: 0.008, Rho: -0.5},
			Iterations:       21,
			Evaluations:      160,
			EndCriteria:      calibration.EndStationaryFunctionValue,
			InfeasibleTrials: 3,
			Report: []calibration.Residual{
				{Helper: "1x7", ModelVol: 0.341, MarketVol: 0.3428, Diff: 0.341 - 0.3428},
				{Helper: "2x5", MarketVol: 0.3901, Err: &swaption.ImpliedVolatilityError{Helper: "2x5", Reason: "no bracket"}},
			},
		},
		Prices: []pipeline.Price{
			{Engine: pipeline.EngineTree, NPV: 12.3456, Elapsed: 40 * time.Millisecond},
			{Engine: pipeline.EngineFDM, Err: errors.New("grid")},
		},
	}
}

func TestResidualLine(t *testing.T) {
	t.Parallel()

	d := Build(sampleResult(), nil)
	require.Equal(t, "1x7: model 34.1%, market 34.28% (-0.18%)", d.Residuals[0].Line())
	require.True(t, strings.HasPrefix(d.Residuals[1].Line(), "2x5: model n/a, market 39.01% ("))
}

func TestBuildRoundsPrices(t *testing.T) {
	t.Parallel()

	d := Build(sampleResult(), nil)
	require.Equal(t, "2023-08-30", d.EvaluationDate)
	require.Equal(t, "12.35", d.Prices[0].NPV.String())
	require.Equal(t, int64(40), d.Prices[0].ElapsedMS)
	require.True(t, d.Prices[1].NPV.IsZero())
	require.Equal(t, "grid", d.Prices[1].Error)
	require.Empty(t, d.Error)
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	soft := &calibration.Error{End: calibration.EndMaxIterations, Iterations: 400}
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Build(sampleResult(), soft)))
	out := buf.String()
	require.Contains(t, out, "Evaluation date: 2023-08-30")
	require.Contains(t, out, "rho   = -0.500000")
	require.Contains(t, out, "rejected trials: 3 outside the model domain, 0 unpriced")
	require.Contains(t, out, "1x7: model 34.1%, market 34.28% (-0.18%)")
	require.Contains(t, out, "tree: 12.35 (40 ms)")
	require.Contains(t, out, "fdm:  failed: grid")
	require.Contains(t, out, "error [calibration]")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Build(sampleResult(), nil)))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "2023-08-30", got["evaluation_date"])
	params := got["parameters"].(map[string]any)
	require.InDelta(t, 0.3, params["b"], 1e-12)
	residuals := got["residuals"].([]any)
	require.Len(t, residuals, 2)
	require.Equal(t, "34.28", residuals[0].(map[string]any)["market_vol_pct"])
	require.InDelta(t, 3, got["infeasible_trials"], 0)
	require.NotContains(t, got, "unpriced_trials")
}

func TestBuildWithoutResult(t *testing.T) {
	t.Parallel()

	d := Build(nil, errors.New("market file missing"))
	require.Equal(t, "error", d.Classification)
	require.Nil(t, d.Parameters)
}
