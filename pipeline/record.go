package pipeline

import (
	"github.com/meenmo/g2lib/calibration"
	"github.com/meenmo/g2lib/recorder"
)

// Record converts r for persistence.
func (r *Result) Record(method calibration.Method) *recorder.Run {
	run := &recorder.Run{StartedAt: r.StartedAt, EvaluationDate: r.EvaluationDate, Method: string(method)}
	if cal := r.Calibration; cal != nil {
		run.EndCriteria = cal.EndCriteria.String()
		run.Iterations = cal.Iterations
		run.Cost = cal.Cost
		copy(run.Params[:], cal.Params.Vector())
		for _, res := range cal.Report {
			row := recorder.Residual{Helper: res.Helper, ModelVol: res.ModelVol, MarketVol: res.MarketVol, Diff: res.Diff}
			if res.Err != nil {
				row.Error = res.Err.Error()
			}
			run.Residuals = append(run.Residuals, row)
		}
	}
	for _, p := range r.Prices {
		row := recorder.Price{Engine: p.Engine, NPV: p.NPV}
		if p.Err != nil {
			row.Error = p.Err.Error()
		}
		run.Prices = append(run.Prices, row)
	}
	return run
}
