// Package calibration fits G2++ parameters to swaption helpers by nonlinear
// least squares.
package calibration

import (
	"context"
	"fmt"

	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/swaption"
)

// Method selects the optimizer.
type Method string

const (
	LevenbergMarquardt Method = "lm"
	NelderMead         Method = "nelder-mead"
)

// Bounds of the report's implied volatility inversion.
const (
	ReportVolAccuracy = 1e-4
	ReportVolMaxEval  = 1000
	ReportMinVol      = 0.05
	ReportMaxVol      = 0.50
)

type Options struct {
	Method      Method
	ErrorType   ErrorType
	EndCriteria EndCriteria
	Observer    Observer
}

// OptionsFromConfig maps the calibration section of the configuration.
func OptionsFromConfig(cfg config.CalibrationConfig) Options {
	return Options{
		Method:      Method(cfg.Method),
		ErrorType:   ErrorType(cfg.ErrorType),
		EndCriteria: EndCriteriaFromConfig(cfg),
	}
}

// Residual compares one helper's model and market value. ModelVol is the
// model price inverted with the Black formula; Err holds the inversion
// failure, if any.
type Residual struct {
	Helper      string
	ModelValue  float64
	MarketValue float64
	ModelVol    float64
	MarketVol   float64
	Diff        float64
	Err         error
}

// Result of a calibration. InfeasibleTrials counts rejected steps outside
// the model's domain; FailedTrials counts rejected steps the helpers could
// not price.
type Result struct {
	Params           model.Params
	Cost             float64
	Iterations       int
	Evaluations      int64
	EndCriteria      EndType
	InfeasibleTrials int
	FailedTrials     int
	Report           []Residual
}

// Calibrate fits m to helpers starting from m's current parameters and sets
// the best parameters found on m. A run that exhausts its budget returns the
// Result together with a *Error.
func Calibrate(ctx context.Context, m *model.G2, helpers []*swaption.Helper, opt Options) (*Result, error) {
	if len(helpers) == 0 {
		return nil, fmt.Errorf("Calibrate: no helpers")
	}
	obj, err := newObjective(m.Snapshot(), helpers, opt.ErrorType)
	if err != nil {
		return nil, fmt.Errorf("Calibrate: %w", err)
	}
	x0 := m.Params().Vector()

	var run runResult
	switch opt.Method {
	case LevenbergMarquardt, "":
		run, err = levenbergMarquardt(ctx, obj, x0, opt.EndCriteria, opt.Observer)
	case NelderMead:
		run, err = nelderMead(ctx, obj, x0, opt.EndCriteria, opt.Observer)
	default:
		return nil, fmt.Errorf("Calibrate: unknown method %q", opt.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("Calibrate: %w", err)
	}

	best := model.ParamsFromVector(run.x)
	if err := m.SetParams(best); err != nil {
		return nil, fmt.Errorf("Calibrate: %w", err)
	}
	report, err := Report(m, helpers)
	if err != nil {
		return nil, fmt.Errorf("Calibrate: %w", err)
	}
	res := &Result{
		Params:           best,
		Cost:             run.cost,
		Iterations:       run.iterations,
		Evaluations:      obj.evals.Load(),
		EndCriteria:      run.end,
		InfeasibleTrials: run.infeasible,
		FailedTrials:     run.failed,
		Report:           report,
	}
	if run.end.Soft() {
		return res, &Error{End: run.end, Iterations: run.iterations, Cost: run.cost}
	}
	return res, nil
}

// Report prices every helper under m and inverts the model price to a Black
// volatility.
func Report(m *model.G2, helpers []*swaption.Helper) ([]Residual, error) {
	snap := m.Snapshot()
	out := make([]Residual, len(helpers))
	for i, h := range helpers {
		v, err := h.ModelValue(snap)
		if err != nil {
			return nil, err
		}
		r := Residual{
			Helper:      h.Name(),
			ModelValue:  v,
			MarketValue: h.MarketValue(),
			MarketVol:   h.Vol.Value(),
		}
		r.ModelVol, r.Err = h.ImpliedVolatility(v, ReportVolAccuracy, ReportVolMaxEval, ReportMinVol, ReportMaxVol)
		if r.Err == nil {
			r.Diff = r.ModelVol - r.MarketVol
		}
		out[i] = r
	}
	return out, nil
}
