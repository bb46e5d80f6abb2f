package calibration

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/meenmo/g2lib/model"
)

// observerRecorder forwards major iterations to an Observer.
type observerRecorder struct {
	observe Observer
	n       int
}

func (r *observerRecorder) Init() error { return nil }

func (r *observerRecorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op&optimize.MajorIteration == 0 || r.observe == nil {
		return nil
	}
	r.n++
	r.observe(Iteration{N: r.n, Cost: loc.F, Params: model.ParamsFromVector(loc.X), Accepted: true})
	return nil
}

// nelderMead minimizes the same cost without derivatives. Infeasible or
// failing points evaluate to +Inf.
func nelderMead(ctx context.Context, obj *objective, x0 []float64, ec EndCriteria, observe Observer) (runResult, error) {
	r := make([]float64, obj.size())
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			if err := obj.residuals(model.ParamsFromVector(x), r); err != nil {
				return math.Inf(1)
			}
			return cost(r)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: ec.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Relative:   ec.RootTolerance,
			Iterations: ec.MaxStalledSteps,
		},
		Recorder: &observerRecorder{observe: observe},
	}
	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if res == nil {
		return runResult{}, fmt.Errorf("nelderMead: %w", err)
	}
	if cerr := ctx.Err(); cerr != nil {
		return runResult{}, cerr
	}
	out := runResult{x: res.X, cost: res.F, iterations: res.MajorIterations}
	switch res.Status {
	case optimize.FunctionConvergence:
		out.end = EndStationaryFunctionValue
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit:
		out.end = EndMaxIterations
	default:
		if err != nil {
			return runResult{}, fmt.Errorf("nelderMead: %w", err)
		}
		out.end = EndNone
	}
	if math.IsInf(out.cost, 1) {
		return runResult{}, fmt.Errorf("nelderMead: no feasible point found from %v", x0)
	}
	return out, nil
}
