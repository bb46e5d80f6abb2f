package calibration

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/swaption"
)

// ErrorType selects how a helper's mismatch enters the least-squares cost.
// The zero value is RelativePriceError.
type ErrorType string

const (
	PriceError         ErrorType = "price"
	RelativePriceError ErrorType = "relative"
	ImpliedVolError    ErrorType = "vol"
)

// Bounds of the volatility inversion inside the objective.
const (
	objectiveVolAccuracy = 1e-10
	objectiveVolMaxEval  = 200
	objectiveMinVol      = 1e-4
	objectiveMaxVol      = 10.0
)

// objective evaluates residuals for trial parameters. Market values are read
// once so a run sees one consistent set of quotes.
type objective struct {
	base      *model.G2
	helpers   []*swaption.Helper
	errorType ErrorType
	market    []float64
	vols      []float64
	evals     atomic.Int64
}

func newObjective(base *model.G2, helpers []*swaption.Helper, et ErrorType) (*objective, error) {
	switch et {
	case PriceError, RelativePriceError, ImpliedVolError:
	case "":
		et = RelativePriceError
	default:
		return nil, fmt.Errorf("calibration: unknown error type %q", et)
	}
	o := &objective{
		base:      base,
		helpers:   helpers,
		errorType: et,
		market:    make([]float64, len(helpers)),
		vols:      make([]float64, len(helpers)),
	}
	for i, h := range helpers {
		o.vols[i] = h.Vol.Value()
		o.market[i] = h.BlackPrice(o.vols[i])
	}
	return o, nil
}

func (o *objective) size() int { return len(o.helpers) }

// residuals fills out for parameters p. It is safe for concurrent use.
func (o *objective) residuals(p model.Params, out []float64) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errInfeasible, err)
	}
	m, err := o.base.WithParams(p)
	if err != nil {
		return fmt.Errorf("%w: %v", errInfeasible, err)
	}
	o.evals.Add(1)
	for i, h := range o.helpers {
		v, err := h.ModelValue(m)
		if err != nil {
			return err
		}
		out[i] = o.residual(i, v)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return fmt.Errorf("helper %s: non-finite residual at %s", h.Name(), p)
		}
	}
	return nil
}

func (o *objective) residual(i int, modelValue float64) float64 {
	switch o.errorType {
	case RelativePriceError:
		if o.market[i] == 0 {
			return modelValue
		}
		return (modelValue - o.market[i]) / o.market[i]
	case ImpliedVolError:
		h := o.helpers[i]
		vol, err := h.ImpliedVolatility(modelValue, objectiveVolAccuracy, objectiveVolMaxEval, objectiveMinVol, objectiveMaxVol)
		if err != nil {
			// Pin to the nearer bound so the residual stays continuous.
			vol = objectiveMinVol
			if modelValue > h.BlackPrice(objectiveMaxVol) {
				vol = objectiveMaxVol
			}
		}
		return vol - o.vols[i]
	default:
		return modelValue - o.market[i]
	}
}

// cost is half the sum of squared residuals.
func cost(r []float64) float64 {
	s := 0.0
	for _, v := range r {
		s += v * v
	}
	return 0.5 * s
}

func infeasible(err error) bool { return errors.Is(err, errInfeasible) }
