package calibration

import "github.com/meenmo/g2lib/config"

// EndCriteria bounds an optimization run.
type EndCriteria struct {
	MaxIterations     int
	MaxStalledSteps   int
	RootTolerance     float64 // relative cost reduction
	ParamTolerance    float64 // relative parameter step
	GradientTolerance float64 // scaled gradient norm
}

// EndCriteriaFromConfig reads the stopping rules of cfg.
func EndCriteriaFromConfig(cfg config.CalibrationConfig) EndCriteria {
	return EndCriteria{
		MaxIterations:     cfg.MaxIterations,
		MaxStalledSteps:   cfg.MaxStalledSteps,
		RootTolerance:     cfg.RootTolerance,
		ParamTolerance:    cfg.ParamTolerance,
		GradientTolerance: cfg.GradientTolerance,
	}
}

// EndType records which criterion stopped the optimizer.
type EndType int

const (
	EndNone EndType = iota
	EndMaxIterations
	EndMaxStalledSteps
	EndStationaryPoint
	EndStationaryFunctionValue
	EndZeroGradientNorm
)

func (t EndType) String() string {
	switch t {
	case EndMaxIterations:
		return "MaxIterations"
	case EndMaxStalledSteps:
		return "MaxStalledSteps"
	case EndStationaryPoint:
		return "StationaryPoint"
	case EndStationaryFunctionValue:
		return "StationaryFunctionValue"
	case EndZeroGradientNorm:
		return "ZeroGradientNorm"
	}
	return "None"
}

// Soft reports whether the run stopped on a budget rather than convergence.
func (t EndType) Soft() bool {
	return t == EndMaxIterations || t == EndMaxStalledSteps
}
