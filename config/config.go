package config

import (
	"fmt"
	"math"
)

// Config holds every tunable of a calibration and pricing run.
type Config struct {
	Market      MarketConfig      `mapstructure:"market"      yaml:"market"`
	Curve       CurveConfig       `mapstructure:"curve"       yaml:"curve"`
	Calibration CalibrationConfig `mapstructure:"calibration" yaml:"calibration"`
	Bermudan    BermudanConfig    `mapstructure:"bermudan"    yaml:"bermudan"`
	Lattice     LatticeConfig     `mapstructure:"lattice"     yaml:"lattice"`
	FDM         FDMConfig         `mapstructure:"fdm"         yaml:"fdm"`
	Engines     []string          `mapstructure:"engines"     yaml:"engines"` // "tree", "fdm"
	Recorder    RecorderConfig    `mapstructure:"recorder"    yaml:"recorder"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
}

// MarketConfig points at a YAML market file. Empty means the bundled dataset.
type MarketConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// CurveConfig holds the bootstrap solver parameters.
type CurveConfig struct {
	// ConvergenceTolerance is the NPV tolerance per unit notional.
	ConvergenceTolerance float64 `mapstructure:"convergence_tolerance" yaml:"convergence_tolerance"`

	// MaxBootstrapIterations bounds the root search of each pillar.
	MaxBootstrapIterations int `mapstructure:"max_bootstrap_iterations" yaml:"max_bootstrap_iterations"`

	// DampingFactor clamps a Newton step to DampingFactor * current guess.
	DampingFactor float64 `mapstructure:"damping_factor" yaml:"damping_factor"`

	// MinDiscountFactor is the lower edge of the bracket searched for a pillar.
	MinDiscountFactor float64 `mapstructure:"min_discount_factor" yaml:"min_discount_factor"`

	// DerivativeThreshold stops Newton when the slope vanishes.
	DerivativeThreshold float64 `mapstructure:"derivative_threshold" yaml:"derivative_threshold"`

	SettlementDays int  `mapstructure:"settlement_days" yaml:"settlement_days"`
	Extrapolate    bool `mapstructure:"extrapolate"     yaml:"extrapolate"`
}

// CalibrationConfig selects the optimizer and its stopping rules.
type CalibrationConfig struct {
	Method    string `mapstructure:"method"     yaml:"method"`     // "lm" or "nelder-mead"
	ErrorType string `mapstructure:"error_type" yaml:"error_type"` // "price", "relative", "vol"

	MaxIterations     int     `mapstructure:"max_iterations"     yaml:"max_iterations"`
	MaxStalledSteps   int     `mapstructure:"max_stalled_steps"  yaml:"max_stalled_steps"`
	RootTolerance     float64 `mapstructure:"root_tolerance"     yaml:"root_tolerance"`
	ParamTolerance    float64 `mapstructure:"param_tolerance"    yaml:"param_tolerance"`
	GradientTolerance float64 `mapstructure:"gradient_tolerance" yaml:"gradient_tolerance"`

	// Initial guess for (a, sigma, b, eta, rho).
	Initial [5]float64 `mapstructure:"initial" yaml:"initial"`

	// Analytic G2 swaption integration: mu_x ± Range*sigma_x with Intervals points.
	Range     float64 `mapstructure:"range"     yaml:"range"`
	Intervals int     `mapstructure:"intervals" yaml:"intervals"`
}

// BermudanConfig describes the priced Bermudan swaption.
type BermudanConfig struct {
	Payer      bool    `mapstructure:"payer"      yaml:"payer"`
	Notional   float64 `mapstructure:"notional"   yaml:"notional"`
	FixedRate  float64 `mapstructure:"fixed_rate" yaml:"fixed_rate"`
	Settlement string  `mapstructure:"settlement" yaml:"settlement"`
	Tenor      string  `mapstructure:"tenor"      yaml:"tenor"`
	Frequency  string  `mapstructure:"frequency"  yaml:"frequency"`
}

type LatticeConfig struct {
	Steps    int `mapstructure:"steps"     yaml:"steps"`
	MaxNodes int `mapstructure:"max_nodes" yaml:"max_nodes"`
}

type FDMConfig struct {
	TimeSteps    int     `mapstructure:"time_steps"    yaml:"time_steps"`
	XGrid        int     `mapstructure:"x_grid"        yaml:"x_grid"`
	YGrid        int     `mapstructure:"y_grid"        yaml:"y_grid"`
	DampingSteps int     `mapstructure:"damping_steps" yaml:"damping_steps"`
	InvEps       float64 `mapstructure:"inv_eps"       yaml:"inv_eps"`
	Scheme       string  `mapstructure:"scheme"        yaml:"scheme"` // "hundsdorfer", "douglas"
	Theta        float64 `mapstructure:"theta"         yaml:"theta"`
}

// RecorderConfig selects where runs are persisted. Driver "none" disables it.
type RecorderConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "none", "sqlite", "postgres"
	DSN    string `mapstructure:"dsn"    yaml:"dsn"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "info" or "debug"
}

// Default returns the configuration reproducing the reference run.
func Default() Config {
	return Config{
		Curve: CurveConfig{
			ConvergenceTolerance:   1e-12,
			MaxBootstrapIterations: 100,
			DampingFactor:          0.5,
			MinDiscountFactor:      1e-9,
			DerivativeThreshold:    1e-15,
			SettlementDays:         2,
			Extrapolate:            true,
		},
		Calibration: CalibrationConfig{
			Method:            "lm",
			ErrorType:         "relative",
			MaxIterations:     400,
			MaxStalledSteps:   100,
			RootTolerance:     1e-8,
			ParamTolerance:    1e-8,
			GradientTolerance: 1e-8,
			Initial:           [5]float64{0.1, 0.01, 0.1, 0.01, -0.75},
			Range:             6,
			Intervals:         16,
		},
		Bermudan: BermudanConfig{
			Payer:      true,
			Notional:   10000,
			FixedRate:  0.066,
			Settlement: "2023-08-31",
			Tenor:      "3Y",
			Frequency:  "3M",
		},
		Lattice: LatticeConfig{Steps: 50, MaxNodes: 4_000_000},
		FDM: FDMConfig{
			TimeSteps: 200,
			XGrid:     101,
			YGrid:     101,
			InvEps:    1e-5,
			Scheme:    "hundsdorfer",
			Theta:     0.5 + math.Sqrt(3)/6,
		},
		Engines:  []string{"tree", "fdm"},
		Recorder: RecorderConfig{Driver: "none"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Validate rejects settings no engine can run with.
func (c *Config) Validate() error {
	if c.Curve.MaxBootstrapIterations <= 0 {
		return fmt.Errorf("curve.max_bootstrap_iterations must be positive")
	}
	if c.Curve.ConvergenceTolerance <= 0 {
		return fmt.Errorf("curve.convergence_tolerance must be positive")
	}
	switch c.Calibration.Method {
	case "lm", "nelder-mead":
	default:
		return fmt.Errorf("calibration.method %q not supported", c.Calibration.Method)
	}
	switch c.Calibration.ErrorType {
	case "price", "relative", "vol":
	default:
		return fmt.Errorf("calibration.error_type %q not supported", c.Calibration.ErrorType)
	}
	if c.Calibration.MaxIterations <= 0 {
		return fmt.Errorf("calibration.max_iterations must be positive")
	}
	if c.Calibration.Intervals <= 0 || c.Calibration.Range <= 0 {
		return fmt.Errorf("calibration.range and calibration.intervals must be positive")
	}
	if c.Lattice.Steps <= 0 {
		return fmt.Errorf("lattice.steps must be positive")
	}
	if c.FDM.TimeSteps <= 0 || c.FDM.XGrid < 3 || c.FDM.YGrid < 3 {
		return fmt.Errorf("fdm grid too small: t=%d x=%d y=%d", c.FDM.TimeSteps, c.FDM.XGrid, c.FDM.YGrid)
	}
	if c.FDM.InvEps <= 0 || c.FDM.InvEps >= 0.5 {
		return fmt.Errorf("fdm.inv_eps must be in (0, 0.5)")
	}
	switch c.FDM.Scheme {
	case "", "douglas", "hundsdorfer":
	default:
		return fmt.Errorf("fdm.scheme %q not supported", c.FDM.Scheme)
	}
	if c.FDM.Theta < 0 || c.FDM.Theta > 1 {
		return fmt.Errorf("fdm.theta must be in [0, 1]")
	}
	if c.Bermudan.Notional <= 0 {
		return fmt.Errorf("bermudan.notional must be positive")
	}
	for _, e := range c.Engines {
		if e != "tree" && e != "fdm" {
			return fmt.Errorf("unknown engine %q", e)
		}
	}
	switch c.Recorder.Driver {
	case "", "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("recorder.driver %q not supported", c.Recorder.Driver)
	}
	return nil
}
