package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the configuration from file and environment variables.
// With an empty path the file is optional and searched as:
//  1. ./g2cal.yaml
//  2. ~/.g2cal/g2cal.yaml
//
// Environment variables override file values.
// Format: G2CAL_<SECTION>_<KEY>, e.g. G2CAL_LATTICE_STEPS
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("g2cal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".g2cal"))
		}
	}

	v.SetEnvPrefix("G2CAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("market.file", d.Market.File)

	v.SetDefault("curve.convergence_tolerance", d.Curve.ConvergenceTolerance)
	v.SetDefault("curve.max_bootstrap_iterations", d.Curve.MaxBootstrapIterations)
	v.SetDefault("curve.damping_factor", d.Curve.DampingFactor)
	v.SetDefault("curve.min_discount_factor", d.Curve.MinDiscountFactor)
	v.SetDefault("curve.derivative_threshold", d.Curve.DerivativeThreshold)
	v.SetDefault("curve.settlement_days", d.Curve.SettlementDays)
	v.SetDefault("curve.extrapolate", d.Curve.Extrapolate)

	v.SetDefault("calibration.method", d.Calibration.Method)
	v.SetDefault("calibration.error_type", d.Calibration.ErrorType)
	v.SetDefault("calibration.max_iterations", d.Calibration.MaxIterations)
	v.SetDefault("calibration.max_stalled_steps", d.Calibration.MaxStalledSteps)
	v.SetDefault("calibration.root_tolerance", d.Calibration.RootTolerance)
	v.SetDefault("calibration.param_tolerance", d.Calibration.ParamTolerance)
	v.SetDefault("calibration.gradient_tolerance", d.Calibration.GradientTolerance)
	v.SetDefault("calibration.initial", d.Calibration.Initial[:])
	v.SetDefault("calibration.range", d.Calibration.Range)
	v.SetDefault("calibration.intervals", d.Calibration.Intervals)

	v.SetDefault("bermudan.payer", d.Bermudan.Payer)
	v.SetDefault("bermudan.notional", d.Bermudan.Notional)
	v.SetDefault("bermudan.fixed_rate", d.Bermudan.FixedRate)
	v.SetDefault("bermudan.settlement", d.Bermudan.Settlement)
	v.SetDefault("bermudan.tenor", d.Bermudan.Tenor)
	v.SetDefault("bermudan.frequency", d.Bermudan.Frequency)

	v.SetDefault("lattice.steps", d.Lattice.Steps)
	v.SetDefault("lattice.max_nodes", d.Lattice.MaxNodes)

	v.SetDefault("fdm.time_steps", d.FDM.TimeSteps)
	v.SetDefault("fdm.x_grid", d.FDM.XGrid)
	v.SetDefault("fdm.y_grid", d.FDM.YGrid)
	v.SetDefault("fdm.damping_steps", d.FDM.DampingSteps)
	v.SetDefault("fdm.inv_eps", d.FDM.InvEps)
	v.SetDefault("fdm.scheme", d.FDM.Scheme)
	v.SetDefault("fdm.theta", d.FDM.Theta)

	v.SetDefault("engines", d.Engines)
	v.SetDefault("recorder.driver", d.Recorder.Driver)
	v.SetDefault("recorder.dsn", d.Recorder.DSN)
	v.SetDefault("logging.level", d.Logging.Level)
}
