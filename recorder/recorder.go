// Package recorder persists calibration and pricing runs.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/meenmo/g2lib/config"
)

// Run is one end-to-end calibration and pricing result.
type Run struct {
	StartedAt      time.Time
	EvaluationDate time.Time
	Method         string
	EndCriteria    string
	Iterations     int
	Cost           float64
	Params         [5]float64 // a, sigma, b, eta, rho
	Residuals      []Residual
	Prices         []Price
}

// Residual is the per-helper calibration outcome.
type Residual struct {
	Helper    string
	ModelVol  float64
	MarketVol float64
	Diff      float64
	Error     string
}

// Price is the Bermudan value from one engine.
type Price struct {
	Engine string
	NPV    float64
	Error  string
}

// Recorder stores runs.
type Recorder interface {
	RecordRun(ctx context.Context, run *Run) (int64, error)
	Close() error
}

// New opens the recorder selected by cfg.
func New(cfg config.RecorderConfig) (Recorder, error) {
	switch cfg.Driver {
	case "", "none":
		return NewNoopRecorder(), nil
	case "sqlite":
		return NewSQLiteRecorder(cfg.DSN)
	case "postgres":
		return NewPostgresRecorder(cfg.DSN)
	}
	return nil, fmt.Errorf("recorder: unknown driver %q", cfg.Driver)
}
