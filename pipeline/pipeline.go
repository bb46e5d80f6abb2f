// Package pipeline runs the end-to-end job: bootstrap the OIS curve,
// calibrate G2++ to the co-terminal swaptions, then price the Bermudan with
// every configured engine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/calibration"
	"github.com/meenmo/g2lib/config"
	"github.com/meenmo/g2lib/curve"
	"github.com/meenmo/g2lib/fdm"
	"github.com/meenmo/g2lib/lattice"
	"github.com/meenmo/g2lib/marketdata"
	"github.com/meenmo/g2lib/model"
	"github.com/meenmo/g2lib/swaption"
)

// Engine names accepted in config.Config.Engines.
const (
	EngineTree = "tree"
	EngineFDM  = "fdm"
)

// Price is one engine's Bermudan value.
type Price struct {
	Engine  string
	NPV     float64
	Elapsed time.Duration
	Err     error
}

// Result collects every stage of a run. Calibration is nil when the run
// stopped before it; Prices is empty when it stopped before pricing.
type Result struct {
	StartedAt      time.Time
	EvaluationDate time.Time
	Curve          *curve.Curve
	Calibration    *calibration.Result
	Bermudan       *swaption.Bermudan
	Prices         []Price
}

// Pipeline holds the market and its curve builder across stages so a quote
// bump between runs triggers exactly one rebootstrap.
type Pipeline struct {
	cfg     config.Config
	market  *marketdata.Market
	builder *curve.Builder

	// Observer receives every optimizer iteration.
	Observer calibration.Observer
}

// LoadMarket reads the market file named by cfg, or the bundled reference
// dataset when none is set.
func LoadMarket(cfg config.MarketConfig) (*marketdata.Market, error) {
	if cfg.File == "" {
		return marketdata.Reference(), nil
	}
	return marketdata.Load(cfg.File)
}

func New(cfg config.Config, market *marketdata.Market) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := market.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return &Pipeline{
		cfg:     cfg,
		market:  market,
		builder: curve.NewBuilder(market.EvaluationDate, curve.NodesFromMarket(market), calendar.USD, cfg.Curve),
	}, nil
}

func (p *Pipeline) Market() *marketdata.Market { return p.market }

// Curve returns the bootstrapped discount curve, rebuilding it if any OIS
// quote moved.
func (p *Pipeline) Curve() (*curve.Curve, error) {
	c, err := p.builder.Curve()
	if err != nil {
		return nil, fmt.Errorf("curve: %w", err)
	}
	return c, nil
}

// Helpers builds the diagonal calibration helpers priced analytically.
func (p *Pipeline) Helpers(c *curve.Curve) ([]*swaption.Helper, error) {
	cc := p.cfg.Calibration
	hs, err := swaption.HelpersFromMarket(p.market, p.market.Diagonal(), c, swaption.NewAnalyticEngine(cc.Range, cc.Intervals))
	if err != nil {
		return nil, fmt.Errorf("helpers: %w", err)
	}
	return hs, nil
}

// Calibrate fits a fresh model to the diagonal helpers. A soft
// *calibration.Error is returned together with a usable model and result.
func (p *Pipeline) Calibrate(ctx context.Context, c *curve.Curve) (*model.G2, *calibration.Result, error) {
	hs, err := p.Helpers(c)
	if err != nil {
		return nil, nil, err
	}
	m, err := model.NewG2(c, model.ParamsFromVector(p.cfg.Calibration.Initial[:]))
	if err != nil {
		return nil, nil, fmt.Errorf("initial parameters: %w", err)
	}
	opt := calibration.OptionsFromConfig(p.cfg.Calibration)
	opt.Observer = p.Observer
	res, err := calibration.Calibrate(ctx, m, hs, opt)
	if res == nil {
		return nil, nil, err
	}
	return m, res, err
}

// Engines returns the configured pricing engines in configuration order.
func Engines(cfg config.Config) ([]string, map[string]swaption.Engine, error) {
	out := make(map[string]swaption.Engine, len(cfg.Engines))
	for _, name := range cfg.Engines {
		switch name {
		case EngineTree:
			out[name] = lattice.NewEngine(cfg.Lattice)
		case EngineFDM:
			out[name] = fdm.NewEngine(cfg.FDM)
		default:
			return nil, nil, fmt.Errorf("unknown engine %q", name)
		}
	}
	return cfg.Engines, out, nil
}

// Price values the configured Bermudan under m with every engine. Engine
// failures are kept per engine and joined into the returned error.
func (p *Pipeline) Price(ctx context.Context, m *model.G2, c *curve.Curve) (*swaption.Bermudan, []Price, error) {
	b, err := swaption.NewBermudanFromConfig(p.cfg.Bermudan)
	if err != nil {
		return nil, nil, fmt.Errorf("bermudan: %w", err)
	}
	ex, err := b.Exercise(c)
	if err != nil {
		return nil, nil, fmt.Errorf("bermudan: %w", err)
	}
	names, engines, err := Engines(p.cfg)
	if err != nil {
		return nil, nil, err
	}

	var errs []error
	prices := make([]Price, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return b, prices, err
		}
		start := time.Now()
		npv, err := engines[name].Price(m, ex)
		pr := Price{Engine: name, NPV: npv, Elapsed: time.Since(start), Err: err}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		prices = append(prices, pr)
	}
	return b, prices, errors.Join(errs...)
}

// Run executes every stage. It returns the partial Result alongside the
// first hard failure, or alongside a soft calibration error after pricing
// with the best parameters found.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{StartedAt: time.Now(), EvaluationDate: p.market.EvaluationDate}

	c, err := p.Curve()
	if err != nil {
		return res, err
	}
	res.Curve = c

	m, cal, calErr := p.Calibrate(ctx, c)
	if cal == nil {
		return res, fmt.Errorf("calibrate: %w", calErr)
	}
	res.Calibration = cal

	b, prices, err := p.Price(ctx, m, c)
	res.Bermudan, res.Prices = b, prices
	if err != nil {
		return res, err
	}
	if calErr != nil {
		return res, fmt.Errorf("calibrate: %w", calErr)
	}
	return res, nil
}
