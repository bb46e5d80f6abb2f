// Package report renders a pipeline run as text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meenmo/g2lib/pipeline"
	"github.com/meenmo/g2lib/utils"
)

type Parameters struct {
	A     float64 `json:"a"`
	Sigma float64 `json:"sigma"`
	B     float64 `json:"b"`
	Eta   float64 `json:"eta"`
	Rho   float64 `json:"rho"`
}

// Residual holds volatilities in percent.
type Residual struct {
	Helper    string          `json:"helper"`
	ModelVol  decimal.Decimal `json:"model_vol_pct"`
	MarketVol decimal.Decimal `json:"market_vol_pct"`
	Diff      decimal.Decimal `json:"diff_pct"`
	Error     string          `json:"error,omitempty"`
}

type Bermudan struct {
	Type      string          `json:"type"`
	Notional  decimal.Decimal `json:"notional"`
	FixedRate decimal.Decimal `json:"fixed_rate_pct"`
	Start     string          `json:"start"`
	Maturity  string          `json:"maturity"`
	Exercises int             `json:"exercises"`
}

type Price struct {
	Engine    string          `json:"engine"`
	NPV       decimal.Decimal `json:"npv"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Error     string          `json:"error,omitempty"`
}

// Document is the rendered summary of one run.
type Document struct {
	EvaluationDate string      `json:"evaluation_date"`
	Parameters     *Parameters `json:"parameters,omitempty"`
	EndCriteria    string      `json:"end_criteria,omitempty"`
	Iterations     int         `json:"iterations"`
	Evaluations    int64       `json:"evaluations"`
	Infeasible     int         `json:"infeasible_trials,omitempty"`
	Unpriced       int         `json:"unpriced_trials,omitempty"`
	Cost           float64     `json:"cost"`
	Residuals      []Residual  `json:"residuals"`
	Bermudan       *Bermudan   `json:"bermudan,omitempty"`
	Prices         []Price     `json:"prices"`
	Error          string      `json:"error,omitempty"`
	Classification string      `json:"classification,omitempty"`
}

// Vol places for the residual lines; NPVs are rounded to cents.
const (
	volPlaces = 2
	npvPlaces = 2
)

// Percent converts a decimal fraction to percent rounded to places.
func Percent(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Shift(2).Round(places)
}

// Build summarises res. runErr is the error Run returned, if any.
func Build(res *pipeline.Result, runErr error) *Document {
	d := &Document{}
	if runErr != nil {
		d.Error = runErr.Error()
		d.Classification = string(pipeline.Classify(runErr))
	}
	if res == nil {
		return d
	}
	d.EvaluationDate = utils.FormatDate(res.EvaluationDate)

	if cal := res.Calibration; cal != nil {
		p := cal.Params
		d.Parameters = &Parameters{A: p.A, Sigma: p.Sigma, B: p.B, Eta: p.Eta, Rho: p.Rho}
		d.EndCriteria = cal.EndCriteria.String()
		d.Iterations = cal.Iterations
		d.Evaluations = cal.Evaluations
		d.Infeasible = cal.InfeasibleTrials
		d.Unpriced = cal.FailedTrials
		d.Cost = cal.Cost
		for _, r := range cal.Report {
			row := Residual{Helper: r.Helper, MarketVol: Percent(r.MarketVol, volPlaces)}
			if r.Err != nil {
				row.Error = r.Err.Error()
			} else {
				row.ModelVol = Percent(r.ModelVol, volPlaces)
				row.Diff = Percent(r.Diff, volPlaces)
			}
			d.Residuals = append(d.Residuals, row)
		}
	}

	if b := res.Bermudan; b != nil && b.Swap != nil {
		d.Bermudan = &Bermudan{
			Type:      b.Swap.Type.String(),
			Notional:  decimal.NewFromFloat(b.Swap.Notional),
			FixedRate: Percent(b.Swap.FixedRate, 4),
			Start:     utils.FormatDate(b.Swap.Start),
			Maturity:  utils.FormatDate(b.Swap.Maturity),
			Exercises: len(b.ExerciseDates),
		}
	}
	for _, p := range res.Prices {
		row := Price{Engine: p.Engine, NPV: decimal.NewFromFloat(p.NPV).Round(npvPlaces), ElapsedMS: p.Elapsed.Milliseconds()}
		if p.Err != nil {
			row.Error = p.Err.Error()
			row.NPV = decimal.Zero
		}
		d.Prices = append(d.Prices, row)
	}
	return d
}

// Line formats one residual as "1x7: model 34.1%, market 34.28% (-0.18%)".
func (r Residual) Line() string {
	if r.Error != "" {
		return fmt.Sprintf("%s: model n/a, market %s%% (%s)", r.Helper, r.MarketVol, r.Error)
	}
	return fmt.Sprintf("%s: model %s%%, market %s%% (%s%%)", r.Helper, r.ModelVol, r.MarketVol, r.Diff)
}

func WriteText(w io.Writer, d *Document) error {
	var b strings.Builder
	if d.EvaluationDate != "" {
		fmt.Fprintf(&b, "Evaluation date: %s\n", d.EvaluationDate)
	}
	if p := d.Parameters; p != nil {
		fmt.Fprintf(&b, "\nG2++ calibration: %s after %d iterations (%d evaluations, cost %.6g)\n",
			d.EndCriteria, d.Iterations, d.Evaluations, d.Cost)
		if d.Infeasible > 0 || d.Unpriced > 0 {
			fmt.Fprintf(&b, "  rejected trials: %d outside the model domain, %d unpriced\n", d.Infeasible, d.Unpriced)
		}
		fmt.Fprintf(&b, "  a     = %.6f\n", p.A)
		fmt.Fprintf(&b, "  sigma = %.6f\n", p.Sigma)
		fmt.Fprintf(&b, "  b     = %.6f\n", p.B)
		fmt.Fprintf(&b, "  eta   = %.6f\n", p.Eta)
		fmt.Fprintf(&b, "  rho   = %.6f\n", p.Rho)
		b.WriteString("\n")
		for _, r := range d.Residuals {
			b.WriteString(r.Line())
			b.WriteString("\n")
		}
	}
	if bm := d.Bermudan; bm != nil {
		fmt.Fprintf(&b, "\nBermudan %s %s%% %s -> %s, notional %s, %d exercise dates\n",
			strings.ToLower(bm.Type), bm.FixedRate, bm.Start, bm.Maturity, bm.Notional, bm.Exercises)
		for _, p := range d.Prices {
			if p.Error != "" {
				fmt.Fprintf(&b, "  %-5s failed: %s\n", p.Engine+":", p.Error)
				continue
			}
			fmt.Fprintf(&b, "  %-5s %s (%d ms)\n", p.Engine+":", p.NPV.StringFixed(npvPlaces), p.ElapsedMS)
		}
	}
	if d.Error != "" {
		fmt.Fprintf(&b, "\nerror [%s]: %s\n", d.Classification, d.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func WriteJSON(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
