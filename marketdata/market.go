package marketdata

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meenmo/g2lib/utils"
)

// OISQuote is a par rate (decimal) for an OIS of the given tenor.
type OISQuote struct {
	Tenor utils.Period
	Quote *Quote
}

// Market is the full set of inputs for one evaluation: the OIS strip and the
// swaption volatility matrix indexed by (option maturity, swap length).
type Market struct {
	EvaluationDate time.Time
	OIS            []OISQuote
	Maturities     []utils.Period
	Lengths        []utils.Period
	Vols           [][]*Quote
}

// Vol returns the volatility quote for maturity row i and swap-length column j.
func (m *Market) Vol(i, j int) (*Quote, error) {
	if i < 0 || i >= len(m.Vols) || j < 0 || j >= len(m.Vols[i]) {
		return nil, fmt.Errorf("Vol: index (%d,%d) out of range", i, j)
	}
	return m.Vols[i][j], nil
}

// Validate checks tenor ordering and matrix shape.
func (m *Market) Validate() error {
	if m.EvaluationDate.IsZero() {
		return fmt.Errorf("Validate: missing evaluation date")
	}
	if len(m.OIS) == 0 {
		return fmt.Errorf("Validate: no OIS quotes")
	}
	for i := 1; i < len(m.OIS); i++ {
		prev, cur := m.OIS[i-1].Tenor, m.OIS[i].Tenor
		if cur.AddTo(m.EvaluationDate).Compare(prev.AddTo(m.EvaluationDate)) <= 0 {
			return fmt.Errorf("Validate: OIS tenor %s not after %s", cur, prev)
		}
	}
	if len(m.Vols) != len(m.Maturities) {
		return fmt.Errorf("Validate: %d vol rows for %d maturities", len(m.Vols), len(m.Maturities))
	}
	for i, row := range m.Vols {
		if len(row) != len(m.Lengths) {
			return fmt.Errorf("Validate: vol row %d has %d columns, want %d", i, len(row), len(m.Lengths))
		}
	}
	return nil
}

type fileMarket struct {
	EvaluationDate string `yaml:"evaluation_date"`
	OIS            []struct {
		Tenor string  `yaml:"tenor"`
		Rate  float64 `yaml:"rate"`
	} `yaml:"ois"`
	Swaptions struct {
		Maturities []string    `yaml:"maturities"`
		Lengths    []string    `yaml:"lengths"`
		Vols       [][]float64 `yaml:"vols"`
	} `yaml:"swaptions"`
}

// Parse decodes a YAML market file.
func Parse(data []byte) (*Market, error) {
	var raw fileMarket
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse market: %w", err)
	}
	evalDate, err := utils.ParseDate(raw.EvaluationDate)
	if err != nil {
		return nil, fmt.Errorf("parse market: %w", err)
	}
	m := &Market{EvaluationDate: evalDate}
	for _, q := range raw.OIS {
		p, err := utils.ParsePeriod(q.Tenor)
		if err != nil {
			return nil, fmt.Errorf("parse market: %w", err)
		}
		m.OIS = append(m.OIS, OISQuote{Tenor: p, Quote: NewQuote(q.Rate)})
	}
	if m.Maturities, err = parsePeriods(raw.Swaptions.Maturities); err != nil {
		return nil, fmt.Errorf("parse market: %w", err)
	}
	if m.Lengths, err = parsePeriods(raw.Swaptions.Lengths); err != nil {
		return nil, fmt.Errorf("parse market: %w", err)
	}
	m.Vols = quoteMatrix(raw.Swaptions.Vols)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads a YAML market file from disk.
func Load(path string) (*Market, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read market: %w", err)
	}
	return Parse(data)
}

func parsePeriods(in []string) ([]utils.Period, error) {
	out := make([]utils.Period, 0, len(in))
	for _, s := range in {
		p, err := utils.ParsePeriod(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func quoteMatrix(vols [][]float64) [][]*Quote {
	out := make([][]*Quote, len(vols))
	for i, row := range vols {
		out[i] = make([]*Quote, len(row))
		for j, v := range row {
			out[i][j] = NewQuote(v)
		}
	}
	return out
}
