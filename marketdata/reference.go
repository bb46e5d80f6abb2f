package marketdata

import (
	"time"

	"github.com/meenmo/g2lib/utils"
)

// Reference SOFR market as of 2023-08-30.
var (
	referenceOIS = []struct {
		tenor string
		rate  float64
	}{
		{"3M", 0.05417},
		{"6M", 0.05494},
		{"12M", 0.05480},
		{"2Y", 0.04949},
		{"3Y", 0.04598},
		{"4Y", 0.04371},
		{"5Y", 0.04231},
		{"7Y", 0.04068},
	}

	referenceMaturities = []string{"1Y", "2Y", "3Y", "4Y", "5Y", "7Y"}
	referenceLengths    = []string{"1Y", "2Y", "3Y", "4Y", "5Y", "7Y"}

	referenceVols = [][]float64{
		{0.3556, 0.3742, 0.3734, 0.3664, 0.3561, 0.3428},
		{0.3936, 0.3901, 0.3802, 0.3682, 0.3557, 0.3382},
		{0.3834, 0.3728, 0.3643, 0.3560, 0.3471, 0.3270},
		{0.3643, 0.3502, 0.3407, 0.3306, 0.3202, 0.3024},
		{0.3378, 0.3261, 0.3174, 0.3082, 0.2994, 0.2853},
		{0.2863, 0.2792, 0.2737, 0.2672, 0.2620, 0.2564},
	}
)

// Reference returns a fresh copy of the bundled dataset. Quotes are new
// objects on every call so callers can bump them independently.
func Reference() *Market {
	m := &Market{EvaluationDate: utils.Date(2023, time.August, 30)}
	for _, q := range referenceOIS {
		m.OIS = append(m.OIS, OISQuote{Tenor: utils.MustPeriod(q.tenor), Quote: NewQuote(q.rate)})
	}
	for _, s := range referenceMaturities {
		m.Maturities = append(m.Maturities, utils.MustPeriod(s))
	}
	for _, s := range referenceLengths {
		m.Lengths = append(m.Lengths, utils.MustPeriod(s))
	}
	m.Vols = quoteMatrix(referenceVols)
	return m
}

// Diagonal returns the (row, column) pairs of the co-terminal helpers used for
// calibration: column n-1-i for row i.
func (m *Market) Diagonal() [][2]int {
	n := len(m.Maturities)
	if len(m.Lengths) < n {
		n = len(m.Lengths)
	}
	out := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, [2]int{i, len(m.Lengths) - 1 - i})
	}
	return out
}
