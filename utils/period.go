package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is the time unit of a Period.
type Unit byte

const (
	UnitDays   Unit = 'D'
	UnitWeeks  Unit = 'W'
	UnitMonths Unit = 'M'
	UnitYears  Unit = 'Y'
)

// Period is a tenor such as 3M or 7Y.
type Period struct {
	N    int
	Unit Unit
}

// ParsePeriod converts tenor strings like "1W", "3M", "10Y" to a Period.
func ParsePeriod(tenor string) (Period, error) {
	tenor = strings.TrimSpace(strings.ToUpper(tenor))
	if len(tenor) < 2 {
		return Period{}, fmt.Errorf("ParsePeriod: invalid tenor %q", tenor)
	}
	u := Unit(tenor[len(tenor)-1])
	switch u {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
	default:
		return Period{}, fmt.Errorf("ParsePeriod: unknown unit in %q", tenor)
	}
	n, err := strconv.Atoi(tenor[:len(tenor)-1])
	if err != nil {
		return Period{}, fmt.Errorf("ParsePeriod: %q: %w", tenor, err)
	}
	if n < 0 {
		return Period{}, fmt.Errorf("ParsePeriod: negative tenor %q", tenor)
	}
	return Period{N: n, Unit: u}, nil
}

// MustPeriod is ParsePeriod for literals known to be valid.
func MustPeriod(tenor string) Period {
	p, err := ParsePeriod(tenor)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Period) String() string {
	return fmt.Sprintf("%d%c", p.N, p.Unit)
}

// Months returns the length in months for M/Y periods and 0 otherwise.
func (p Period) Months() int {
	switch p.Unit {
	case UnitMonths:
		return p.N
	case UnitYears:
		return 12 * p.N
	default:
		return 0
	}
}

// Years returns an approximate length in years, used only for ordering tenors.
func (p Period) Years() float64 {
	switch p.Unit {
	case UnitDays:
		return float64(p.N) / 365.0
	case UnitWeeks:
		return float64(p.N) * 7.0 / 365.0
	case UnitMonths:
		return float64(p.N) / 12.0
	default:
		return float64(p.N)
	}
}

// AddTo moves t forward by the period without business-day adjustment.
func (p Period) AddTo(t time.Time) time.Time {
	switch p.Unit {
	case UnitDays:
		return t.AddDate(0, 0, p.N)
	case UnitWeeks:
		return t.AddDate(0, 0, 7*p.N)
	default:
		return AddMonth(t, p.Months())
	}
}
