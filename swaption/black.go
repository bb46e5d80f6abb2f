package swaption

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Black is the undiscounted lognormal option value on a forward rate with
// total standard deviation stdDev.
func Black(payer bool, strike, forward, stdDev float64) float64 {
	w := -1.0
	if payer {
		w = 1.0
	}
	if stdDev <= 0 || strike <= 0 || forward <= 0 {
		return math.Max(w*(forward-strike), 0)
	}
	d1 := math.Log(forward/strike)/stdDev + 0.5*stdDev
	d2 := d1 - stdDev
	n := distuv.UnitNormal
	return w * (forward*n.CDF(w*d1) - strike*n.CDF(w*d2))
}
