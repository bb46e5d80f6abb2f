// Package solver holds the one-dimensional root finders shared by the curve
// bootstrap, the analytic swaption pricer and implied volatility inversion.
package solver

import (
	"errors"
	"fmt"
	"math"
)

const epsilon = 2.220446049250313e-16

// ErrNotBracketed is returned when f(lo) and f(hi) have the same sign.
var ErrNotBracketed = errors.New("root not bracketed")

// ConvergenceError reports a solver that ran out of evaluations.
type ConvergenceError struct {
	Method      string
	Evaluations int
	X           float64
	F           float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: no convergence after %d evaluations (x=%g, f=%g)", e.Method, e.Evaluations, e.X, e.F)
}

// Brent finds a root of f in [lo, hi] to absolute accuracy tol in x.
func Brent(f func(float64) float64, lo, hi, tol float64, maxEval int) (float64, error) {
	fa, fb := f(lo), f(hi)
	if fa == 0 {
		return lo, nil
	}
	if fb == 0 {
		return hi, nil
	}
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return 0, fmt.Errorf("Brent: NaN at bracket [%g, %g]", lo, hi)
	}
	if (fa > 0) == (fb > 0) {
		return 0, fmt.Errorf("Brent: [%g, %g] f=(%g, %g): %w", lo, hi, fa, fb, ErrNotBracketed)
	}
	return brent(f, lo, hi, fa, fb, tol, maxEval)
}

func brent(f func(float64) float64, a, b, fa, fb, tol float64, maxEval int) (float64, error) {
	c, fc := b, fb
	var d, e float64
	for eval := 2; eval <= maxEval; eval++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*epsilon*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xm*q - math.Abs(tol1*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
		if math.IsNaN(fb) {
			return 0, fmt.Errorf("Brent: NaN at x=%g", b)
		}
	}
	return b, &ConvergenceError{Method: "Brent", Evaluations: maxEval, X: b, F: fb}
}

// Bracket widens [lo, hi] geometrically until f changes sign. Bounds, when
// finite, cap the search.
func Bracket(f func(float64) float64, lo, hi, lower, upper float64, maxEval int) (float64, float64, error) {
	if lo >= hi {
		return 0, 0, fmt.Errorf("Bracket: empty interval [%g, %g]", lo, hi)
	}
	flo, fhi := f(lo), f(hi)
	for i := 0; i < maxEval; i++ {
		if (flo > 0) != (fhi > 0) {
			return lo, hi, nil
		}
		w := hi - lo
		if math.Abs(flo) < math.Abs(fhi) {
			lo = math.Max(lo-1.6*w, lower)
			flo = f(lo)
		} else {
			hi = math.Min(hi+1.6*w, upper)
			fhi = f(hi)
		}
	}
	if (flo > 0) != (fhi > 0) {
		return lo, hi, nil
	}
	return 0, 0, fmt.Errorf("Bracket: [%g, %g] after %d expansions: %w", lo, hi, maxEval, ErrNotBracketed)
}

// NewtonOptions controls SafeNewton.
type NewtonOptions struct {
	Tolerance           float64 // on |f|
	MaxIterations       int
	DerivativeThreshold float64
	// Damping caps |step| at Damping * |x| when positive.
	Damping float64
}

// SafeNewton runs Newton from guess inside [lo, hi]. Whenever a step leaves the
// bracket or the derivative vanishes it falls back to Brent on the bracket.
// fdf returns f and its derivative.
func SafeNewton(fdf func(float64) (float64, float64), guess, lo, hi float64, opt NewtonOptions) (float64, int, error) {
	x := guess
	for iter := 1; iter <= opt.MaxIterations; iter++ {
		fx, dfx := fdf(x)
		if math.IsNaN(fx) || math.IsNaN(dfx) {
			break
		}
		if math.Abs(fx) < opt.Tolerance {
			return x, iter, nil
		}
		if math.Abs(dfx) < opt.DerivativeThreshold {
			break
		}
		step := fx / dfx
		if opt.Damping > 0 && math.Abs(step) > opt.Damping*math.Abs(x) {
			step = math.Copysign(opt.Damping*math.Abs(x), step)
		}
		next := x - step
		if next <= lo || next >= hi {
			break
		}
		x = next
	}

	f := func(v float64) float64 {
		fv, _ := fdf(v)
		return fv
	}
	root, err := Brent(f, lo, hi, opt.Tolerance, 4*opt.MaxIterations)
	if err != nil {
		return x, opt.MaxIterations, fmt.Errorf("SafeNewton: %w", err)
	}
	return root, opt.MaxIterations, nil
}
