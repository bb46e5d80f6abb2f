package solver

import (
	"errors"
	"math"
	"testing"
)

func TestBrentFindsCubicRoot(t *testing.T) {
	t.Parallel()

	f := func(x float64) float64 { return x*x*x - 2*x - 5 }
	x, err := Brent(f, 2, 3, 1e-12, 100)
	if err != nil {
		t.Fatalf("Brent: %v", err)
	}
	if math.Abs(x-2.0945514815423265) > 1e-10 {
		t.Fatalf("root: got %.15f", x)
	}
}

func TestBrentNotBracketed(t *testing.T) {
	t.Parallel()

	_, err := Brent(func(x float64) float64 { return x*x + 1 }, -1, 1, 1e-12, 100)
	if !errors.Is(err, ErrNotBracketed) {
		t.Fatalf("expected ErrNotBracketed, got %v", err)
	}
}

func TestBracketExpands(t *testing.T) {
	t.Parallel()

	f := func(x float64) float64 { return x - 10 }
	lo, hi, err := Bracket(f, 0, 1, math.Inf(-1), math.Inf(1), 50)
	if err != nil {
		t.Fatalf("Bracket: %v", err)
	}
	if f(lo)*f(hi) > 0 {
		t.Fatalf("[%g, %g] does not bracket", lo, hi)
	}
}

func TestSafeNewtonFallsBackToBrent(t *testing.T) {
	t.Parallel()

	// atan has a root at 0 but Newton diverges from x0 = 2.
	fdf := func(x float64) (float64, float64) { return math.Atan(x), 1 / (1 + x*x) }
	x, _, err := SafeNewton(fdf, 2, -3, 3, NewtonOptions{Tolerance: 1e-12, MaxIterations: 50, DerivativeThreshold: 1e-15})
	if err != nil {
		t.Fatalf("SafeNewton: %v", err)
	}
	if math.Abs(x) > 1e-10 {
		t.Fatalf("root: got %g", x)
	}
}

func TestSafeNewtonQuadratic(t *testing.T) {
	t.Parallel()

	fdf := func(x float64) (float64, float64) { return x*x - 2, 2 * x }
	x, iters, err := SafeNewton(fdf, 1, 0, 2, NewtonOptions{Tolerance: 1e-14, MaxIterations: 50, DerivativeThreshold: 1e-15})
	if err != nil {
		t.Fatalf("SafeNewton: %v", err)
	}
	if math.Abs(x-math.Sqrt2) > 1e-12 {
		t.Fatalf("root: got %v", x)
	}
	if iters > 10 {
		t.Fatalf("too many iterations: %d", iters)
	}
}
