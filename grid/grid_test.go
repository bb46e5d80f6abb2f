package grid

import (
	"math"
	"testing"
)

func TestGridContainsMandatoryTimes(t *testing.T) {
	t.Parallel()

	mandatory := []float64{0.25, 0.5, 0.5, 0.75, 3.0, 1.0}
	g, err := New(mandatory, 50)
	if err != nil {
		t.Fatal(err)
	}
	if g.At(0) != 0 {
		t.Fatalf("grid starts at %g", g.At(0))
	}
	if g.Last() != 3.0 {
		t.Fatalf("grid ends at %g", g.Last())
	}
	for i := 1; i < g.Len(); i++ {
		if g.At(i) <= g.At(i-1) {
			t.Fatalf("not increasing at %d: %g <= %g", i, g.At(i), g.At(i-1))
		}
	}
	for _, m := range mandatory {
		if _, err := g.Index(m); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(g.Mandatory()); n != 5 {
		t.Fatalf("mandatory times not deduplicated: %d", n)
	}
	if g.Len() < 45 || g.Len() > 56 {
		t.Fatalf("unexpected grid size %d", g.Len())
	}
}

func TestGridShortSpanGetsOneStep(t *testing.T) {
	t.Parallel()

	g, err := New([]float64{0.001, 1}, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.001, 0.25075, 0.5005, 0.75025, 1}
	if g.Len() != len(want) {
		t.Fatalf("got %v", g.Times())
	}
	for i, w := range want {
		if math.Abs(g.At(i)-w) > 1e-12 {
			t.Fatalf("time %d: got %g want %g", i, g.At(i), w)
		}
	}
}

func TestGridRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := New([]float64{1}, 0); err == nil {
		t.Fatal("expected error for zero steps")
	}
	if _, err := New([]float64{-1, 1}, 10); err == nil {
		t.Fatal("expected error for negative time")
	}
	if _, err := New(nil, 10); err == nil {
		t.Fatal("expected error for empty grid")
	}
	g, _ := New([]float64{1}, 10)
	if _, err := g.Index(0.55); err == nil {
		t.Fatal("expected error for off-grid time")
	}
}
