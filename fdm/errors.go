package fdm

import "fmt"

// InstabilityError reports a scheme configuration that cannot be run: an
// explicit part exceeding its stability bound or a degenerate grid.
type InstabilityError struct {
	Theta  float64
	Ratio  float64
	Dt     float64
	Hx, Hy float64
	Reason string
}

func (e *InstabilityError) Error() string {
	if e.Ratio > 0 {
		return fmt.Sprintf("fdm: unstable scheme (theta=%g, dt=%g, hx=%g, hy=%g, ratio=%.4g): %s", e.Theta, e.Dt, e.Hx, e.Hy, e.Ratio, e.Reason)
	}
	return "fdm: " + e.Reason
}
