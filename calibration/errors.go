package calibration

import (
	"errors"
	"fmt"
)

// Error is the soft failure of a calibration that ran out of budget. The
// accompanying Result still carries the best parameters found, and they have
// been set on the model.
type Error struct {
	End        EndType
	Iterations int
	Cost       float64
}

func (e *Error) Error() string {
	return fmt.Sprintf("calibration stopped on %s after %d iterations (cost %.6g)", e.End, e.Iterations, e.Cost)
}

// errInfeasible marks trial parameters outside the model's domain.
var errInfeasible = errors.New("infeasible parameters")
