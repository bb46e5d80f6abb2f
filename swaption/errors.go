package swaption

import "fmt"

// ImpliedVolatilityError is returned when a price cannot be inverted to a
// Black volatility inside the requested bounds.
type ImpliedVolatilityError struct {
	Helper string
	Target float64
	MinVol float64
	MaxVol float64
	Reason string
	Err    error
}

func (e *ImpliedVolatilityError) Error() string {
	msg := fmt.Sprintf("implied volatility %s: target %g in [%g, %g]: %s", e.Helper, e.Target, e.MinVol, e.MaxVol, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImpliedVolatilityError) Unwrap() error { return e.Err }
