package pipeline

import (
	"context"
	"errors"

	"github.com/meenmo/g2lib/calibration"
	"github.com/meenmo/g2lib/curve"
	"github.com/meenmo/g2lib/fdm"
	"github.com/meenmo/g2lib/lattice"
	"github.com/meenmo/g2lib/swaption"
)

// Kind classifies a run failure.
type Kind string

const (
	KindNone        Kind = ""
	KindBootstrap   Kind = "bootstrap"
	KindImpliedVol  Kind = "implied-volatility"
	KindCalibration Kind = "calibration"
	KindLattice     Kind = "lattice"
	KindInstability Kind = "fdm-instability"
	KindCancelled   Kind = "cancelled"
	KindOther       Kind = "error"
)

var exitCodes = map[Kind]int{
	KindNone:        0,
	KindOther:       1,
	KindBootstrap:   3,
	KindImpliedVol:  4,
	KindCalibration: 5,
	KindLattice:     6,
	KindInstability: 7,
	KindCancelled:   130,
}

// ExitCode is the process exit status for k.
func (k Kind) ExitCode() int { return exitCodes[k] }

// Classify maps err to the most specific failure kind it wraps. Hard
// failures take precedence over a soft calibration stop.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		be *curve.BootstrapError
		ve *swaption.ImpliedVolatilityError
		ne *lattice.NodeError
		ie *fdm.InstabilityError
		ce *calibration.Error
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.As(err, &be):
		return KindBootstrap
	case errors.As(err, &ve):
		return KindImpliedVol
	case errors.As(err, &ne):
		return KindLattice
	case errors.As(err, &ie):
		return KindInstability
	case errors.As(err, &ce):
		return KindCalibration
	}
	return KindOther
}
