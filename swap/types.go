package swap

import (
	"errors"
	"time"
)

var (
	// ErrNilCurve is returned when a required curve argument is nil.
	ErrNilCurve = errors.New("nil curve")
)

// DiscountCurve provides discount factors for valuation.
type DiscountCurve interface {
	DiscountDate(d time.Time) float64
}

// Type is the fixed-leg direction of a swap.
type Type int

const (
	// Payer pays fixed and receives floating.
	Payer Type = iota
	// Receiver receives fixed and pays floating.
	Receiver
)

func (t Type) String() string {
	if t == Receiver {
		return "receiver"
	}
	return "payer"
}

// SchedulePeriod is a cashflow period for a single leg.
//
// Dates are business-day adjusted per the provided leg convention.
type SchedulePeriod struct {
	StartDate   time.Time
	EndDate     time.Time
	PayDate     time.Time
	AccrualDays int
}

// Coupon is one accrual period of a leg. Amount is fixed for fixed legs and
// projected off a curve for floating legs.
type Coupon struct {
	AccrualStart time.Time
	AccrualEnd   time.Time
	PaymentDate  time.Time
	Accrual      float64
	Amount       float64
}

// PV contains present values for each leg and the net sum from the swap
// holder's side.
type PV struct {
	FixedLegPV    float64
	FloatingLegPV float64
	TotalPV       float64
}
