package swap

import "reflect"

func isNilInterface(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// fixedLegPV discounts fixed coupon amounts.
func fixedLegPV(coupons []Coupon, curve DiscountCurve) float64 {
	pv := 0.0
	for _, c := range coupons {
		pv += c.Amount * curve.DiscountDate(c.PaymentDate)
	}
	return pv
}

// projectFloating fills floating amounts with simple forwards off the same
// curve used for discounting: notional * (P(start)/P(end) - 1).
func projectFloating(coupons []Coupon, notional float64, curve DiscountCurve) []Coupon {
	out := make([]Coupon, len(coupons))
	for i, c := range coupons {
		c.Amount = notional * (curve.DiscountDate(c.AccrualStart)/curve.DiscountDate(c.AccrualEnd) - 1)
		out[i] = c
	}
	return out
}

// annuity is sum(alpha_i * P(pay_i)).
func annuity(coupons []Coupon, curve DiscountCurve) float64 {
	a := 0.0
	for _, c := range coupons {
		a += c.Accrual * curve.DiscountDate(c.PaymentDate)
	}
	return a
}
