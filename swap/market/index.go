package market

// ReferenceIndex enumerates supported floating benchmarks.
type ReferenceIndex string

const (
	SOFR ReferenceIndex = "SOFR"
)

// IsOvernight reports whether the reference rate is an overnight index.
func IsOvernight(r ReferenceIndex) bool {
	switch r {
	case SOFR:
		return true
	default:
		return false
	}
}
