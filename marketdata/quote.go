package marketdata

import "sync"

// Quote is an observable market value shared by pointer between the curve,
// calibration helpers and anything else priced off it. Every SetValue bumps
// the version so dependents can detect staleness on read.
type Quote struct {
	mu      sync.RWMutex
	value   float64
	version uint64
}

func NewQuote(v float64) *Quote {
	return &Quote{value: v, version: 1}
}

func (q *Quote) Value() float64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.value
}

// Version is strictly increasing across updates.
func (q *Quote) Version() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}

// SetValue updates the quote. Setting the same value still counts as an update.
func (q *Quote) SetValue(v float64) {
	q.mu.Lock()
	q.value = v
	q.version++
	q.mu.Unlock()
}
