package curve

import (
	"sync"
	"time"

	"github.com/meenmo/g2lib/calendar"
	"github.com/meenmo/g2lib/config"
)

// Builder owns the quote references of a curve and rebuilds it on read when
// any quote version moved since the last build.
type Builder struct {
	mu        sync.Mutex
	reference time.Time
	nodes     []Node
	cal       calendar.CalendarID
	cfg       config.CurveConfig

	seen   []uint64
	curve  *Curve
	builds int
}

func NewBuilder(reference time.Time, nodes []Node, cal calendar.CalendarID, cfg config.CurveConfig) *Builder {
	return &Builder{reference: reference, nodes: nodes, cal: cal, cfg: cfg}
}

// Dirty reports whether the next Curve call will bootstrap.
func (b *Builder) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty()
}

func (b *Builder) dirty() bool {
	if b.curve == nil || len(b.seen) != len(b.nodes) {
		return true
	}
	for i, n := range b.nodes {
		if n.Quote.Version() != b.seen[i] {
			return true
		}
	}
	return false
}

// Curve returns the current curve, bootstrapping first if dirty. A failed
// build leaves the previous curve in place and the builder dirty.
func (b *Builder) Curve() (*Curve, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty() {
		return b.curve, nil
	}
	seen := make([]uint64, len(b.nodes))
	for i, n := range b.nodes {
		if n.Quote != nil {
			seen[i] = n.Quote.Version()
		}
	}
	c, err := Bootstrap(b.reference, b.nodes, b.cal, b.cfg)
	if err != nil {
		return nil, err
	}
	b.curve, b.seen = c, seen
	b.builds++
	return c, nil
}

// Builds counts successful bootstraps.
func (b *Builder) Builds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds
}
