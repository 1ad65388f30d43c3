package tracker

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Marker is a Tracker fed by pushed updates, typically from a subscription
// callback running on another goroutine. Only the latest update is kept.
type Marker struct {
	mu         sync.Mutex
	point      r3.Vector
	valid      bool
	seen       int
	updates    int
	badSamples int
}

// NewMarker returns a marker with no reading yet.
func NewMarker() *Marker {
	return &Marker{}
}

// Update replaces the latest reading with the points seen in one tracker frame.
// Anything but exactly one point makes the reading invalid.
func (m *Marker) Update(points []r3.Vector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	m.seen = len(points)
	m.valid = len(points) == 1
	if m.valid {
		m.point = points[0]
	}
}

// CurrentPosition returns the latest point or ErrBadSample, counting bad reads.
func (m *Marker) CurrentPosition(ctx context.Context) (r3.Vector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid {
		m.badSamples++
		if m.updates == 0 {
			return r3.Vector{}, errors.Wrap(ErrBadSample, "no tracker update received")
		}
		return r3.Vector{}, errors.Wrapf(ErrBadSample, "latest update held %d points", m.seen)
	}
	return m.point, nil
}

// BadSamples returns how many reads returned ErrBadSample.
func (m *Marker) BadSamples() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.badSamples
}
