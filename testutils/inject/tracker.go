package inject

import (
	"context"

	"github.com/golang/geo/r3"

	"github.com/dvrk-tools/palpcal/components/tracker"
)

// Tracker is an injected tracker.
type Tracker struct {
	tracker.Tracker
	CurrentPositionFunc func(ctx context.Context) (r3.Vector, error)
	BadSamplesFunc      func() int
}

// CurrentPosition calls the injected CurrentPosition or the real version.
func (t *Tracker) CurrentPosition(ctx context.Context) (r3.Vector, error) {
	if t.CurrentPositionFunc == nil {
		return t.Tracker.CurrentPosition(ctx)
	}
	return t.CurrentPositionFunc(ctx)
}

// BadSamples calls the injected BadSamples or the real version.
func (t *Tracker) BadSamples() int {
	if t.BadSamplesFunc == nil {
		return t.Tracker.BadSamples()
	}
	return t.BadSamplesFunc()
}
