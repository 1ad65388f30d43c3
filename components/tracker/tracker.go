// Package tracker defines the optical tracker that observes a marker on the
// arm's tool during tracker calibration runs.
package tracker

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrBadSample is returned when the latest tracker update held zero or
// several points. It is recoverable: the caller skips the sample.
var ErrBadSample = errors.New("bad tracker sample")

// A Tracker reports the position of a single marker in its own frame, mm.
type Tracker interface {
	// CurrentPosition returns the latest marker position, or ErrBadSample.
	CurrentPosition(ctx context.Context) (r3.Vector, error)

	// BadSamples returns how many reads so far returned ErrBadSample.
	BadSamples() int
}
