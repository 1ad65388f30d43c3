// Package fake implements a simulated tracker that watches a point through a
// fixed rigid transform.
package fake

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/dvrk-tools/palpcal/components/tracker"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

// Tracker observes Source, maps it into the tracker frame with Pose and pushes
// it into a Marker. Every DropEvery-th read sees no marker.
type Tracker struct {
	*tracker.Marker

	source    func() r3.Vector
	pose      spatialmath.Pose
	dropEvery int

	mu    sync.Mutex
	reads int
}

// NewTracker returns a tracker observing source from pose. dropEvery <= 0 never drops.
func NewTracker(source func() r3.Vector, pose spatialmath.Pose, dropEvery int) *Tracker {
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	return &Tracker{
		Marker:    tracker.NewMarker(),
		source:    source,
		pose:      pose,
		dropEvery: dropEvery,
	}
}

// CurrentPosition refreshes the marker from the source, then reads it.
func (t *Tracker) CurrentPosition(ctx context.Context) (r3.Vector, error) {
	t.mu.Lock()
	t.reads++
	drop := t.dropEvery > 0 && t.reads%t.dropEvery == 0
	t.mu.Unlock()

	if drop {
		t.Update(nil)
	} else {
		observed := spatialmath.Compose(t.pose, spatialmath.NewPoseFromPoint(t.source())).Point()
		t.Update([]r3.Vector{observed})
	}
	return t.Marker.CurrentPosition(ctx)
}
