// Package samples holds palpation samples, the recorder that collects them
// during a run and their CSV storage.
package samples

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

var (
	// ErrEmptySampleSet is returned when a fit is attempted without samples.
	ErrEmptySampleSet = errors.New("sample set is empty")

	// ErrSchemaMismatch is returned when a sample or file does not match the expected schema.
	ErrSchemaMismatch = errors.New("sample schema mismatch")
)

// Schema says which columns a sample set carries.
type Schema string

const (
	// SchemaPlane samples hold arm position and joints.
	SchemaPlane Schema = "plane"
	// SchemaTracker samples additionally hold a tracker point.
	SchemaTracker Schema = "tracker"
)

// ParseSchema converts a schema tag.
func ParseSchema(s string) (Schema, error) {
	switch Schema(s) {
	case SchemaPlane, SchemaTracker:
		return Schema(s), nil
	}
	return "", errors.Wrapf(ErrSchemaMismatch, "unknown schema %q", s)
}

// Sample is one recorded arm configuration. Tracker is nil for plane samples.
type Sample struct {
	Pose    spatialmath.Pose
	Joints  kinematics.JointVector
	Tracker *r3.Vector
}

// NewSample returns a sample without a tracker point.
func NewSample(pose spatialmath.Pose, joints kinematics.JointVector) Sample {
	return Sample{Pose: pose, Joints: joints}
}

// NewTrackerSample returns a sample with a tracker point.
func NewTrackerSample(pose spatialmath.Pose, joints kinematics.JointVector, tracker r3.Vector) Sample {
	return Sample{Pose: pose, Joints: joints, Tracker: &tracker}
}

// Schema returns the schema this sample fits.
func (s Sample) Schema() Schema {
	if s.Tracker != nil {
		return SchemaTracker
	}
	return SchemaPlane
}

func (s Sample) String() string {
	pt := s.Pose.Point()
	if s.Tracker != nil {
		return fmt.Sprintf("arm [%.4f %.4f %.4f] joints %v tracker [%.4f %.4f %.4f]",
			pt.X, pt.Y, pt.Z, s.Joints, s.Tracker.X, s.Tracker.Y, s.Tracker.Z)
	}
	return fmt.Sprintf("arm [%.4f %.4f %.4f] joints %v", pt.X, pt.Y, pt.Z, s.Joints)
}

// SampleSet is an ordered, read-only snapshot of samples.
type SampleSet struct {
	schema   Schema
	metadata string
	samples  []Sample
}

// NewSampleSet copies samples into a set, checking every sample matches schema.
func NewSampleSet(schema Schema, metadata string, samples []Sample) (SampleSet, error) {
	for i, s := range samples {
		if s.Schema() != schema {
			return SampleSet{}, errors.Wrapf(ErrSchemaMismatch, "sample %d is %s, set is %s", i, s.Schema(), schema)
		}
	}
	return SampleSet{schema: schema, metadata: metadata, samples: append([]Sample(nil), samples...)}, nil
}

// Schema returns the set's schema.
func (ss SampleSet) Schema() Schema {
	return ss.schema
}

// Metadata returns the free text stored with the set.
func (ss SampleSet) Metadata() string {
	return ss.metadata
}

// Len returns the number of samples.
func (ss SampleSet) Len() int {
	return len(ss.samples)
}

// At returns sample i.
func (ss SampleSet) At(i int) Sample {
	return ss.samples[i]
}

// Samples returns a copy of the samples.
func (ss SampleSet) Samples() []Sample {
	return append([]Sample(nil), ss.samples...)
}

// NonEmpty returns ErrEmptySampleSet if the set has no samples.
func (ss SampleSet) NonEmpty() error {
	if len(ss.samples) == 0 {
		return ErrEmptySampleSet
	}
	return nil
}

// Positions returns the arm positions in order.
func (ss SampleSet) Positions() []r3.Vector {
	return lo.Map(ss.samples, func(s Sample, _ int) r3.Vector { return s.Pose.Point() })
}

// Joints returns the joint vectors in order.
func (ss SampleSet) Joints() []kinematics.JointVector {
	return lo.Map(ss.samples, func(s Sample, _ int) kinematics.JointVector { return s.Joints })
}

// TrackerPoints returns the tracker points in order, or ErrSchemaMismatch for plane sets.
func (ss SampleSet) TrackerPoints() ([]r3.Vector, error) {
	if ss.schema != SchemaTracker {
		return nil, errors.Wrap(ErrSchemaMismatch, "plane samples have no tracker points")
	}
	return lo.Map(ss.samples, func(s Sample, _ int) r3.Vector { return *s.Tracker }), nil
}
