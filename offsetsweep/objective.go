package offsetsweep

import (
	"github.com/golang/geo/r3"

	"github.com/dvrk-tools/palpcal/fit"
	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/samples"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

// Forward maps joints to the tip pose.
type Forward interface {
	Transform(q kinematics.JointVector) spatialmath.Pose
}

// ForwardFunc adapts a function to Forward.
type ForwardFunc func(q kinematics.JointVector) spatialmath.Pose

// Transform calls f.
func (f ForwardFunc) Transform(q kinematics.JointVector) spatialmath.Pose {
	return f(q)
}

// Objective scores the tip positions produced by one candidate offset. Lower is better.
type Objective func(points []r3.Vector) (float64, error)

// PlaneResidual scores points by the RMS error of their best fit plane.
func PlaneResidual(conv fit.ErrorConvention) Objective {
	return func(points []r3.Vector) (float64, error) {
		model, err := fit.FitPlane(points, conv)
		if err != nil {
			return 0, err
		}
		return model.RMSError, nil
	}
}

// RegistrationResidual scores points by how well they register rigidly onto targets.
func RegistrationResidual(targets []r3.Vector) Objective {
	return func(points []r3.Vector) (float64, error) {
		rt, err := fit.RegisterRigid(points, targets)
		if err != nil {
			return 0, err
		}
		return rt.Residual, nil
	}
}

// ObjectiveFor returns the objective matching the sample set's schema.
func ObjectiveFor(ss samples.SampleSet, conv fit.ErrorConvention) (Objective, error) {
	if ss.Schema() == samples.SchemaTracker {
		targets, err := ss.TrackerPoints()
		if err != nil {
			return nil, err
		}
		return RegistrationResidual(targets), nil
	}
	return PlaneResidual(conv), nil
}
