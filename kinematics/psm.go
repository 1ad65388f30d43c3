package kinematics

import (
	// for embedding model file.
	_ "embed"
)

//go:embed psm_kinematics.json
var psmModelJSON []byte

// InsertionJoint is the index of the PSM's prismatic insertion joint, the
// joint whose offset is calibrated by default.
const InsertionJoint = 2

// MakePSMModel returns the built-in patient side manipulator model. The
// remote center of motion is the origin and the tool points down -z with all
// joints at zero.
func MakePSMModel() (*Model, error) {
	return UnmarshalModelJSON(psmModelJSON, "")
}
