package kinematics

import "github.com/pkg/errors"

var (
	// ErrIncorrectDoF is returned when a joint count does not match the model.
	ErrIncorrectDoF = errors.New("incorrect number of joints")

	// ErrIKNotConverged is returned when inverse kinematics gives up before reaching the goal.
	ErrIKNotConverged = errors.New("inverse kinematics did not converge")

	// ErrNoModelInformation is used when there is no model information.
	ErrNoModelInformation = errors.New("no model information")
)

// NewIncorrectDoFError returns an error indicating that the number of joints given does not match
// the number expected.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Wrapf(ErrIncorrectDoF, "got %d, expected %d", actual, expected)
}
