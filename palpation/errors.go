package palpation

import (
	"fmt"
)

// ContactNotFoundError is returned when a descent phase runs out of steps
// without feeling the surface. It is fatal to a grid run.
type ContactNotFoundError struct {
	Row   int
	Col   int
	Phase Phase
	Steps int
}

// NewContactNotFoundError returns an error naming the grid cell and phase that failed.
func NewContactNotFoundError(row, col int, phase Phase, steps int) *ContactNotFoundError {
	return &ContactNotFoundError{Row: row, Col: col, Phase: phase, Steps: steps}
}

func (e *ContactNotFoundError) Error() string {
	if e.Row < 0 || e.Col < 0 {
		return fmt.Sprintf("contact not found during %s after %d steps", e.Phase, e.Steps)
	}
	return fmt.Sprintf("contact not found at grid cell (%d, %d) during %s after %d steps", e.Row, e.Col, e.Phase, e.Steps)
}
