// Package palpation finds the surface under a target by descending until the
// arm feels a contact force.
//
// Each palpation runs a small state machine:
//
//	Approach -> CoarseDescend -> FineDescend -> ContactFound
//	                 |                |
//	                 +----------------+-> ContactFailed
//
// Approach moves above the target by the clearance. CoarseDescend steps down
// until the force crosses the threshold and keeps the last pose out of contact
// as the baseline. FineDescend goes back to the baseline and steps down with
// the fine step. Each descent is bounded by MaxSteps.
package palpation

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/dvrk-tools/palpcal/components/arm"
	"github.com/dvrk-tools/palpcal/grid"
	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/samples"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

// Phase is a state of the contact search.
type Phase int

const (
	// Approach moves above the target.
	Approach Phase = iota
	// CoarseDescend looks for the surface with large steps.
	CoarseDescend
	// FineDescend refines the contact depth from the baseline.
	FineDescend
	// ContactFound is terminal: the surface was felt.
	ContactFound
	// ContactFailed is terminal: a descent ran out of steps.
	ContactFailed
)

func (p Phase) String() string {
	switch p {
	case Approach:
		return "approach"
	case CoarseDescend:
		return "coarse descend"
	case FineDescend:
		return "fine descend"
	case ContactFound:
		return "contact found"
	case ContactFailed:
		return "contact failed"
	}
	return "unknown"
}

// Transition is reported to an observer on every phase change.
type Transition struct {
	Row, Col int
	From, To Phase
}

// Result is a successful palpation.
type Result struct {
	Row, Col int
	// Sample holds the pose and joints reported by the arm at contact.
	Sample samples.Sample
	// Baseline is the last commanded pose known to be out of contact.
	Baseline spatialmath.Pose
	// Depth is how far below the baseline contact was felt, mm.
	Depth float64
	Trace Trace
}

// Detector runs palpations with one configuration.
type Detector struct {
	cfg      Config
	logger   logging.Logger
	observer func(Transition)
}

// NewDetector returns a detector for cfg.
func NewDetector(cfg Config, logger logging.Logger) (*Detector, error) {
	if err := cfg.Validate("palpation"); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, logger: logger}, nil
}

// SetObserver registers fn to receive every phase transition.
func (d *Detector) SetObserver(fn func(Transition)) {
	d.observer = fn
}

// PalpateTarget searches for the surface under a grid target.
func (d *Detector) PalpateTarget(ctx context.Context, a arm.Arm, target grid.Target) (*Result, error) {
	return d.run(ctx, a, target.Row, target.Col, target.Pose)
}

// Palpate searches for the surface under pose. Errors report no grid cell.
func (d *Detector) Palpate(ctx context.Context, a arm.Arm, pose spatialmath.Pose) (*Result, error) {
	return d.run(ctx, a, -1, -1, pose)
}

type machine struct {
	*Detector
	arm      arm.Arm
	row, col int
	phase    Phase
	above    spatialmath.Pose
	current  spatialmath.Pose
	baseline spatialmath.Pose
	trace    Trace
}

func (d *Detector) run(ctx context.Context, a arm.Arm, row, col int, target spatialmath.Pose) (*Result, error) {
	m := &machine{
		Detector: d,
		arm:      a,
		row:      row,
		col:      col,
		phase:    Approach,
		above:    offsetZ(target, d.cfg.ClearanceMM),
	}

	for {
		switch m.phase {
		case Approach:
			if err := m.move(ctx, m.above); err != nil {
				return nil, err
			}
			m.transition(CoarseDescend)

		case CoarseDescend:
			found, err := m.descend(ctx, d.cfg.CoarseStepMM)
			if err != nil {
				return nil, err
			}
			if !found {
				m.transition(ContactFailed)
				return nil, NewContactNotFoundError(row, col, CoarseDescend, d.cfg.MaxSteps)
			}
			m.transition(FineDescend)

		case FineDescend:
			if err := m.move(ctx, m.baseline); err != nil {
				return nil, err
			}
			found, err := m.descend(ctx, d.cfg.FineStepMM)
			if err != nil {
				return nil, err
			}
			if !found {
				m.transition(ContactFailed)
				return nil, NewContactNotFoundError(row, col, FineDescend, d.cfg.MaxSteps)
			}
			m.transition(ContactFound)

		case ContactFound:
			return m.finish(ctx)

		default:
			return nil, errors.Errorf("palpation in unexpected phase %s", m.phase)
		}
	}
}

// descend steps down until the force crosses the threshold, keeping the pose
// before the contact step as the baseline. Step k is placed at start - k*step.
func (m *machine) descend(ctx context.Context, step float64) (bool, error) {
	start := m.current
	for k := 0; k < m.cfg.MaxSteps; k++ {
		prev := m.current
		if err := m.move(ctx, offsetZ(start, -float64(k+1)*step)); err != nil {
			return false, err
		}
		force, err := m.force(ctx)
		if err != nil {
			return false, err
		}
		m.trace = append(m.trace, Step{Phase: m.phase, Pose: m.current, Force: force})
		if math.Abs(force) >= m.cfg.ForceThreshold {
			if m.phase == CoarseDescend {
				m.baseline = prev
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *machine) finish(ctx context.Context) (*Result, error) {
	pose, err := m.arm.EndPosition(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading contact position")
	}
	joints, err := m.arm.JointPositions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading contact joints")
	}
	res := &Result{
		Row:      m.row,
		Col:      m.col,
		Sample:   samples.NewSample(pose, joints),
		Baseline: m.baseline,
		Depth:    m.baseline.Point().Z - pose.Point().Z,
		Trace:    m.trace,
	}
	if err := m.move(ctx, m.above); err != nil {
		return nil, errors.Wrap(err, "retracting")
	}
	m.logger.Debugw("contact found", "row", m.row, "col", m.col, "depth", res.Depth, "steps", len(m.trace))
	return res, nil
}

func (m *machine) move(ctx context.Context, pose spatialmath.Pose) error {
	if err := m.arm.MoveToPosition(ctx, pose); err != nil {
		return errors.Wrapf(err, "palpating (%d, %d) during %s", m.row, m.col, m.phase)
	}
	m.current = pose
	return nil
}

func (m *machine) force(ctx context.Context) (float64, error) {
	w, err := m.arm.Wrench(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "reading wrench at (%d, %d)", m.row, m.col)
	}
	return m.cfg.ForceSign * w.ForceAlong(m.cfg.ForceAxis), nil
}

func (m *machine) transition(to Phase) {
	t := Transition{Row: m.row, Col: m.col, From: m.phase, To: to}
	m.logger.Debugw("palpation transition", "row", m.row, "col", m.col, "from", t.From.String(), "to", t.To.String())
	if m.observer != nil {
		m.observer(t)
	}
	m.phase = to
}

func offsetZ(pose spatialmath.Pose, dz float64) spatialmath.Pose {
	return spatialmath.PoseWithPoint(pose, pose.Point().Add(r3.Vector{Z: dz}))
}
