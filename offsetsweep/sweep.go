// Package offsetsweep searches for the joint offset that makes recorded
// samples most consistent: flattest for plane runs, best registered for
// tracker runs.
package offsetsweep

import (
	"runtime"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/samples"
	"github.com/dvrk-tools/palpcal/utils"
)

// Phase names reported to Progress.
const (
	PhaseCoarse = "coarse"
	PhaseFine   = "fine"
)

// Range is a candidate range: Start, Start+Step, ... below Stop.
type Range struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
	Step  float64 `json:"step"`
}

// Candidates returns the offsets in the range.
func (r Range) Candidates() []float64 {
	return utils.Arange(r.Start, r.Stop, r.Step)
}

// Params configure a sweep. Offsets are in the unit of the value being
// calibrated; Scale converts them to joint units. Workers bounds how many
// candidates are scored at once, zero meaning one per CPU.
type Params struct {
	Joint         int     `json:"joint"`
	Scale         float64 `json:"scale"`
	Coarse        Range   `json:"coarse"`
	FineHalfWidth float64 `json:"fine_half_width"`
	FineStep      float64 `json:"fine_step"`
	Smooth        bool    `json:"smooth"`
	Degree        int     `json:"degree"`
	Workers       int     `json:"workers,omitempty"`
}

// DefaultParams searches the insertion joint from -0.9 to 0.09 in steps of
// 0.001, then ±0.02 around the best in steps of 0.0001. Offsets are meters and
// the joint is mm.
func DefaultParams() Params {
	return Params{
		Joint:         kinematics.InsertionJoint,
		Scale:         1000,
		Coarse:        Range{Start: -0.9, Stop: 0.09, Step: 0.001},
		FineHalfWidth: 0.02,
		FineStep:      0.0001,
		Degree:        2,
	}
}

// Validate ensures all parts of the params are valid.
func (p *Params) Validate(path string) error {
	switch {
	case p.Joint < 0 || p.Joint >= kinematics.NumJoints:
		return errors.Errorf("%s.joint must be in [0, %d)", path, kinematics.NumJoints)
	case p.Scale == 0:
		return errors.Errorf("%s.scale must not be zero", path)
	case p.Coarse.Step <= 0:
		return errors.Errorf("%s.coarse.step must be positive", path)
	case p.Coarse.Stop <= p.Coarse.Start:
		return errors.Errorf("%s.coarse.stop must be above start", path)
	case p.FineHalfWidth < 0:
		return errors.Errorf("%s.fine_half_width must not be negative", path)
	case p.FineHalfWidth > 0 && p.FineStep <= 0:
		return errors.Errorf("%s.fine_step must be positive", path)
	case p.Smooth && p.Degree < 2:
		return errors.Errorf("%s.degree must be at least 2 to smooth", path)
	case p.Workers < 0:
		return errors.Errorf("%s.workers must not be negative", path)
	}
	return nil
}

// Progress is called after each candidate with the phase, candidates done and total.
type Progress func(phase string, done, total int)

// Report is the outcome of a sweep.
type Report struct {
	Coarse Curve
	Fine   Curve
	Result OffsetResult
}

// Optimizer runs offset sweeps over sample sets.
type Optimizer struct {
	fk        Forward
	objective Objective
	params    Params
	logger    logging.Logger
	progress  Progress
}

// NewOptimizer returns an optimizer projecting joints through fk and scoring them with objective.
func NewOptimizer(fk Forward, objective Objective, params Params, logger logging.Logger) (*Optimizer, error) {
	if err := params.Validate("sweep"); err != nil {
		return nil, err
	}
	return &Optimizer{fk: fk, objective: objective, params: params, logger: logger}, nil
}

// SetProgress registers fn to be called as candidates are evaluated.
func (o *Optimizer) SetProgress(fn Progress) {
	o.progress = fn
}

// Sweep evaluates the coarse range, then the fine window around the coarse
// minimum, and picks the offset from the fine curve. Any objective error
// aborts the sweep.
func (o *Optimizer) Sweep(ss samples.SampleSet) (*Report, error) {
	if err := ss.NonEmpty(); err != nil {
		return nil, err
	}
	joints := ss.Joints()

	coarse, err := o.Evaluate(PhaseCoarse, joints, o.params.Coarse.Candidates())
	if err != nil {
		return nil, err
	}
	coarseMin, err := Minimize(coarse)
	if err != nil {
		return nil, errors.Wrap(err, "coarse sweep")
	}
	o.logger.Infow("coarse sweep done", "candidates", len(coarse), "offset", coarseMin.Value, "error", coarseMin.MinimumError)

	report := &Report{Coarse: coarse, Result: coarseMin}
	if o.params.FineHalfWidth == 0 {
		return report, nil
	}

	fineRange := Range{
		Start: coarseMin.Value - o.params.FineHalfWidth,
		Stop:  coarseMin.Value + o.params.FineHalfWidth,
		Step:  o.params.FineStep,
	}
	fine, err := o.Evaluate(PhaseFine, joints, fineRange.Candidates())
	if err != nil {
		return nil, err
	}
	report.Fine = fine

	if o.params.Smooth {
		report.Result, err = Smooth(fine, o.params.Degree)
	} else {
		report.Result, err = Minimize(fine)
	}
	if err != nil {
		return nil, errors.Wrap(err, "fine sweep")
	}
	o.logger.Infow("fine sweep done", "candidates", len(fine), "offset", report.Result.Value,
		"error", report.Result.MinimumError, "smoothed", report.Result.Smoothed)
	return report, nil
}

// Evaluate scores each candidate: the candidate times Scale is added to the
// calibrated joint of every joint vector before projecting through fk.
// Candidates are scored concurrently; on failure the error of the lowest
// failing candidate is returned.
func (o *Optimizer) Evaluate(phase string, joints []kinematics.JointVector, candidates []float64) (Curve, error) {
	if len(candidates) == 0 {
		return nil, errors.Wrapf(ErrEmptyCurve, "%s sweep has no candidates", phase)
	}
	curve := make(Curve, len(candidates))
	errs := make([]error, len(candidates))

	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(o.workers())
	for k, candidate := range candidates {
		g.Go(func() error {
			curve[k], errs[k] = o.score(joints, candidate)
			mu.Lock()
			defer mu.Unlock()
			done++
			if o.progress != nil {
				o.progress(phase, done, len(candidates))
			}
			return errs[k]
		})
	}
	if g.Wait() != nil {
		for k, err := range errs {
			if err != nil {
				return nil, errors.Wrapf(err, "%s sweep at offset %g", phase, candidates[k])
			}
		}
	}
	return curve, nil
}

func (o *Optimizer) score(joints []kinematics.JointVector, candidate float64) (Point, error) {
	delta := candidate * o.params.Scale
	points := make([]r3.Vector, len(joints))
	for i, q := range joints {
		points[i] = o.fk.Transform(q.WithOffset(o.params.Joint, delta)).Point()
	}
	fitErr, err := o.objective(points)
	if err != nil {
		return Point{}, err
	}
	return Point{Offset: candidate, Error: fitErr}, nil
}

func (o *Optimizer) workers() int {
	if o.params.Workers > 0 {
		return o.params.Workers
	}
	return runtime.GOMAXPROCS(0)
}
