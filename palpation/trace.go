package palpation

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat"

	"github.com/dvrk-tools/palpcal/spatialmath"
)

// ErrShortTrace is returned when a trace has too few in-contact readings to analyze.
var ErrShortTrace = errors.New("not enough contact readings in trace")

// Step is one descent step: where the arm was commanded and what it felt.
type Step struct {
	Phase Phase
	Pose  spatialmath.Pose
	Force float64
}

// Trace is the sequence of descent steps of one palpation.
type Trace []Step

// TraceColumns are the column names of a trace file.
var TraceColumns = []string{"x-position", "y-position", "z-position", "wrench"}

// WriteCSV writes the trace with one row per step.
func (tr Trace) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TraceColumns); err != nil {
		return err
	}
	for _, s := range tr {
		pt := s.Pose.Point()
		if err := cw.Write([]string{ff(pt.X), ff(pt.Y), ff(pt.Z), ff(s.Force)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the trace to path.
func (tr Trace) SaveCSV(path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create trace file %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return tr.WriteCSV(f)
}

// ReadTraceCSV reads a trace file. Phases are not stored, so every step is
// read back as FineDescend.
func ReadTraceCSV(r io.Reader) (Trace, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "malformed trace csv")
	}
	if len(records) == 0 {
		return nil, nil
	}
	cols := map[string]int{}
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}
	idx := make([]int, len(TraceColumns))
	for i, name := range TraceColumns {
		pos, ok := cols[name]
		if !ok {
			return nil, errors.Errorf("trace is missing column %q", name)
		}
		idx[i] = pos
	}

	tr := make(Trace, 0, len(records)-1)
	for n, record := range records[1:] {
		var vals [4]float64
		for i, pos := range idx {
			if pos >= len(record) {
				return nil, errors.Errorf("trace row %d is short", n+1)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[pos]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "trace row %d", n+1)
			}
			vals[i] = v
		}
		tr = append(tr, Step{
			Phase: FineDescend,
			Pose:  spatialmath.NewPoseFromPoint(r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}),
			Force: vals[3],
		})
	}
	return tr, nil
}

// LoadTraceCSV reads a trace file from path.
func LoadTraceCSV(path string) (Trace, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open trace file %q", path)
	}
	//nolint:errcheck
	defer f.Close()
	return ReadTraceCSV(f)
}

// SurfaceZ estimates the height where the force first rises above zero. It
// fits force against z over the fine steps in contact and returns the zero
// crossing of that line.
func (tr Trace) SurfaceZ() (float64, error) {
	var zs, forces []float64
	for _, s := range tr {
		if s.Phase == FineDescend && s.Force > 0 {
			zs = append(zs, s.Pose.Point().Z)
			forces = append(forces, s.Force)
		}
	}
	if len(zs) < 2 {
		return 0, errors.Wrapf(ErrShortTrace, "got %d", len(zs))
	}
	alpha, beta := stat.LinearRegression(zs, forces, nil, false)
	if beta == 0 {
		return 0, errors.Wrap(ErrShortTrace, "force does not change with depth")
	}
	return -alpha / beta, nil
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
