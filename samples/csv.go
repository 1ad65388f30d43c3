package samples

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/dvrk-tools/palpcal/kinematics"
	"github.com/dvrk-tools/palpcal/spatialmath"
)

const (
	headerMagic   = "# palpcal-samples"
	formatVersion = "v2"

	planeColumns   = 3 + kinematics.NumJoints
	trackerColumns = planeColumns + 3

	// untagged files store positions and the insertion joint in meters
	legacyMMPerUnit = 1000
)

var (
	positionColumns = []string{"arm_position_x", "arm_position_y", "arm_position_z"}
	trackerNames    = []string{"tracker_position_x", "tracker_position_y", "tracker_position_z"}
	legacyTracker   = []string{"polaris_position_x", "polaris_position_y", "polaris_position_z"}
)

func jointColumn(i int) string {
	return fmt.Sprintf("joint_%d_position", i)
}

// Columns returns the column names written for schema.
func Columns(schema Schema) []string {
	cols := append([]string(nil), positionColumns...)
	for i := 0; i < kinematics.NumJoints; i++ {
		cols = append(cols, jointColumn(i))
	}
	if schema == SchemaTracker {
		cols = append(cols, trackerNames...)
	}
	return cols
}

// WriteCSV writes the set as a header comment, a column row and one record per sample.
func WriteCSV(w io.Writer, ss SampleSet) error {
	metadata := strings.Join(strings.Fields(ss.metadata), " ")
	header := fmt.Sprintf("%s %s schema=%s", headerMagic, formatVersion, ss.schema)
	if metadata != "" {
		header += " " + metadata
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(ss.schema)); err != nil {
		return err
	}
	for _, s := range ss.samples {
		pt := s.Pose.Point()
		record := []string{formatFloat(pt.X), formatFloat(pt.Y), formatFloat(pt.Z)}
		for _, q := range s.Joints {
			record = append(record, formatFloat(q))
		}
		if s.Tracker != nil {
			record = append(record, formatFloat(s.Tracker.X), formatFloat(s.Tracker.Y), formatFloat(s.Tracker.Z))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the set to path, replacing any existing file.
func SaveCSV(path string, ss SampleSet) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create samples file %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WriteCSV(f, ss)
}

// LoadCSV reads a samples file written by SaveCSV or by the older tool.
func LoadCSV(path string) (SampleSet, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return SampleSet{}, errors.Wrapf(err, "cannot open samples file %q", path)
	}
	//nolint:errcheck
	defer f.Close()
	ss, err := ReadCSV(f)
	if err != nil {
		return SampleSet{}, errors.Wrapf(err, "reading %q", path)
	}
	return ss, nil
}

// ReadCSV parses samples. A tagged header fixes the schema. Untagged files
// are sniffed by record width: 9 columns are plane samples and 12 are
// tracker samples. Untagged files may or may not have a column row, and are
// converted from meters to mm on read.
func ReadCSV(r io.Reader) (SampleSet, error) {
	br := bufio.NewReader(r)
	var schema Schema
	var metadata string
	tagged := false

	first, err := br.Peek(len(headerMagic))
	if err == nil && string(first) == headerMagic {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return SampleSet{}, err
		}
		schema, metadata, err = parseHeader(strings.TrimSpace(line))
		if err != nil {
			return SampleSet{}, err
		}
		tagged = true
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return SampleSet{}, errors.Wrap(err, "malformed csv")
	}
	if len(records) == 0 {
		return SampleSet{schema: schema, metadata: metadata}, nil
	}

	index, body, err := columnIndex(records)
	if err != nil {
		return SampleSet{}, err
	}
	width := len(records[0])
	if !tagged {
		switch width {
		case planeColumns:
			schema = SchemaPlane
		case trackerColumns:
			schema = SchemaTracker
		default:
			return SampleSet{}, errors.Wrapf(ErrSchemaMismatch, "untagged file has %d columns, expected %d or %d",
				width, planeColumns, trackerColumns)
		}
	}
	want := planeColumns
	if schema == SchemaTracker {
		want = trackerColumns
	}
	if width != want {
		return SampleSet{}, errors.Wrapf(ErrSchemaMismatch, "%s file has %d columns, expected %d", schema, width, want)
	}

	out := make([]Sample, 0, len(body))
	for i, record := range body {
		s, err := parseRecord(record, index, schema)
		if err != nil {
			return SampleSet{}, errors.Wrapf(err, "record %d", i+1)
		}
		if !tagged {
			s = legacyToMM(s)
		}
		out = append(out, s)
	}
	return SampleSet{schema: schema, metadata: metadata, samples: out}, nil
}

func parseHeader(line string) (Schema, string, error) {
	fields := strings.Fields(strings.TrimPrefix(line, headerMagic))
	if len(fields) < 2 || fields[0] != formatVersion || !strings.HasPrefix(fields[1], "schema=") {
		return "", "", errors.Wrapf(ErrSchemaMismatch, "unsupported header %q", line)
	}
	schema, err := ParseSchema(strings.TrimPrefix(fields[1], "schema="))
	if err != nil {
		return "", "", err
	}
	return schema, strings.Join(fields[2:], " "), nil
}

// columnIndex maps each logical column to its position. When the first record
// is a column row it is consumed; otherwise columns are positional.
func columnIndex(records [][]string) ([]int, [][]string, error) {
	first := records[0]
	if _, err := strconv.ParseFloat(strings.TrimSpace(first[0]), 64); err == nil {
		index := make([]int, len(first))
		for i := range index {
			index[i] = i
		}
		return index, records, nil
	}

	byName := map[string]int{}
	for i, name := range first {
		byName[strings.TrimSpace(name)] = i
	}
	names := Columns(SchemaTracker)
	index := make([]int, 0, len(names))
	for i, name := range names {
		pos, ok := byName[name]
		if !ok && i >= planeColumns {
			pos, ok = byName[legacyTracker[i-planeColumns]]
		}
		if !ok {
			if i >= planeColumns {
				break
			}
			return nil, nil, errors.Errorf("missing column %q", name)
		}
		index = append(index, pos)
	}
	return index, records[1:], nil
}

func parseRecord(record []string, index []int, schema Schema) (Sample, error) {
	get := func(col int) (float64, error) {
		if col >= len(index) || index[col] >= len(record) {
			return 0, errors.Errorf("missing column %d", col)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[index[col]]), 64)
		return v, errors.Wrapf(err, "column %d", col)
	}
	vals := make([]float64, planeColumns)
	if schema == SchemaTracker {
		vals = make([]float64, trackerColumns)
	}
	for i := range vals {
		v, err := get(i)
		if err != nil {
			return Sample{}, err
		}
		vals[i] = v
	}
	pose := spatialmath.NewPoseFromPoint(r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]})
	joints, err := kinematics.JointVectorFromFloats(vals[3:planeColumns])
	if err != nil {
		return Sample{}, err
	}
	if schema == SchemaTracker {
		return NewTrackerSample(pose, joints, r3.Vector{X: vals[9], Y: vals[10], Z: vals[11]}), nil
	}
	return NewSample(pose, joints), nil
}

// legacyToMM scales an SI sample to palpcal units: positions and the prismatic
// insertion joint become mm, revolute joints stay in radians.
func legacyToMM(s Sample) Sample {
	s.Pose = spatialmath.NewPose(s.Pose.Point().Mul(legacyMMPerUnit), s.Pose.Orientation())
	s.Joints[kinematics.InsertionJoint] *= legacyMMPerUnit
	if s.Tracker != nil {
		tracker := s.Tracker.Mul(legacyMMPerUnit)
		s.Tracker = &tracker
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
