package offsetsweep

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrEmptyCurve is returned when no candidate offsets were evaluated.
var ErrEmptyCurve = errors.New("offset curve is empty")

// Point is one evaluated candidate.
type Point struct {
	Offset float64
	Error  float64
}

// Curve holds evaluated candidates in strictly increasing offset order.
type Curve []Point

// Offsets returns the candidate offsets.
func (c Curve) Offsets() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Offset
	}
	return out
}

// Errors returns the fit errors.
func (c Curve) Errors() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Error
	}
	return out
}

// Validate checks the curve is non-empty and strictly increasing.
func (c Curve) Validate() error {
	if len(c) == 0 {
		return ErrEmptyCurve
	}
	for i := 1; i < len(c); i++ {
		if !(c[i].Offset > c[i-1].Offset) {
			return errors.Errorf("offsets not increasing at index %d: %v after %v", i, c[i].Offset, c[i-1].Offset)
		}
	}
	return nil
}

// CurveColumns are the column names of a curve file.
var CurveColumns = []string{"offset", "error"}

// WriteCSV writes the curve with an offset,error column row.
func (c Curve) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CurveColumns); err != nil {
		return err
	}
	for _, p := range c {
		if err := cw.Write([]string{
			strconv.FormatFloat(p.Offset, 'g', -1, 64),
			strconv.FormatFloat(p.Error, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the curve to path.
func (c Curve) SaveCSV(path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create curve file %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return c.WriteCSV(f)
}

// ReadCurveCSV reads a curve written by WriteCSV.
func ReadCurveCSV(r io.Reader) (Curve, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "malformed curve csv")
	}
	if len(records) == 0 {
		return nil, ErrEmptyCurve
	}
	offsetCol, errorCol := -1, -1
	for i, name := range records[0] {
		switch strings.TrimSpace(name) {
		case "offset":
			offsetCol = i
		case "error":
			errorCol = i
		}
	}
	if offsetCol < 0 || errorCol < 0 {
		return nil, errors.New("curve file needs offset and error columns")
	}
	curve := make(Curve, 0, len(records)-1)
	for n, record := range records[1:] {
		offset, err := strconv.ParseFloat(strings.TrimSpace(record[offsetCol]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "curve row %d", n+1)
		}
		fitErr, err := strconv.ParseFloat(strings.TrimSpace(record[errorCol]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "curve row %d", n+1)
		}
		curve = append(curve, Point{Offset: offset, Error: fitErr})
	}
	return curve, nil
}

// LoadCurveCSV reads a curve file from path.
func LoadCurveCSV(path string) (Curve, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open curve file %q", path)
	}
	//nolint:errcheck
	defer f.Close()
	return ReadCurveCSV(f)
}
