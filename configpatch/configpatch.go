// Package configpatch rewrites a single numeric attribute of an arm's XML
// configuration document, leaving every other byte of the file untouched.
package configpatch

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

var (
	// ErrMissingConfigFile is returned when the document does not exist.
	ErrMissingConfigFile = errors.New("config file does not exist")

	// ErrAmbiguousConfigTarget is returned when the target path matches zero or several elements.
	ErrAmbiguousConfigTarget = errors.New("config target must match exactly one element")

	// ErrMissingAttribute is returned when the matched element lacks the target attribute.
	ErrMissingAttribute = errors.New("config target attribute is missing")
)

// Target names the attribute to patch. Path is evaluated relative to the
// document's root element.
type Target struct {
	Path      string `json:"path"`
	Attribute string `json:"attribute"`
}

// ActuatorTarget returns the analog position offset of the given actuator.
func ActuatorTarget(actuatorID int) Target {
	return Target{
		Path:      fmt.Sprintf("./Robot/Actuator[@ActuatorID='%d']/AnalogIn/VoltsToPosSI", actuatorID),
		Attribute: "Offset",
	}
}

// DefaultTarget is the insertion actuator's offset.
func DefaultTarget() Target {
	return ActuatorTarget(2)
}

func (t Target) String() string {
	return fmt.Sprintf("%s@%s", t.Path, t.Attribute)
}

// Result reports a patch.
type Result struct {
	Old        float64
	Correction float64
	New        float64
}

func (r Result) String() string {
	return fmt.Sprintf("%s (current offset) + %s (correction) = %s (written offset)",
		formatValue(r.Old), formatValue(r.Correction), formatValue(r.New))
}

// Read returns the current value of target in the document at path.
func Read(path string, target Target) (float64, error) {
	data, err := readDocument(path)
	if err != nil {
		return 0, err
	}
	_, value, err := locate(data, target)
	return value, err
}

// Apply adds correction to the target value of the document at path and
// writes it back in place.
func Apply(path string, correction float64, target Target) (Result, error) {
	data, err := readDocument(path)
	if err != nil {
		return Result{}, err
	}
	ordinal, old, err := locate(data, target)
	if err != nil {
		return Result{}, err
	}
	res := Result{Old: old, Correction: correction, New: old + correction}

	patched, err := replaceAttribute(data, ordinal, target.Attribute, formatValue(res.New))
	if err != nil {
		return Result{}, errors.Wrapf(err, "patching %s in %q", target, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, err
	}
	if err := os.WriteFile(path, patched, info.Mode().Perm()); err != nil {
		return Result{}, errors.Wrapf(err, "cannot write config file %q", path)
	}
	return res, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func readDocument(path string) ([]byte, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrMissingConfigFile, "%q", path)
		}
		return nil, errors.Wrapf(err, "cannot read config file %q", path)
	}
	return data, nil
}

// locate finds the single element matching target and returns its position
// among all elements in document order along with its current value.
func locate(data []byte, target Target) (int, float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return 0, 0, errors.Wrap(err, "malformed config document")
	}
	root := doc.Root()
	if root == nil {
		return 0, 0, errors.Wrapf(ErrAmbiguousConfigTarget, "%s: document has no root element", target)
	}
	path, err := etree.CompilePath(target.Path)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "bad config target path %q", target.Path)
	}
	matches := root.FindElementsPath(path)
	if len(matches) != 1 {
		return 0, 0, errors.Wrapf(ErrAmbiguousConfigTarget, "%s matched %d elements", target, len(matches))
	}
	el := matches[0]
	attr := el.SelectAttr(target.Attribute)
	if attr == nil {
		return 0, 0, errors.Wrapf(ErrMissingAttribute, "%s", target)
	}
	value, err := strconv.ParseFloat(attr.Value, 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "%s is not a number", target)
	}

	ordinal, found := 0, false
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if found {
			return
		}
		if e == el {
			found = true
			return
		}
		ordinal++
		for _, child := range e.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	if !found {
		return 0, 0, errors.Errorf("%s matched an element outside the document", target)
	}
	return ordinal, value, nil
}

// replaceAttribute swaps the value of attr inside the start tag of the
// ordinal-th element.
func replaceAttribute(data []byte, ordinal int, attr, value string) ([]byte, error) {
	start, end, err := startTagSpan(data, ordinal)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`\s` + regexp.QuoteMeta(attr) + `\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	loc := re.FindSubmatchIndex(data[start:end])
	if loc == nil {
		return nil, errors.Wrapf(ErrMissingAttribute, "attribute %q not in start tag", attr)
	}
	valueStart, valueEnd := loc[2], loc[3]
	if valueStart < 0 {
		valueStart, valueEnd = loc[4], loc[5]
	}
	var out bytes.Buffer
	out.Grow(len(data) + len(value))
	out.Write(data[:start+valueStart])
	out.WriteString(value)
	out.Write(data[start+valueEnd:])
	return out.Bytes(), nil
}

// startTagSpan returns the byte range of the ordinal-th start tag.
// passThroughCharset accepts any declared encoding without converting, like
// etree does when reading. Offsets stay byte offsets into the original file.
func passThroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

func startTagSpan(data []byte, ordinal int) (int, int, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = passThroughCharset
	count := 0
	for {
		start := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			return 0, 0, errors.Errorf("element %d not found", ordinal)
		}
		if err != nil {
			return 0, 0, err
		}
		if _, ok := tok.(xml.StartElement); !ok {
			continue
		}
		if count == ordinal {
			return int(start), int(dec.InputOffset()), nil
		}
		count++
	}
}
