package samples

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/dvrk-tools/palpcal/logging"
)

// Recorder accumulates samples for one run. Appends never change a snapshot
// taken earlier.
type Recorder struct {
	schema   Schema
	metadata string
	logger   logging.Logger

	mu      sync.Mutex
	samples []Sample
	skipped int
}

// NewRecorder returns an empty recorder for schema.
func NewRecorder(schema Schema, metadata string, logger logging.Logger) *Recorder {
	return &Recorder{schema: schema, metadata: metadata, logger: logger}
}

// Append adds a sample. Samples of the wrong schema are rejected.
func (r *Recorder) Append(s Sample) error {
	if s.Schema() != r.schema {
		return errors.Wrapf(ErrSchemaMismatch, "cannot record %s sample in %s run", s.Schema(), r.schema)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	r.logger.Debugw("recorded sample", "index", len(r.samples)-1, "sample", s.String())
	return nil
}

// Skip counts a sample that was excluded, such as a bad tracker reading.
func (r *Recorder) Skip(reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
	r.logger.Warnw("skipping sample", "reason", reason, "skipped", r.skipped)
}

// Len returns the number of recorded samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Skipped returns the number of excluded samples.
func (r *Recorder) Skipped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skipped
}

// Snapshot returns the samples recorded so far as an immutable set.
func (r *Recorder) Snapshot() SampleSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return SampleSet{schema: r.schema, metadata: r.metadata, samples: append([]Sample(nil), r.samples...)}
}
