// Package calibration runs the recording and analysis workflows: it drives
// the arm through palpations or a tracker scan, stores the samples in a run
// folder and turns them into a joint offset correction.
package calibration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dvrk-tools/palpcal/logging"
	"github.com/dvrk-tools/palpcal/utils"
)

// RunDirTimeFormat is the timestamp layout of run folder names.
const RunDirTimeFormat = "2006-01-02_15-04-05"

// InfoFile is the run metadata file inside a run folder.
const InfoFile = "info.txt"

// RunDirName returns the folder name of a run of arm started at t.
func RunDirName(arm string, t time.Time) string {
	return fmt.Sprintf("%s_%s", arm, t.Format(RunDirTimeFormat))
}

type infoEntry struct {
	key   string
	value string
}

// Run is one recording session and the folder its files go to.
type Run struct {
	ID      uuid.UUID
	Dir     string
	Arm     string
	Started time.Time

	logger logging.Logger
	info   []infoEntry
}

// NewRun creates the folder of a new run under dataDir.
func NewRun(dataDir, arm string, started time.Time, logger logging.Logger) (*Run, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create data dir %q", dataDir)
	}
	dir, err := utils.SafeJoinDir(dataDir, RunDirName(arm, started))
	if err != nil {
		return nil, err
	}
	if err := os.Mkdir(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "cannot create run folder")
	}
	r := &Run{
		ID:      uuid.New(),
		Dir:     dir,
		Arm:     arm,
		Started: started,
		logger:  logger,
	}
	r.Set("arm", arm)
	r.Set("run_id", r.ID)
	r.Set("started", started.Format(time.RFC3339))
	logger.Infow("created run folder", "dir", dir, "run_id", r.ID.String())
	return r, nil
}

// Set records a metadata value, replacing an earlier value for key.
func (r *Run) Set(key string, value interface{}) {
	v := strings.Join(strings.Fields(fmt.Sprint(value)), " ")
	for i := range r.info {
		if r.info[i].key == key {
			r.info[i].value = v
			return
		}
	}
	r.info = append(r.info, infoEntry{key: key, value: v})
}

// Get returns a metadata value.
func (r *Run) Get(key string) (string, bool) {
	for _, e := range r.info {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Metadata returns the metadata as one line of key=value pairs.
func (r *Run) Metadata() string {
	parts := make([]string, 0, len(r.info))
	for _, e := range r.info {
		parts = append(parts, e.key+"="+strings.ReplaceAll(e.value, " ", "_"))
	}
	return strings.Join(parts, " ")
}

// WriteInfo writes the metadata as "key: value" lines.
func (r *Run) WriteInfo() error {
	var sb strings.Builder
	for _, e := range r.info {
		fmt.Fprintf(&sb, "%s: %s\n", e.key, e.value)
	}
	path := filepath.Join(r.Dir, InfoFile)
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return errors.Wrapf(err, "cannot write %q", path)
	}
	return nil
}

// Path returns a free path for name inside the run folder.
func (r *Run) Path(name string) (string, error) {
	return utils.ChooseFilename(r.Dir, name)
}
