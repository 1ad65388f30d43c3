package palpation

import (
	"github.com/pkg/errors"
)

// Config holds the contact search parameters. Distances are mm and forces N.
type Config struct {
	ClearanceMM    float64 `json:"clearance_mm"`
	CoarseStepMM   float64 `json:"coarse_step_mm"`
	FineStepMM     float64 `json:"fine_step_mm"`
	MaxSteps       int     `json:"max_steps"`
	ForceThreshold float64 `json:"force_threshold"`
	// ForceAxis selects the wrench component compared with the threshold: 0 x, 1 y, 2 z.
	ForceAxis int `json:"force_axis"`
	// ForceSign orients the reading so that pushing into the surface is positive.
	ForceSign float64 `json:"force_sign"`
}

// DefaultConfig returns the parameters used for the PSM: 10 mm clearance, 1 mm
// coarse and 0.1 mm fine steps, 20 steps per phase.
func DefaultConfig() Config {
	return Config{
		ClearanceMM:    10,
		CoarseStepMM:   1,
		FineStepMM:     0.1,
		MaxSteps:       20,
		ForceThreshold: 0.5,
		ForceAxis:      2,
		ForceSign:      1,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	switch {
	case cfg.ClearanceMM <= 0:
		return errors.Errorf("%s.clearance_mm must be positive", path)
	case cfg.CoarseStepMM <= 0:
		return errors.Errorf("%s.coarse_step_mm must be positive", path)
	case cfg.FineStepMM <= 0:
		return errors.Errorf("%s.fine_step_mm must be positive", path)
	case cfg.FineStepMM > cfg.CoarseStepMM:
		return errors.Errorf("%s.fine_step_mm must not exceed coarse_step_mm", path)
	case cfg.MaxSteps < 1:
		return errors.Errorf("%s.max_steps must be at least 1", path)
	case float64(cfg.MaxSteps)*cfg.FineStepMM < cfg.CoarseStepMM:
		return errors.Errorf("%s: max_steps fine steps must cover one coarse step", path)
	case cfg.ForceThreshold <= 0:
		return errors.Errorf("%s.force_threshold must be positive", path)
	case cfg.ForceAxis < 0 || cfg.ForceAxis > 2:
		return errors.Errorf("%s.force_axis must be 0, 1 or 2", path)
	case cfg.ForceSign != 1 && cfg.ForceSign != -1:
		return errors.Errorf("%s.force_sign must be 1 or -1", path)
	}
	return nil
}
