package dub

import (
	"fmt"
	"time"
)

// Config contains the engine tunables.
type Config struct {
	// DriftFactor scales the video playback rate while dubbing is
	// active, giving synthesis room to keep pace with the captions.
	// Coarse and global: the rate is reduced once on start and restored
	// exactly on stop, with no per-utterance adjustment.
	DriftFactor float64 `yaml:"drift_factor" env:"CAPVOX_DRIFT_FACTOR"`

	// SeekTolerance is how far a clock reading may deviate from the
	// expected monotonic progression before it counts as a seek. A
	// tuned heuristic, not a derived constant; test boundary behavior
	// when changing it.
	SeekTolerance time.Duration `yaml:"seek_tolerance" env:"CAPVOX_SEEK_TOLERANCE"`

	// Subtitles toggles the on-screen overlay independently of speech.
	Subtitles bool `yaml:"subtitles" env:"CAPVOX_SUBTITLES"`

	// OverlayWidth is the column budget for the subtitle overlay.
	OverlayWidth int `yaml:"overlay_width" env:"CAPVOX_OVERLAY_WIDTH"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DriftFactor:   0.8,
		SeekTolerance: 1500 * time.Millisecond,
		Subtitles:     true,
		OverlayWidth:  60,
	}
}

// Validate checks the tunables for sanity.
func (c Config) Validate() error {
	if c.DriftFactor <= 0 || c.DriftFactor > 1 {
		return fmt.Errorf("drift factor must be in (0,1], got %.2f", c.DriftFactor)
	}
	if c.SeekTolerance <= 0 {
		return fmt.Errorf("seek tolerance must be positive, got %v", c.SeekTolerance)
	}
	if c.OverlayWidth < 10 {
		return fmt.Errorf("overlay width must be at least 10, got %d", c.OverlayWidth)
	}
	return nil
}
