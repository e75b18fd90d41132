package dub

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Compensator applies the coarse drift compensation: while dubbing is
// active the video runs at a fixed fraction of its natural rate, so
// synthesis (whose duration is unknown until it finishes) gets a
// buffer to keep pace with the captions. The original rate is recorded
// on apply and restored exactly on restore. Adaptive rate matching is
// deliberately out of scope.
type Compensator struct {
	factor       float64
	originalRate float64
	applied      bool
}

// NewCompensator creates a compensator with the given slow-down factor.
func NewCompensator(factor float64) *Compensator {
	return &Compensator{factor: factor}
}

// Apply records the clock's current rate and slows it by the factor.
// Applying twice without a restore is a no-op, so a restart cannot
// compound the slow-down.
func (c *Compensator) Apply(clock Clock) error {
	if c.applied {
		return nil
	}
	c.originalRate = clock.Rate()
	compensated := c.originalRate * c.factor
	if err := clock.SetRate(compensated); err != nil {
		return fmt.Errorf("apply rate compensation: %w", err)
	}
	c.applied = true
	log.Debug("rate compensation applied", "original", c.originalRate, "compensated", compensated)
	return nil
}

// Restore puts the recorded rate back. Safe to call when nothing was
// applied.
func (c *Compensator) Restore(clock Clock) error {
	if !c.applied {
		return nil
	}
	if err := clock.SetRate(c.originalRate); err != nil {
		return fmt.Errorf("restore playback rate: %w", err)
	}
	c.applied = false
	log.Debug("playback rate restored", "rate", c.originalRate)
	return nil
}

// OriginalRate returns the rate recorded by Apply, valid while applied.
func (c *Compensator) OriginalRate() float64 {
	return c.originalRate
}

// Applied reports whether compensation is currently in effect.
func (c *Compensator) Applied() bool {
	return c.applied
}
