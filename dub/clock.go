package dub

import (
	"sync"
	"time"
)

// Clock is the engine's view of the media playback clock: a position
// that normally advances monotonically at the current rate, but can be
// reset or jumped by the user at any time.
type Clock interface {
	// PositionMS returns the current playback position in milliseconds.
	PositionMS() int64

	// Rate returns the current playback rate (1.0 is natural speed).
	Rate() float64

	// SetRate changes the playback rate on the underlying player.
	SetRate(rate float64) error
}

// Monitor detects discontinuities in a stream of clock observations.
// Each reading is compared against the last reading plus wall-clock
// elapsed time scaled by the playback rate; a deviation beyond the
// tolerance means the clock jumped (seek, scrub, or source swap)
// rather than drifted. The tolerance is a heuristic threshold, not an
// exact classifier.
type Monitor struct {
	tolerance time.Duration

	primed  bool
	lastPos int64
	lastAt  time.Time
}

// NewMonitor creates a monitor with the given tolerance.
func NewMonitor(tolerance time.Duration) *Monitor {
	return &Monitor{tolerance: tolerance}
}

// Observe feeds one clock reading taken at wall time now, with the
// rate in effect since the previous reading. It reports whether the
// reading constitutes a discontinuity. The first reading after a
// Reset only primes the monitor.
func (m *Monitor) Observe(positionMS int64, now time.Time, rate float64) bool {
	if !m.primed {
		m.primed = true
		m.lastPos = positionMS
		m.lastAt = now
		return false
	}

	elapsed := now.Sub(m.lastAt)
	expected := m.lastPos + int64(float64(elapsed.Milliseconds())*rate)

	deviation := positionMS - expected
	if deviation < 0 {
		deviation = -deviation
	}

	m.lastPos = positionMS
	m.lastAt = now

	return time.Duration(deviation)*time.Millisecond > m.tolerance
}

// Reset forgets the observation history, so the next reading primes
// rather than triggers. Call it when the source is swapped.
func (m *Monitor) Reset() {
	m.primed = false
}

// ManualClock is a Clock driven by its owner: the TUI advances it on
// ticks, tests position it directly. Seeking and rate changes behave
// like a real player's.
type ManualClock struct {
	mu       sync.Mutex
	position int64
	rate     float64
}

// NewManualClock creates a clock at position zero and natural rate.
func NewManualClock() *ManualClock {
	return &ManualClock{rate: 1.0}
}

// PositionMS returns the current position.
func (c *ManualClock) PositionMS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Rate returns the current playback rate.
func (c *ManualClock) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// SetRate changes the playback rate.
func (c *ManualClock) SetRate(rate float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
	return nil
}

// Advance moves the clock forward by wall duration d, scaled by the
// current rate.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position += int64(float64(d.Milliseconds()) * c.rate)
}

// Seek jumps to an absolute position.
func (c *ManualClock) Seek(positionMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if positionMS < 0 {
		positionMS = 0
	}
	c.position = positionMS
}
