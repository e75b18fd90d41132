package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// Title shown in the header, usually the caption file name.
	Title string

	// WatchPath, when set, is a caption file to watch for rewrites;
	// changes are hot-swapped into the running session.
	WatchPath string

	// TickInterval is how often the simulated clock advances. Smaller
	// is smoother; dispatch precision is bounded by it.
	TickInterval time.Duration

	EnableMouse bool
}

// DefaultTickInterval is used when Config.TickInterval is zero.
const DefaultTickInterval = 200 * time.Millisecond
