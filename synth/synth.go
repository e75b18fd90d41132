// Package synth defines the speech synthesis sink the dubbing engine
// speaks through, plus a fallback chain over multiple sinks.
package synth

import (
	"context"
	"errors"
	"fmt"
)

// Request is one utterance to synthesize and speak.
type Request struct {
	Text   string  // Text to speak, never empty
	Voice  string  // Sink-specific voice identifier, empty for default
	Volume float64 // 0.0 to 1.0
	Rate   float64 // Speaking rate multiplier, > 0
	Pitch  float64 // Pitch multiplier, > 0
}

// Validate checks the request at the sink boundary.
func (r Request) Validate() error {
	if r.Text == "" {
		return errors.New("synth: empty text")
	}
	if r.Volume < 0 || r.Volume > 1 {
		return fmt.Errorf("synth: volume %.2f out of range [0,1]", r.Volume)
	}
	if r.Rate <= 0 {
		return fmt.Errorf("synth: rate %.2f must be positive", r.Rate)
	}
	if r.Pitch <= 0 {
		return fmt.Errorf("synth: pitch %.2f must be positive", r.Pitch)
	}
	return nil
}

// Voice describes one voice a sink offers.
type Voice struct {
	ID       string // Voice identifier to use in Request.Voice
	Name     string // Human-readable name
	Language string // BCP 47 tag, e.g. "en-US"
}

// Sink converts text into audible speech. Speak is fire-and-forget
// from the dispatcher's point of view: it may return before the audio
// has finished playing. The sink is a single shared resource; one
// engine session drives it at a time.
type Sink interface {
	// Speak synthesizes and plays the utterance. The context covers
	// synthesis; playback continues after return until done or
	// cancelled.
	Speak(ctx context.Context, req Request) error

	// CancelAll immediately stops any active or pending utterance.
	// Must be safe to call at any time, including when idle.
	CancelAll()

	// Voices lists the voices this sink offers.
	Voices() []Voice

	// Close releases sink resources.
	Close() error
}
