// Package mock provides an in-memory synthesis sink for tests and for
// running the engine without an audio device.
package mock

import (
	"context"
	"sync"

	"github.com/capvox/capvox/synth"
)

// Sink records every speak request it receives. Failure behavior is
// controllable so dispatcher error paths can be exercised.
type Sink struct {
	mu       sync.Mutex
	requests []synth.Request
	cancels  int
	failWith error
	voices   []synth.Voice
}

// New creates a mock sink.
func New() *Sink {
	return &Sink{
		voices: []synth.Voice{
			{ID: "mock-en", Name: "Mock English", Language: "en-US"},
			{ID: "mock-pt", Name: "Mock Portuguese", Language: "pt-PT"},
		},
	}
}

// Speak records the request, or returns the configured failure.
func (s *Sink) Speak(_ context.Context, req synth.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.requests = append(s.requests, req)
	return nil
}

// CancelAll counts cancellations.
func (s *Sink) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

// Voices returns the fixed mock voice list.
func (s *Sink) Voices() []synth.Voice {
	return s.voices
}

// Close is a no-op.
func (s *Sink) Close() error { return nil }

// FailWith makes subsequent Speak calls return err; nil restores
// normal behavior.
func (s *Sink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Requests returns a copy of the recorded speak requests.
func (s *Sink) Requests() []synth.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]synth.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Cancellations returns how many times CancelAll was called.
func (s *Sink) Cancellations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}
