package synth

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// Chain tries each sink in order until one accepts the utterance. A
// sink failure is logged and the next sink gets the request; only when
// every sink fails does Speak return an error.
type Chain struct {
	sinks []Sink
}

// NewChain builds a fallback chain. The first sink is the preferred one.
func NewChain(sinks ...Sink) (*Chain, error) {
	if len(sinks) == 0 {
		return nil, errors.New("synth: chain needs at least one sink")
	}
	return &Chain{sinks: sinks}, nil
}

// Speak tries the sinks in order.
func (c *Chain) Speak(ctx context.Context, req Request) error {
	var errs []error
	for i, sink := range c.sinks {
		err := sink.Speak(ctx, req)
		if err == nil {
			return nil
		}
		log.Warn("synthesis sink failed, falling back", "sink", i, "err", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("all synthesis sinks failed: %w", errors.Join(errs...))
}

// CancelAll cancels on every sink; an utterance may be in flight on
// any of them.
func (c *Chain) CancelAll() {
	for _, sink := range c.sinks {
		sink.CancelAll()
	}
}

// Voices returns the preferred sink's voices.
func (c *Chain) Voices() []Voice {
	return c.sinks[0].Voices()
}

// Close closes every sink, returning the first error.
func (c *Chain) Close() error {
	var first error
	for _, sink := range c.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
