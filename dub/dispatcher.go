package dub

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/capvox/capvox/caption"
	"github.com/capvox/capvox/synth"
)

// PendingUtterance is a queue entry: once the clock reaches
// ScheduledAtMS, the segment is spoken. Entries are created by the
// one-ahead lookahead and consumed at dispatch; a dispatched segment
// is never re-enqueued, which is what makes duplicate suppression
// structural rather than checked.
type PendingUtterance struct {
	Segment       caption.Segment
	ScheduledAtMS int64
}

// Dispatcher decides which caption to speak and when. It is reactive:
// scheduling is driven entirely by clock observations, never by wall
// timers, so it stays correct across rate changes and seeks. The
// controller serializes calls; the dispatcher itself holds no lock.
type Dispatcher struct {
	store    *caption.Store
	sink     synth.Sink
	renderer *Renderer

	queue  []PendingUtterance
	speech synth.Request // Template: voice/volume/rate/pitch, text filled per segment

	// primed flips on the first tick of a session. That tick refills
	// from one millisecond before the observed position, so a segment
	// starting exactly there is still picked up (FindNext is
	// strictly-greater); anything older stays unspoken.
	primed bool

	subtitles bool
}

// NewDispatcher creates a dispatcher over the given store and sink.
func NewDispatcher(store *caption.Store, sink synth.Sink, renderer *Renderer) *Dispatcher {
	return &Dispatcher{
		store:    store,
		sink:     sink,
		renderer: renderer,
		speech:   synth.Request{Volume: 1.0, Rate: 1.0, Pitch: 1.0},
	}
}

// SetSpeech updates the voice parameters attached to each speak
// command.
func (d *Dispatcher) SetSpeech(voice string, volume, rate, pitch float64) {
	d.speech.Voice = voice
	d.speech.Volume = volume
	d.speech.Rate = rate
	d.speech.Pitch = pitch
}

// SetSubtitles toggles overlay updates.
func (d *Dispatcher) SetSubtitles(enabled bool) {
	d.subtitles = enabled
	if !enabled && d.renderer != nil {
		d.renderer.Clear()
	}
}

// Tick processes one clock observation at position t (milliseconds).
//
// Order matters: the overlay reflects t before any speech decision,
// every due queue entry is dispatched (oldest first), and only then is
// the lookahead refilled, so a segment is requested the moment the
// clock reaches its start and never earlier.
func (d *Dispatcher) Tick(ctx context.Context, t int64) {
	if d.subtitles && d.renderer != nil {
		if seg, ok := d.store.FindActive(t); ok {
			d.renderer.Show(seg)
		} else {
			d.renderer.Clear()
		}
	}

	if !d.primed {
		d.refill(t - 1)
		d.primed = true
	}

	for len(d.queue) > 0 && d.queue[0].ScheduledAtMS <= t {
		pending := d.queue[0]
		d.queue = d.queue[1:]
		d.speak(ctx, pending.Segment)
	}

	if len(d.queue) == 0 {
		d.refill(t)
	}
}

// refill enqueues the first segment starting strictly after the given
// position, keeping at most one utterance pending.
func (d *Dispatcher) refill(after int64) {
	if seg, ok := d.store.FindNext(after); ok {
		d.queue = append(d.queue, PendingUtterance{
			Segment:       seg,
			ScheduledAtMS: seg.StartMS,
		})
	}
}

// speak issues the speak command. Fire-and-forget: completion is not
// awaited, and a failure is logged without stalling the pipeline.
func (d *Dispatcher) speak(ctx context.Context, seg caption.Segment) {
	req := d.speech
	req.Text = seg.Text

	go func() {
		if err := d.sink.Speak(ctx, req); err != nil && ctx.Err() == nil {
			log.Warn("speak command failed", "start_ms", seg.StartMS, "err", err)
		}
	}()
}

// Clear empties the pending queue. Called on stop and on discontinuity
// recovery; a jump invalidates any assumption about queue relevance.
func (d *Dispatcher) Clear() {
	d.queue = nil
	d.primed = false
}

// Pending returns a copy of the queue, for inspection.
func (d *Dispatcher) Pending() []PendingUtterance {
	out := make([]PendingUtterance, len(d.queue))
	copy(out, d.queue)
	return out
}
