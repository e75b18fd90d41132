package dub

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/capvox/capvox/caption"
	"github.com/capvox/capvox/synth"
)

// Session is the per-session synchronization state. It exists only
// while the engine is active; stop destroys it.
type Session struct {
	ID                  string
	StartedAt           time.Time
	CurrentClockMS      int64
	LastDiscontinuityMS int64
}

// Controller owns the engine lifecycle: it supervises start and stop,
// reacts to discontinuities, and is the single owner of the session
// state and the synthesis sink. All mutation happens under one lock,
// inside a tick handler or an explicit user action.
type Controller struct {
	mu sync.Mutex

	config   Config
	store    *caption.Store
	sink     synth.Sink
	renderer *Renderer

	clock       Clock
	monitor     *Monitor
	dispatcher  *Dispatcher
	compensator *Compensator
	machine     *StateMachine

	session Session
	intent  bool // The user wants dubbing on, surviving stop/start recovery

	// speechCtx covers all in-flight speak commands for the current
	// session; cancelled on stop so no utterance outlives its session.
	speechCtx    context.Context
	cancelSpeech context.CancelFunc
}

// NewController wires up an engine over a caption store and synthesis
// sink.
func NewController(config Config, store *caption.Store, sink synth.Sink) *Controller {
	renderer := NewRenderer(config.OverlayWidth)
	dispatcher := NewDispatcher(store, sink, renderer)
	dispatcher.SetSubtitles(config.Subtitles)

	return &Controller{
		config:      config,
		store:       store,
		sink:        sink,
		renderer:    renderer,
		monitor:     NewMonitor(config.SeekTolerance),
		dispatcher:  dispatcher,
		compensator: NewCompensator(config.DriftFactor),
		machine:     NewStateMachine(),
	}
}

// SetClock attaches the playback clock. Dubbing cannot start without
// one.
func (c *Controller) SetClock(clock Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
	c.monitor.Reset()
}

// SetSpeech updates the voice parameters used for subsequent speak
// commands.
func (c *Controller) SetSpeech(voice string, volume, rate, pitch float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatcher.SetSpeech(voice, volume, rate, pitch)
}

// SetSubtitles toggles the overlay independently of speech.
func (c *Controller) SetSubtitles(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatcher.SetSubtitles(enabled)
}

// Start begins a dubbing session: records the original playback rate,
// applies drift compensation, and marks the user intent as on. It
// fails with ErrNoMediaSource when no clock is attached and with
// ErrNoCaptions when the store is empty.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.Current() == StateActive {
		return ErrAlreadyActive
	}
	c.intent = true
	return c.startLocked()
}

// Stop ends the session and marks the user intent as off. Idempotent:
// stopping an idle engine changes nothing and issues no cancellation.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.intent = false
	c.stopLocked()
}

// Tick feeds one clock observation into the engine. The clock driver
// (TUI ticker, remote bridge) calls this on every position update.
// While idle, ticks are ignored.
func (c *Controller) Tick(positionMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.Current() != StateActive {
		return
	}

	c.session.CurrentClockMS = positionMS

	rate := 1.0
	if c.clock != nil {
		rate = c.clock.Rate()
	}
	if c.monitor.Observe(positionMS, time.Now(), rate) {
		c.recoverLocked(positionMS)
		return
	}

	c.dispatcher.Tick(c.speechCtx, positionMS)
}

// SwapSource replaces the caption track, e.g. when the user navigates
// to a different video while dubbing is on. The session is rebuilt
// from scratch: patching queue state across a source change is never
// worth the stale-utterance bugs.
func (c *Controller) SwapSource(segments []caption.Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasActive := c.machine.Current() == StateActive
	if wasActive {
		c.stopLocked()
	}

	c.store.Load(segments)
	c.monitor.Reset()

	if wasActive && c.intent {
		if err := c.startLocked(); err != nil {
			log.Warn("unable to restart dubbing after source change", "err", err)
		}
	}
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current() == StateActive
}

// CurrentSession returns a copy of the session state.
func (c *Controller) CurrentSession() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Pending returns the dispatcher's queue, for inspection.
func (c *Controller) Pending() []PendingUtterance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatcher.Pending()
}

// Overlay renders the subtitle overlay for the current position.
func (c *Controller) Overlay() string {
	return c.renderer.View()
}

// Renderer exposes the subtitle renderer, which is safe to read
// without going through the controller.
func (c *Controller) Renderer() *Renderer {
	return c.renderer
}

// startLocked transitions IDLE to ACTIVE. Caller holds the lock and
// has set intent.
func (c *Controller) startLocked() error {
	if c.clock == nil {
		return ErrNoMediaSource
	}
	if c.store.Len() == 0 {
		return ErrNoCaptions
	}

	if err := c.compensator.Apply(c.clock); err != nil {
		return err
	}

	c.machine.Transition(StateActive)
	c.session = Session{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
	c.speechCtx, c.cancelSpeech = context.WithCancel(context.Background())
	c.monitor.Reset()

	log.Info("dubbing started",
		"session", c.session.ID,
		"segments", c.store.Len(),
		"original_rate", c.compensator.OriginalRate())
	return nil
}

// stopLocked transitions ACTIVE to IDLE unconditionally: restores the
// original rate, cancels in-flight speech, and clears the queue. A
// no-op when already idle, preserving the invariant that an idle
// engine has an empty queue and nothing in flight.
func (c *Controller) stopLocked() {
	if c.machine.Current() != StateActive {
		return
	}

	if c.cancelSpeech != nil {
		c.cancelSpeech()
		c.cancelSpeech = nil
	}
	c.sink.CancelAll()
	c.dispatcher.Clear()
	c.renderer.Clear()

	if c.clock != nil {
		if err := c.compensator.Restore(c.clock); err != nil {
			log.Warn("unable to restore playback rate", "err", err)
		}
	}

	c.machine.Transition(StateIdle)
	log.Info("dubbing stopped", "session", c.session.ID)
	c.session = Session{}
}

// recoverLocked handles a detected discontinuity: tear the session
// down, then start again at the new position if the user still wants
// dubbing. Rebuilding from scratch beats patching, because a jump
// invalidates every queued assumption.
func (c *Controller) recoverLocked(positionMS int64) {
	log.Debug("clock discontinuity detected", "position_ms", positionMS)

	c.stopLocked()
	if !c.intent {
		return
	}

	if err := c.startLocked(); err != nil {
		log.Warn("unable to restart dubbing after discontinuity", "err", err)
		return
	}
	c.session.LastDiscontinuityMS = positionMS
	c.session.CurrentClockMS = positionMS

	// Prime the monitor and rebuild the lookahead at the new position.
	c.monitor.Observe(positionMS, time.Now(), c.clock.Rate())
	c.dispatcher.Tick(c.speechCtx, positionMS)
}
