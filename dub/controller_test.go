package dub

import (
	"errors"
	"testing"
	"time"

	"github.com/capvox/capvox/caption"
	"github.com/capvox/capvox/synth/mock"
)

func newController(segments []caption.Segment) (*Controller, *ManualClock, *mock.Sink) {
	store := caption.NewStore()
	store.Load(segments)
	sink := mock.New()
	c := NewController(DefaultConfig(), store, sink)
	clock := NewManualClock()
	c.SetClock(clock)
	return c, clock, sink
}

var twoSegments = []caption.Segment{
	{StartMS: 0, EndMS: 2000, Text: "one"},
	{StartMS: 3000, EndMS: 5000, Text: "two"},
}

func TestControllerStartErrors(t *testing.T) {
	store := caption.NewStore()
	c := NewController(DefaultConfig(), store, mock.New())

	if err := c.Start(); !errors.Is(err, ErrNoMediaSource) {
		t.Errorf("Start without clock: err = %v, want ErrNoMediaSource", err)
	}

	c.SetClock(NewManualClock())
	if err := c.Start(); !errors.Is(err, ErrNoCaptions) {
		t.Errorf("Start without captions: err = %v, want ErrNoCaptions", err)
	}

	store.Load(twoSegments)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Start: err = %v, want ErrAlreadyActive", err)
	}
}

func TestControllerRateRestoration(t *testing.T) {
	c, clock, _ := newController(twoSegments)
	if err := clock.SetRate(1.25); err != nil {
		t.Fatal(err)
	}

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := clock.Rate(); got != 1.0 {
		t.Errorf("compensated rate = %v, want 1.0 (1.25 x 0.8)", got)
	}

	c.Stop()
	if got := clock.Rate(); got != 1.25 {
		t.Errorf("rate after Stop = %v, want the exact pre-start 1.25", got)
	}
}

func TestControllerStopIdempotent(t *testing.T) {
	c, _, sink := newController(twoSegments)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	c.Stop()
	if sink.Cancellations() != 1 {
		t.Fatalf("first Stop: cancellations = %d, want 1", sink.Cancellations())
	}

	c.Stop()
	c.Stop()
	if sink.Cancellations() != 1 {
		t.Errorf("repeated Stop issued more cancellations: %d", sink.Cancellations())
	}
	if c.Active() {
		t.Error("engine still active after Stop")
	}
	if len(c.Pending()) != 0 {
		t.Error("queue not empty after Stop")
	}
}

func TestControllerTickWhileIdle(t *testing.T) {
	c, _, sink := newController(twoSegments)

	c.Tick(0)
	c.Tick(3000)
	time.Sleep(20 * time.Millisecond)

	if n := len(sink.Requests()); n != 0 {
		t.Errorf("idle engine dispatched %d speak commands", n)
	}
	if got := c.CurrentSession(); got.ID != "" {
		t.Errorf("idle engine has session state: %+v", got)
	}
}

func TestControllerDiscontinuityRecovery(t *testing.T) {
	segments := []caption.Segment{
		{StartMS: 0, EndMS: 2000, Text: "one"},
		{StartMS: 10000, EndMS: 12000, Text: "far"},
	}
	c, _, sink := newController(segments)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := c.CurrentSession().ID

	c.Tick(0)
	waitForRequests(t, sink, 1)
	if pending := c.Pending(); len(pending) != 1 || pending[0].ScheduledAtMS != 10000 {
		t.Fatalf("lookahead before jump: %+v", pending)
	}

	// A forward jump far past the tolerance. The session is rebuilt and
	// the queued utterance from before the jump is discarded, not
	// spoken: "far" started before the landing position.
	c.Tick(10500)
	time.Sleep(20 * time.Millisecond)

	if !c.Active() {
		t.Fatal("engine not active after recovery")
	}
	session := c.CurrentSession()
	if session.ID == first {
		t.Error("recovery should rebuild the session")
	}
	if session.LastDiscontinuityMS != 10500 {
		t.Errorf("LastDiscontinuityMS = %d, want 10500", session.LastDiscontinuityMS)
	}
	if sink.Cancellations() != 1 {
		t.Errorf("recovery cancellations = %d, want 1", sink.Cancellations())
	}
	if reqs := sink.Requests(); len(reqs) != 1 || reqs[0].Text != "one" {
		t.Errorf("stale utterance dispatched after jump: %+v", reqs)
	}
}

func TestControllerBackwardJumpRepopulatesQueue(t *testing.T) {
	c, _, sink := newController(twoSegments)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Prime well past both segments, then jump back before the second.
	c.Tick(8000)
	c.Tick(500)
	time.Sleep(20 * time.Millisecond)

	pending := c.Pending()
	if len(pending) != 1 || pending[0].ScheduledAtMS != 3000 {
		t.Fatalf("queue after backward jump: %+v, want one entry at 3000", pending)
	}

	// Walk forward in sub-tolerance steps; only "two" is spoken. "one"
	// ended before the landing position and must stay silent.
	for _, tick := range []int64{1400, 2300, 3000} {
		c.Tick(tick)
	}
	waitForRequests(t, sink, 1)
	time.Sleep(20 * time.Millisecond)

	reqs := sink.Requests()
	if len(reqs) != 1 || reqs[0].Text != "two" {
		t.Errorf("after backward jump: %+v, want only \"two\"", reqs)
	}
}

func TestControllerSwapSourceRestarts(t *testing.T) {
	c, _, sink := newController(twoSegments)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := c.CurrentSession().ID

	c.SwapSource([]caption.Segment{{StartMS: 100, EndMS: 900, Text: "swapped"}})

	if !c.Active() {
		t.Fatal("engine should restart after source swap while active")
	}
	if c.CurrentSession().ID == first {
		t.Error("source swap should rebuild the session")
	}

	c.Tick(100)
	waitForRequests(t, sink, 1)
	if reqs := sink.Requests(); reqs[len(reqs)-1].Text != "swapped" {
		t.Errorf("dispatch after swap: %+v", reqs)
	}
}

func TestControllerSwapSourceWhileIdle(t *testing.T) {
	c, _, _ := newController(nil)

	c.SwapSource(twoSegments)
	if c.Active() {
		t.Fatal("swap while idle must not start the engine")
	}
	if err := c.Start(); err != nil {
		t.Errorf("Start after idle swap: %v", err)
	}
}
