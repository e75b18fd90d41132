// Package bridge exposes the dubbing engine to a remote media player
// over a websocket. The remote side (typically a browser extension
// sitting on the video page) owns the real playback clock: it streams
// position ticks and caption tracks in, and receives rate commands
// back, so drift compensation reaches the actual player.
package bridge

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/capvox/capvox/caption"
	"github.com/capvox/capvox/dub"
)

// Message is a wire frame, both directions. Type selects which fields
// are meaningful.
type Message struct {
	Type       string    `json:"type"`
	PositionMS int64     `json:"position_ms,omitempty"`
	Rate       float64   `json:"rate,omitempty"`
	Segments   []Segment `json:"segments,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Segment is the wire form of a caption segment.
type Segment struct {
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// Inbound frame types.
const (
	TypeTick   = "tick"   // position update from the remote clock
	TypeRate   = "rate"   // the remote player's rate changed
	TypeSource = "source" // a new caption track
	TypeStart  = "start"  // user asked for dubbing on
	TypeStop   = "stop"   // user asked for dubbing off
)

// Outbound frame types.
const (
	TypeSetRate = "set_rate" // command the remote player to change rate
	TypeError   = "error"
)

// RemoteClock is a dub.Clock backed by tick and rate frames from the
// remote player. SetRate does not mutate local state: it commands the
// remote player, which reports the new rate back in its next frame.
type RemoteClock struct {
	mu       sync.Mutex
	position int64
	rate     float64
	send     func(Message) error
}

// NewRemoteClock creates a clock that issues rate commands through
// send.
func NewRemoteClock(send func(Message) error) *RemoteClock {
	return &RemoteClock{rate: 1.0, send: send}
}

// PositionMS returns the last reported position.
func (c *RemoteClock) PositionMS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Rate returns the last reported playback rate.
func (c *RemoteClock) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// SetRate sends a set_rate command to the remote player and records
// the rate optimistically, so a restore immediately followed by a
// reapply works even before the remote confirms.
func (c *RemoteClock) SetRate(rate float64) error {
	if err := c.send(Message{Type: TypeSetRate, Rate: rate}); err != nil {
		return err
	}
	c.mu.Lock()
	c.rate = rate
	c.mu.Unlock()
	return nil
}

func (c *RemoteClock) observe(positionMS int64) {
	c.mu.Lock()
	c.position = positionMS
	c.mu.Unlock()
}

func (c *RemoteClock) reportRate(rate float64) {
	c.mu.Lock()
	c.rate = rate
	c.mu.Unlock()
}

// Server accepts one remote player at a time and forwards its frames
// into the controller. A new connection displaces the previous one;
// the remote page reloading is the common case.
type Server struct {
	controller *dub.Controller
	upgrader   websocket.Upgrader

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewServer creates a bridge server over the given controller.
func NewServer(controller *dub.Controller) *Server {
	return &Server{
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			// The bridge binds to localhost; the page origin is
			// whatever video site the extension runs on.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and runs the frame loop until the
// peer disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}

	s.attach(conn)
	defer s.detach(conn)

	clock := NewRemoteClock(func(msg Message) error {
		return s.write(msg)
	})
	s.controller.SetClock(clock)
	log.Info("remote player connected", "addr", r.RemoteAddr)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("remote player read failed", "err", err)
			}
			break
		}
		s.handle(clock, msg)
	}

	// The clock is gone; stop rather than dispatch against a frozen
	// position.
	s.controller.Stop()
	log.Info("remote player disconnected", "addr", r.RemoteAddr)
}

func (s *Server) handle(clock *RemoteClock, msg Message) {
	switch msg.Type {
	case TypeTick:
		clock.observe(msg.PositionMS)
		s.controller.Tick(msg.PositionMS)

	case TypeRate:
		clock.reportRate(msg.Rate)

	case TypeSource:
		segments := make([]caption.Segment, len(msg.Segments))
		for i, seg := range msg.Segments {
			segments[i] = caption.Segment{StartMS: seg.StartMS, EndMS: seg.EndMS, Text: seg.Text}
		}
		s.controller.SwapSource(segments)

	case TypeStart:
		if err := s.controller.Start(); err != nil {
			s.reportError(err)
		}

	case TypeStop:
		s.controller.Stop()

	default:
		log.Debug("ignoring unknown frame", "type", msg.Type)
	}
}

func (s *Server) reportError(err error) {
	if werr := s.write(Message{Type: TypeError, Error: err.Error()}); werr != nil {
		log.Warn("unable to report error to remote player", "err", werr)
	}
}

func (s *Server) attach(conn *websocket.Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

func (s *Server) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
}

// write sends a frame to the current connection. Gorilla permits one
// concurrent writer, hence the lock.
func (s *Server) write(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteJSON(msg)
}

// ListenAndServe runs the bridge on addr at path /ws.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	log.Info("bridge listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
