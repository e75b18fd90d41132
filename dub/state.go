package dub

// State is the engine's lifecycle state. There are exactly two: the
// engine is either idle or running a session. Stop and reset always
// land back on StateIdle.
type State int

const (
	// StateIdle means no dubbing session is running.
	StateIdle State = iota
	// StateActive means a session is running and ticks are processed.
	StateActive
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// StateMachine guards lifecycle transitions. With two states the map
// is small, but keeping transitions explicit means an invalid move is
// a visible bug rather than silent state corruption.
type StateMachine struct {
	current     State
	transitions map[State][]State
}

// NewStateMachine creates a machine starting at StateIdle.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:   {StateActive},
			StateActive: {StateIdle},
		},
	}
}

// Transition attempts to move to the given state, reporting whether
// the move was valid.
func (sm *StateMachine) Transition(to State) bool {
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			sm.current = to
			return true
		}
	}
	return false
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	return sm.current
}
