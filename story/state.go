package story

import "time"

// PlaybackState is the state of the playback cursor.
type PlaybackState int

const (
	// StateIdle indicates no story is loaded.
	StateIdle PlaybackState = iota
	// StatePlaying indicates a segment is being played.
	StatePlaying
	// StatePaused indicates the user paused playback.
	StatePaused
	// StateBuffering indicates playback intent is active but the current
	// segment's audio is not available yet.
	StateBuffering
	// StateFinished indicates the cursor moved past the last estimated
	// segment with nothing left to generate.
	StateFinished
)

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Cursor is the live playback position: one per session.
type Cursor struct {
	Segment int           // current segment index, 1-based
	Offset  time.Duration // elapsed time within the segment
	State   PlaybackState
}

// IsActive reports whether playback is underway in any form.
func (c Cursor) IsActive() bool {
	return c.State == StatePlaying || c.State == StatePaused || c.State == StateBuffering
}

// Machine validates cursor state transitions.
type Machine struct {
	current     PlaybackState
	transitions map[PlaybackState][]PlaybackState
}

// NewMachine creates the cursor state machine in the idle state.
func NewMachine() *Machine {
	return &Machine{
		current: StateIdle,
		transitions: map[PlaybackState][]PlaybackState{
			StateIdle:      {StatePlaying, StateBuffering},
			StatePlaying:   {StatePaused, StateBuffering, StateFinished, StateIdle},
			StatePaused:    {StatePlaying, StateBuffering, StateIdle},
			StateBuffering: {StatePlaying, StatePaused, StateFinished, StateIdle},
			StateFinished:  {StateIdle},
		},
	}
}

// Transition attempts to move to the given state, reporting success.
func (m *Machine) Transition(to PlaybackState) bool {
	for _, s := range m.transitions[m.current] {
		if s == to {
			m.current = to
			return true
		}
	}
	return false
}

// Current returns the current state.
func (m *Machine) Current() PlaybackState {
	return m.current
}
