package story

import "testing"

func TestPlaybackStateString(t *testing.T) {
	tests := []struct {
		state    PlaybackState
		expected string
	}{
		{StateIdle, "idle"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{StateBuffering, "buffering"},
		{StateFinished, "finished"},
		{PlaybackState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCursorIsActive(t *testing.T) {
	tests := []struct {
		state    PlaybackState
		expected bool
	}{
		{StateIdle, false},
		{StatePlaying, true},
		{StatePaused, true},
		{StateBuffering, true},
		{StateFinished, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			c := Cursor{State: tt.state}
			if got := c.IsActive(); got != tt.expected {
				t.Errorf("IsActive() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []PlaybackState
		ok   bool
	}{
		{"idle to playing", []PlaybackState{StatePlaying}, true},
		{"idle to buffering", []PlaybackState{StateBuffering}, true},
		{"idle to paused", []PlaybackState{StatePaused}, false},
		{"playing to paused to playing", []PlaybackState{StatePlaying, StatePaused, StatePlaying}, true},
		{"buffering resolves to playing", []PlaybackState{StateBuffering, StatePlaying}, true},
		{"playing to finished", []PlaybackState{StatePlaying, StateFinished}, true},
		{"finished only resets to idle", []PlaybackState{StatePlaying, StateFinished, StatePlaying}, false},
		{"finished to idle", []PlaybackState{StatePlaying, StateFinished, StateIdle}, true},
		{"paused while buffering", []PlaybackState{StateBuffering, StatePaused, StateBuffering}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			ok := true
			for _, s := range tt.path {
				if !m.Transition(s) {
					ok = false
					break
				}
			}
			if ok != tt.ok {
				t.Errorf("path %v ok = %v, want %v", tt.path, ok, tt.ok)
			}
		})
	}
}
