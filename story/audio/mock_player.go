package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer implements Player for tests. Playback time is driven manually
// through Advance and end-of-stream events are fired explicitly with
// FireEnded, so tests can simulate early or spurious end signals.
type MockPlayer struct {
	mu sync.Mutex

	clip     Clip
	position time.Duration
	playing  bool
	paused   bool
	closed   bool

	onEnded func()

	playCount   atomic.Int64
	pauseCount  atomic.Int64
	resumeCount atomic.Int64
	stopCount   atomic.Int64

	// PlayErr, when set, is returned by the next PlayFrom call.
	PlayErr error
}

// NewMockPlayer creates a mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// PlayFrom implements Player.
func (m *MockPlayer) PlayFrom(clip Clip, offset time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("player is closed")
	}
	if m.PlayErr != nil {
		err := m.PlayErr
		m.PlayErr = nil
		return err
	}

	m.clip = clip
	m.position = offset
	m.playing = true
	m.paused = false
	m.playCount.Add(1)
	return nil
}

// Pause implements Player.
func (m *MockPlayer) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing || m.paused {
		return nil
	}
	m.paused = true
	m.pauseCount.Add(1)
	return nil
}

// Resume implements Player.
func (m *MockPlayer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.paused {
		return nil
	}
	m.paused = false
	m.resumeCount.Add(1)
	return nil
}

// Stop implements Player.
func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return nil
	}
	m.playing = false
	m.paused = false
	m.position = 0
	m.clip = Clip{}
	m.stopCount.Add(1)
	return nil
}

// Position implements Player.
func (m *MockPlayer) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// SetOnEnded implements Player.
func (m *MockPlayer) SetOnEnded(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnded = fn
}

// Close implements Player.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.playing = false
	return nil
}

// Advance moves the simulated playback position forward.
func (m *MockPlayer) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing || m.paused {
		return
	}
	m.position += d
	if m.position > m.clip.Duration {
		m.position = m.clip.Duration
	}
}

// FireEnded delivers an end-of-stream event to the registered callback,
// regardless of the simulated position. Tests use this to model premature
// end signals.
func (m *MockPlayer) FireEnded() {
	m.mu.Lock()
	fn := m.onEnded
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FinishAndFireEnded advances to the end of the clip and delivers the end
// event, modelling a natural completion.
func (m *MockPlayer) FinishAndFireEnded() {
	m.mu.Lock()
	m.position = m.clip.Duration
	fn := m.onEnded
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// IsPlaying reports whether the mock is playing and not paused.
func (m *MockPlayer) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.paused
}

// Counts returns play/pause/resume/stop call counts.
func (m *MockPlayer) Counts() (play, pause, resume, stop int) {
	return int(m.playCount.Load()), int(m.pauseCount.Load()),
		int(m.resumeCount.Load()), int(m.stopCount.Load())
}
