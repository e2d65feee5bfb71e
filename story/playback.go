package story

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/waytales/story/audio"
)

// EndTolerance is how close to the declared segment duration playback must
// be before an end-of-stream event is trusted. Output backends fire the
// event early on occasion; anything earlier than this is ignored.
const EndTolerance = 500 * time.Millisecond

// Engine owns the audio output timeline for one session: it starts, pauses
// and resumes segment playback, tracks the cursor, confirms natural segment
// ends and stalls in Buffering when production falls behind the playhead.
type Engine struct {
	mu sync.Mutex

	player  audio.Player
	store   *Store
	total   int
	machine *Machine

	segment      int
	resumeOffset time.Duration
	current      audio.Clip
	// intent stays true through buffering; only a user pause clears it.
	intentPlaying bool

	// onAdvance fires when the cursor index changes or playback finishes.
	// It is only invoked from the output-ended path, never re-entrantly
	// from engine method calls.
	onAdvance func(Cursor)
}

// NewEngine creates a playback engine over the given player and store.
func NewEngine(player audio.Player, store *Store, total int) *Engine {
	e := &Engine{
		player:  player,
		store:   store,
		total:   total,
		machine: NewMachine(),
		segment: 1,
	}
	player.SetOnEnded(e.handleEnded)
	return e
}

// OnAdvance registers the cursor-change callback.
func (e *Engine) OnAdvance(fn func(Cursor)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onAdvance = fn
}

// Play starts or resumes playback of the current segment from the stored
// resume offset. If the segment's audio is not available yet the engine
// enters Buffering and waits for OnSegmentReady.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.machine.Current() {
	case StatePlaying:
		return nil
	case StateFinished:
		return fmt.Errorf("playback already finished")
	}

	resuming := e.machine.Current() == StatePaused && !e.current.Empty()
	e.intentPlaying = true

	seg, ok := e.store.Get(e.segment)
	if !ok {
		e.machine.Transition(StateBuffering)
		log.Debug("segment not ready, buffering", "segment", e.segment)
		return nil
	}

	if resuming {
		if err := e.player.Resume(); err != nil {
			return fmt.Errorf("resuming playback: %w", err)
		}
	} else {
		e.current = seg.Audio
		if err := e.player.PlayFrom(seg.Audio, e.resumeOffset); err != nil {
			return fmt.Errorf("starting playback: %w", err)
		}
	}
	e.machine.Transition(StatePlaying)
	return nil
}

// Pause records the elapsed offset, stops the output and retains the offset
// for the next Play. The cursor index does not change.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.intentPlaying = false
	switch e.machine.Current() {
	case StatePlaying:
		e.resumeOffset = e.player.Position()
		if err := e.player.Pause(); err != nil {
			return fmt.Errorf("pausing playback: %w", err)
		}
		e.machine.Transition(StatePaused)
	case StateBuffering:
		// Nothing is audible yet; just drop the playing intent.
		e.machine.Transition(StatePaused)
	}
	return nil
}

// OnSegmentReady tells the engine the store gained audio for index. If the
// engine is buffering on exactly that segment and the user has not paused,
// it starts playback from offset zero. This is the backpressure release
// that decouples generation latency from the playhead.
func (e *Engine) OnSegmentReady(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() != StateBuffering || !e.intentPlaying || index != e.segment {
		return
	}
	seg, ok := e.store.Get(index)
	if !ok {
		return
	}
	e.current = seg.Audio
	e.resumeOffset = 0
	if err := e.player.PlayFrom(seg.Audio, 0); err != nil {
		log.Error("failed to start buffered segment", "segment", index, "err", err)
		return
	}
	e.machine.Transition(StatePlaying)
	log.Debug("buffering resolved", "segment", index)
}

// Finish moves a buffering engine to Finished once no more segments can
// arrive. The controller calls this when production has terminated and the
// cursor is waiting past the production frontier.
func (e *Engine) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.machine.Current() == StateBuffering && e.segment > e.total {
		e.machine.Transition(StateFinished)
	}
}

// Cursor returns a snapshot of the playback cursor.
func (e *Engine) Cursor() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursorLocked()
}

func (e *Engine) cursorLocked() Cursor {
	offset := e.resumeOffset
	if e.machine.Current() == StatePlaying {
		offset = e.player.Position()
	}
	return Cursor{
		Segment: e.segment,
		Offset:  offset,
		State:   e.machine.Current(),
	}
}

// Stop tears down playback and returns the engine to idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	_ = e.player.Stop()
	e.machine.Transition(StateIdle)
	e.segment = 1
	e.resumeOffset = 0
	e.current = audio.Clip{}
	e.intentPlaying = false
}

// Close releases the audio output.
func (e *Engine) Close() error {
	return e.player.Close()
}

// handleEnded receives the output's end-of-stream signal. The signal is not
// trusted blindly: the elapsed position must reach the segment duration
// minus EndTolerance before the segment counts as finished, otherwise the
// event is ignored as spurious.
func (e *Engine) handleEnded() {
	e.mu.Lock()

	if e.machine.Current() != StatePlaying || e.current.Empty() {
		e.mu.Unlock()
		return
	}

	elapsed := e.player.Position()
	if elapsed < e.current.Duration-EndTolerance {
		log.Debug("ignoring premature end event",
			"segment", e.segment,
			"elapsed", elapsed,
			"duration", e.current.Duration)
		e.mu.Unlock()
		return
	}

	_ = e.player.Stop()
	e.segment++
	e.resumeOffset = 0
	e.current = audio.Clip{}

	if e.segment > e.total {
		e.machine.Transition(StateFinished)
	} else if seg, ok := e.store.Get(e.segment); ok {
		e.current = seg.Audio
		if err := e.player.PlayFrom(seg.Audio, 0); err != nil {
			log.Error("failed to start next segment", "segment", e.segment, "err", err)
			e.machine.Transition(StateBuffering)
		}
	} else {
		e.machine.Transition(StateBuffering)
	}

	snapshot := e.cursorLocked()
	fn := e.onAdvance
	e.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}
