package story

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/waytales/story/audio"
)

// Status is the controller's consumer-facing state, pushed to the
// presentation layer on every change.
type Status struct {
	State      PlaybackState
	Segment    int
	Total      int
	Offset     time.Duration
	Produced   int  // segments generated so far
	Generating bool // background generation in flight
	Text       string
}

// Controller glues the playback engine, generation scheduler and segment
// store into one session. It exposes the transport surface (Start, Toggle,
// Reset) and surfaces buffering and generation state.
//
// A session counter invalidates async results that outlive a reset: any
// generation dispatched for an earlier session is dropped on arrival.
type Controller struct {
	mu sync.Mutex

	cfg      Config
	pipeline *Pipeline
	// newPlayer supplies a fresh audio output per session; reset closes
	// the previous one.
	newPlayer func() audio.Player

	session atomic.Uint64

	story      *Story
	sched      *Scheduler
	engine     *Engine
	generating bool
	retryTimer *time.Timer

	// onStatus must not call back into the controller.
	onStatus func(Status)
}

// NewController creates a session controller.
func NewController(pipeline *Pipeline, cfg Config, newPlayer func() audio.Player) *Controller {
	return &Controller{
		cfg:       cfg,
		pipeline:  pipeline,
		newPlayer: newPlayer,
	}
}

// OnStatus registers the status callback consumed by the presentation
// layer.
func (c *Controller) OnStatus(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// Start begins a story for the given route. The outline and the first
// segment are generated synchronously: playback is only reachable with the
// opening segment fully ready. On failure the session stays in its
// pre-start state and the error is surfaced to the caller.
func (c *Controller) Start(ctx context.Context, route RouteSummary) error {
	c.mu.Lock()
	if c.story != nil {
		c.mu.Unlock()
		return ErrStoryActive
	}
	if route.Voice == "" {
		route.Voice = c.cfg.Voice
	}
	session := c.session.Add(1)
	total := EstimateSegments(route.Duration, c.cfg.TargetSegment)
	c.mu.Unlock()

	log.Info("starting story",
		"from", route.StartLabel,
		"to", route.EndLabel,
		"segments", total)

	outline := c.pipeline.Outline(ctx, route, total)

	first, err := c.pipeline.Segment(ctx, route, outline, 1, total, "")
	if err != nil {
		log.Error("first segment generation failed, aborting start", "err", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Load() != session {
		// Reset raced the synchronous generation; discard everything.
		log.Debug("session reset during start, dropping story")
		return ErrNoStory
	}

	store := NewStore(session)
	store.Append(first)

	c.story = &Story{
		Route:         route,
		TotalEstimate: total,
		Outline:       outline,
		Segments:      store,
	}
	c.sched = NewScheduler(c.cfg.Lookahead, total)
	c.engine = NewEngine(c.newPlayer(), store, total)
	c.engine.OnAdvance(c.handleAdvance)

	if err := c.engine.Play(); err != nil {
		c.teardownLocked()
		return err
	}

	c.evaluateLocked()
	c.notifyLocked()
	return nil
}

// Toggle pauses active playback or resumes paused playback.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return ErrNoStory
	}

	var err error
	switch c.engine.Cursor().State {
	case StatePlaying, StateBuffering:
		err = c.engine.Pause()
	case StatePaused:
		err = c.engine.Play()
	}
	c.notifyLocked()
	return err
}

// Reset tears down the session: audio output closed, story and cursor
// discarded, session counter bumped so any in-flight generation result is
// dropped on arrival.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.Add(1)
	c.teardownLocked()
	c.notifyLocked()
}

func (c *Controller) teardownLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.engine != nil {
		c.engine.Stop()
		if err := c.engine.Close(); err != nil {
			log.Warn("closing audio output", "err", err)
		}
		c.engine = nil
	}
	c.story = nil
	c.sched = nil
	c.generating = false
}

// Status returns the current consumer-facing state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Transcript returns a copy of the segments generated so far.
func (c *Controller) Transcript() []Segment {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.story == nil {
		return nil
	}
	out := make([]Segment, 0, c.story.Segments.Len())
	for i := 1; ; i++ {
		seg, ok := c.story.Segments.Get(i)
		if !ok {
			break
		}
		out = append(out, seg)
	}
	return out
}

// Route returns the active story's route summary.
func (c *Controller) Route() (RouteSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.story == nil {
		return RouteSummary{}, false
	}
	return c.story.Route, true
}

func (c *Controller) statusLocked() Status {
	if c.story == nil || c.engine == nil {
		return Status{State: StateIdle}
	}
	cur := c.engine.Cursor()
	st := Status{
		State:      cur.State,
		Segment:    cur.Segment,
		Total:      c.story.TotalEstimate,
		Offset:     cur.Offset,
		Produced:   c.story.Segments.Len(),
		Generating: c.generating,
	}
	if seg, ok := c.story.Segments.Get(cur.Segment); ok {
		st.Text = seg.Text
	}
	return st
}

func (c *Controller) notifyLocked() {
	if c.onStatus != nil {
		c.onStatus(c.statusLocked())
	}
}

// evaluateLocked is the scheduler tick, run on every change to segment
// count, playhead index or session readiness.
func (c *Controller) evaluateLocked() {
	if c.story == nil || c.sched == nil {
		return
	}

	produced := c.story.Segments.Len()
	if c.sched.Done(produced) {
		c.engine.Finish()
		return
	}

	playhead := c.engine.Cursor().Segment
	index, ok := c.sched.Next(produced, playhead)
	if !ok {
		return
	}

	c.generating = true
	session := c.session.Load()
	st := c.story
	log.Debug("dispatching generation", "segment", index, "produced", produced, "playhead", playhead)
	go c.generate(session, st, index)
}

// generate runs one pipeline invocation off the control path and reconciles
// the result. The in-flight token is released on every exit, and results
// from a session that has since been reset are dropped: the duplicate-index
// guard in the store backstops anything that slips through.
func (c *Controller) generate(session uint64, st *Story, index int) {
	tail := st.Segments.Tail(c.cfg.ContinuityTail)
	seg, err := c.pipeline.Segment(context.Background(), st.Route, st.Outline, index, st.TotalEstimate, tail)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Load() != session || c.story != st {
		log.Debug("dropping generation result from dead session", "segment", index)
		return
	}

	c.sched.Release()
	c.generating = false

	if err != nil {
		// Transient: the store still lacks this index, so the next
		// evaluation retries it.
		log.Error("background generation failed, will retry", "segment", index, "err", err)
		c.scheduleRetryLocked(session)
		c.notifyLocked()
		return
	}

	if !st.Segments.Append(seg) {
		log.Debug("segment already present, dropping duplicate", "segment", index)
	}
	c.engine.OnSegmentReady(index)
	c.evaluateLocked()
	c.notifyLocked()
}

func (c *Controller) scheduleRetryLocked(session uint64) {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(c.cfg.RetryDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.session.Load() != session {
			return
		}
		c.evaluateLocked()
		c.notifyLocked()
	})
}

// handleAdvance runs when the engine advances the cursor or finishes. It
// re-evaluates the scheduler against the new playhead.
func (c *Controller) handleAdvance(cur Cursor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return
	}
	if cur.State == StateFinished {
		log.Info("story finished", "segments", cur.Segment-1)
	}
	c.evaluateLocked()
	c.notifyLocked()
}
