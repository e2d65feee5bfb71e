package story

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/waytales/gen"
	"github.com/dgnsrekt/waytales/story/audio"
)

// waitFor polls until cond holds or the test deadline hits.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type controllerFixture struct {
	controller *Controller
	text       *gen.MockTextGenerator
	tts        *gen.MockSynthesizer
	player     *audio.MockPlayer
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		text:   gen.NewMockTextGenerator(),
		tts:    gen.NewMockSynthesizer(),
		player: audio.NewMockPlayer(),
	}
	pipeline := NewPipeline(f.text, f.tts, fastConfig())
	f.controller = NewController(pipeline, fastConfig(), func() audio.Player { return f.player })
	t.Cleanup(f.controller.Reset)
	return f
}

func fifteenMinuteRoute() RouteSummary {
	r := testRoute()
	r.Duration = 900 * time.Second
	return r
}

func TestControllerStartPlaysFirstSegment(t *testing.T) {
	f := newControllerFixture(t)

	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	st := f.controller.Status()
	if st.State != StatePlaying {
		t.Errorf("state = %s, want playing", st.State)
	}
	if st.Segment != 1 {
		t.Errorf("segment = %d, want 1", st.Segment)
	}
	if st.Total != 15 {
		t.Errorf("total = %d, want 15 for a 900s route at 60s segments", st.Total)
	}
	if st.Text == "" {
		t.Error("status should carry the current segment's text")
	}

	// Lookahead fills to the window (playing segment plus two ahead) and
	// then production pauses.
	waitFor(t, "lookahead fill", func() bool {
		s := f.controller.Status()
		return s.Produced == 3 && !s.Generating
	})
}

func TestControllerStartWhileActive(t *testing.T) {
	f := newControllerFixture(t)

	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); !errors.Is(err, ErrStoryActive) {
		t.Errorf("second Start() err = %v, want ErrStoryActive", err)
	}
}

// TestControllerFirstSegmentTimeoutAborts verifies a first-segment timeout
// surfaces to the caller and leaves the session in its pre-start state.
func TestControllerFirstSegmentTimeoutAborts(t *testing.T) {
	f := newControllerFixture(t)
	f.text.Delay = 300 * time.Millisecond // beyond the 100ms test timeout

	err := f.controller.Start(context.Background(), fifteenMinuteRoute())
	if !errors.Is(err, ErrTextTimeout) {
		t.Fatalf("Start() err = %v, want ErrTextTimeout", err)
	}
	if st := f.controller.Status(); st.State != StateIdle {
		t.Errorf("state after aborted start = %s, want idle", st.State)
	}

	// Route selection stays open: a retry with a healthy generator works.
	f.text.Delay = 0
	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("retry Start() error = %v", err)
	}
}

func TestControllerFirstSegmentFailureAborts(t *testing.T) {
	f := newControllerFixture(t)
	// Call 1 is the outline (which falls back), call 2 the first segment.
	f.text.FailOnCall(2, errors.New("model offline"))

	err := f.controller.Start(context.Background(), fifteenMinuteRoute())
	if !errors.Is(err, ErrTextGeneration) {
		t.Fatalf("Start() err = %v, want ErrTextGeneration", err)
	}
	if st := f.controller.Status(); st.State != StateIdle {
		t.Errorf("state = %s, want idle", st.State)
	}
}

// TestControllerBackgroundFailureRetries verifies a failed lookahead
// generation is retried without user intervention and without corrupting
// the store.
func TestControllerBackgroundFailureRetries(t *testing.T) {
	f := newControllerFixture(t)
	// Call 3 is the first background segment (after outline and segment 1).
	f.text.FailOnCall(3, errors.New("transient"))

	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "retry to fill lookahead", func() bool {
		return f.controller.Status().Produced == 3
	})

	segments := f.controller.Transcript()
	for i, seg := range segments {
		if seg.Index != i+1 {
			t.Errorf("segment %d has index %d, store ordering corrupted", i, seg.Index)
		}
	}
}

// TestControllerSingleInFlight verifies at most one pipeline invocation
// runs at a time for any event timing.
func TestControllerSingleInFlight(t *testing.T) {
	f := newControllerFixture(t)
	counter := &concurrencyCounter{inner: f.text}
	pipeline := NewPipeline(counter, f.tts, fastConfig())
	f.controller = NewController(pipeline, fastConfig(), func() audio.Player { return f.player })
	t.Cleanup(f.controller.Reset)

	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Drive the playhead forward to force more generation.
	for i := 0; i < 4; i++ {
		waitFor(t, "segment ready", func() bool {
			return f.controller.Status().Produced > f.controller.Status().Segment
		})
		f.player.FinishAndFireEnded()
	}

	waitFor(t, "production settles", func() bool {
		return !f.controller.Status().Generating
	})

	if counter.Max() > 1 {
		t.Errorf("max concurrent generations = %d, want 1", counter.Max())
	}
}

// TestControllerAdvanceTriggersGeneration covers the boundary scenario:
// with the window full nothing generates, and once the playhead advances
// the next index is requested.
func TestControllerAdvanceTriggersGeneration(t *testing.T) {
	f := newControllerFixture(t)

	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "initial lookahead fill", func() bool {
		s := f.controller.Status()
		return s.Produced == 3 && !s.Generating
	})

	f.player.FinishAndFireEnded()

	waitFor(t, "generation for segment 4", func() bool {
		return f.controller.Status().Produced == 4
	})
}

func TestControllerToggle(t *testing.T) {
	f := newControllerFixture(t)

	if err := f.controller.Toggle(); !errors.Is(err, ErrNoStory) {
		t.Errorf("Toggle() with no story err = %v, want ErrNoStory", err)
	}

	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := f.controller.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if st := f.controller.Status(); st.State != StatePaused {
		t.Errorf("state = %s, want paused", st.State)
	}

	if err := f.controller.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if st := f.controller.Status(); st.State != StatePlaying {
		t.Errorf("state = %s, want playing", st.State)
	}
}

// TestControllerResetDropsLateResults verifies a generation dispatched
// before a reset cannot leak into a later session.
func TestControllerResetDropsLateResults(t *testing.T) {
	f := newControllerFixture(t)
	f.text.Delay = 40 * time.Millisecond

	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Background generation for segment 2 is now in flight.
	f.controller.Reset()

	if st := f.controller.Status(); st.State != StateIdle {
		t.Fatalf("state after reset = %s, want idle", st.State)
	}

	// Let the stale result land; it must be dropped silently.
	time.Sleep(150 * time.Millisecond)

	if st := f.controller.Status(); st.State != StateIdle || st.Produced != 0 {
		t.Errorf("stale result mutated a reset session: %+v", st)
	}

	// A fresh session starts cleanly.
	f.text.Delay = 0
	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() after reset error = %v", err)
	}
	if st := f.controller.Status(); st.Segment != 1 || st.State != StatePlaying {
		t.Errorf("fresh session status = %+v", st)
	}
}

// TestControllerBufferingSurfaced verifies the buffering state reaches the
// status consumer when the playhead outruns production, and clears when
// the segment arrives.
func TestControllerBufferingSurfaced(t *testing.T) {
	f := newControllerFixture(t)
	f.text.Delay = 30 * time.Millisecond

	var mu sync.Mutex
	var states []PlaybackState
	f.controller.OnStatus(func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	if err := f.controller.Start(context.Background(), fifteenMinuteRoute()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Finish segment 1 before segment 2 has been produced.
	f.player.FinishAndFireEnded()

	waitFor(t, "buffering then playing", func() bool {
		mu.Lock()
		defer mu.Unlock()
		sawBuffering := false
		for _, s := range states {
			if s == StateBuffering {
				sawBuffering = true
			}
			if sawBuffering && s == StatePlaying {
				return true
			}
		}
		return false
	})
}

func TestControllerFinishes(t *testing.T) {
	f := newControllerFixture(t)

	r := fifteenMinuteRoute()
	r.Duration = 120 * time.Second // two segments

	if err := f.controller.Start(context.Background(), r); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "both segments produced", func() bool {
		return f.controller.Status().Produced == 2
	})

	f.player.FinishAndFireEnded()
	waitFor(t, "segment 2 playing", func() bool {
		return f.controller.Status().Segment == 2 && f.controller.Status().State == StatePlaying
	})
	f.player.FinishAndFireEnded()

	waitFor(t, "story finished", func() bool {
		return f.controller.Status().State == StateFinished
	})
}

// concurrencyCounter wraps a text generator and records the maximum number
// of concurrent calls.
type concurrencyCounter struct {
	inner gen.TextGenerator

	mu      sync.Mutex
	current int
	max     int
}

func (c *concurrencyCounter) Generate(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	c.current++
	if c.current > c.max {
		c.max = c.current
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.current--
		c.mu.Unlock()
	}()

	time.Sleep(10 * time.Millisecond)
	return c.inner.Generate(ctx, system, user)
}

func (c *concurrencyCounter) Max() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.max
}
