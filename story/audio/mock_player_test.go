package audio

import (
	"testing"
	"time"
)

func mockClip(d time.Duration) Clip {
	samples := int(d.Seconds() * 24000)
	return Clip{Data: make([]byte, samples*2), SampleRate: 24000, Duration: d}
}

func TestMockPlayerLifecycle(t *testing.T) {
	p := NewMockPlayer()
	clip := mockClip(2 * time.Second)

	if err := p.PlayFrom(clip, 0); err != nil {
		t.Fatalf("PlayFrom() error = %v", err)
	}
	if !p.IsPlaying() {
		t.Fatal("should be playing")
	}

	p.Advance(time.Second)
	if got := p.Position(); got != time.Second {
		t.Errorf("Position() = %v, want 1s", got)
	}

	if err := p.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	p.Advance(time.Second) // paused: no movement
	if got := p.Position(); got != time.Second {
		t.Errorf("Position() while paused = %v, want 1s", got)
	}

	// Redundant transport calls are no-ops.
	if err := p.Pause(); err != nil {
		t.Errorf("second Pause() error = %v", err)
	}
	if err := p.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	_, pauses, resumes, stops := p.Counts()
	if pauses != 1 || resumes != 1 || stops != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", pauses, resumes, stops)
	}
}

func TestMockPlayerStartOffset(t *testing.T) {
	p := NewMockPlayer()
	clip := mockClip(2 * time.Second)

	if err := p.PlayFrom(clip, 700*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if got := p.Position(); got != 700*time.Millisecond {
		t.Errorf("Position() = %v, want the start offset", got)
	}
}

func TestMockPlayerEndedEvents(t *testing.T) {
	p := NewMockPlayer()
	clip := mockClip(time.Second)

	fired := 0
	p.SetOnEnded(func() { fired++ })

	if err := p.PlayFrom(clip, 0); err != nil {
		t.Fatal(err)
	}

	p.FireEnded() // spurious, position still 0
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if got := p.Position(); got != 0 {
		t.Errorf("spurious event moved position to %v", got)
	}

	p.FinishAndFireEnded()
	if fired != 2 {
		t.Errorf("fired = %d, want 2", fired)
	}
	if got := p.Position(); got != clip.Duration {
		t.Errorf("Position() = %v, want clip duration", got)
	}
}

func TestMockPlayerClosed(t *testing.T) {
	p := NewMockPlayer()
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.PlayFrom(mockClip(time.Second), 0); err == nil {
		t.Error("PlayFrom() on a closed player should fail")
	}
}
