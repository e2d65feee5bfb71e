package gen

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockTextGeneratorScriptedFailure(t *testing.T) {
	m := NewMockTextGenerator()
	boom := errors.New("boom")
	m.FailOnCall(2, boom)

	if _, err := m.Generate(context.Background(), "s", "u"); err != nil {
		t.Fatalf("call 1 error = %v", err)
	}
	if _, err := m.Generate(context.Background(), "s", "u"); !errors.Is(err, boom) {
		t.Fatalf("call 2 error = %v, want scripted failure", err)
	}
	if _, err := m.Generate(context.Background(), "s", "u"); err != nil {
		t.Fatalf("call 3 error = %v", err)
	}
	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
}

func TestMockTextGeneratorHonorsDeadline(t *testing.T) {
	m := NewMockTextGenerator()
	m.Delay = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Generate(ctx, "s", "u")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestMockSynthesizerClipShape(t *testing.T) {
	m := NewMockSynthesizer()
	m.SampleRate = 24000
	m.ClipLength = 3 * time.Second

	clip, err := m.Synthesize(context.Background(), "hello", "nova")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if clip.SampleRate != 24000 {
		t.Errorf("sample rate = %d", clip.SampleRate)
	}
	if want := 3 * 24000 * 2; len(clip.Data) != want {
		t.Errorf("data length = %d, want %d", len(clip.Data), want)
	}
}
