package gen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockTextGenerator implements TextGenerator for testing and demo mode.
// It produces deterministic filler text after an optional delay and can be
// scripted to fail on specific calls.
type MockTextGenerator struct {
	Delay    time.Duration
	WordsPer int // words per response, defaults to 150

	mu       sync.Mutex
	failures map[int]error // 1-based call number -> error
	calls    atomic.Int64
}

// NewMockTextGenerator creates a mock text generator.
func NewMockTextGenerator() *MockTextGenerator {
	return &MockTextGenerator{failures: make(map[int]error)}
}

// FailOnCall arranges for the nth call (1-based) to return err.
func (m *MockTextGenerator) FailOnCall(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[n] = err
}

// Calls returns how many times Generate has been invoked.
func (m *MockTextGenerator) Calls() int { return int(m.calls.Load()) }

// Generate implements TextGenerator.
func (m *MockTextGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	n := int(m.calls.Add(1))

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	err := m.failures[n]
	m.mu.Unlock()
	if err != nil {
		return "", err
	}

	words := m.WordsPer
	if words <= 0 {
		words = 150
	}
	var b strings.Builder
	for i := 0; i < words; i++ {
		fmt.Fprintf(&b, "word%d ", i)
	}
	return strings.TrimSpace(b.String()), nil
}

// MockSynthesizer implements Synthesizer for testing and demo mode. It
// returns silent PCM sized to a configurable duration.
type MockSynthesizer struct {
	Delay      time.Duration
	SampleRate int           // defaults to 24000
	ClipLength time.Duration // defaults to 2s

	mu       sync.Mutex
	failures map[int]error
	calls    atomic.Int64
}

// NewMockSynthesizer creates a mock synthesizer.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{failures: make(map[int]error)}
}

// FailOnCall arranges for the nth call (1-based) to return err.
func (m *MockSynthesizer) FailOnCall(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[n] = err
}

// Calls returns how many times Synthesize has been invoked.
func (m *MockSynthesizer) Calls() int { return int(m.calls.Load()) }

// Synthesize implements Synthesizer.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voice string) (Clip, error) {
	n := int(m.calls.Add(1))

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return Clip{}, err
	}

	m.mu.Lock()
	err := m.failures[n]
	m.mu.Unlock()
	if err != nil {
		return Clip{}, err
	}

	rate := m.SampleRate
	if rate <= 0 {
		rate = 24000
	}
	length := m.ClipLength
	if length <= 0 {
		length = 2 * time.Second
	}
	samples := int(length.Seconds() * float64(rate))
	return Clip{Data: make([]byte, samples*2), SampleRate: rate}, nil
}
