// Package audio provides decoded audio clips and playback for story
// segments.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrDecode indicates a synthesizer payload could not be decoded into a
// playable clip.
var ErrDecode = errors.New("audio payload could not be decoded")

// Supported PCM sample rates. The synthesizers in use emit one of these.
var validRates = map[int]bool{
	16000: true,
	22050: true,
	24000: true,
	44100: true,
	48000: true,
}

// Clip is decoded, playable audio: mono signed 16-bit little-endian PCM.
type Clip struct {
	Data       []byte
	SampleRate int
	Duration   time.Duration
}

// Empty reports whether the clip holds no audio.
func (c Clip) Empty() bool { return len(c.Data) == 0 }

// DecodePCM validates a raw PCM16 payload and computes its duration.
// It fails rather than producing a clip that would glitch on playback.
func DecodePCM(data []byte, sampleRate int) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if len(data)%2 != 0 {
		return Clip{}, fmt.Errorf("%w: odd byte count %d", ErrDecode, len(data))
	}
	if !validRates[sampleRate] {
		return Clip{}, fmt.Errorf("%w: unsupported sample rate %d", ErrDecode, sampleRate)
	}

	samples := len(data) / 2
	duration := time.Duration(samples) * time.Second / time.Duration(sampleRate)

	return Clip{
		Data:       data,
		SampleRate: sampleRate,
		Duration:   duration,
	}, nil
}

// byteOffset converts a time offset into a sample-aligned byte offset within
// the clip, clamped to the clip length.
func (c Clip) byteOffset(offset time.Duration) int {
	if offset <= 0 {
		return 0
	}
	samples := int(offset.Seconds() * float64(c.SampleRate))
	b := samples * 2
	if b > len(c.Data) {
		b = len(c.Data)
	}
	return b
}
