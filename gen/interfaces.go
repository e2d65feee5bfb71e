// Package gen defines the external generation collaborators used to turn
// outline beats into narrative text and narrative text into speech.
package gen

import "context"

// TextGenerator produces narrative text from a system and user prompt.
type TextGenerator interface {
	// Generate returns the completion for the given prompts. The call must
	// honor ctx cancellation and deadlines.
	Generate(ctx context.Context, system, user string) (string, error)
}

// Clip is a raw synthesis result: undecoded audio bytes plus the sample
// rate the synthesizer produced them at.
type Clip struct {
	Data       []byte
	SampleRate int
}

// Synthesizer converts narrative text into raw speech audio.
type Synthesizer interface {
	// Synthesize renders text with the given voice and returns the raw
	// audio payload. The payload still has to pass decoding before it is
	// playable.
	Synthesize(ctx context.Context, text, voice string) (Clip, error)
}
