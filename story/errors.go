package story

import "errors"

// Error kinds surfaced by the engine. Outline failures are recovered
// internally with a generic outline and never reach callers.
var (
	// ErrTextTimeout indicates the text stage exceeded its deadline.
	ErrTextTimeout = errors.New("text generation timed out")

	// ErrTextGeneration indicates the text stage failed outright.
	ErrTextGeneration = errors.New("text generation failed")

	// ErrAudioTimeout indicates speech synthesis exceeded its deadline.
	ErrAudioTimeout = errors.New("audio synthesis timed out")

	// ErrNoStory indicates a transport command arrived with no active story.
	ErrNoStory = errors.New("no active story")

	// ErrStoryActive indicates start was called while a story is running.
	ErrStoryActive = errors.New("a story is already active")
)
