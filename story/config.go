package story

import (
	"fmt"
	"time"
)

// Defaults for the narration engine.
const (
	DefaultLookahead      = 3
	DefaultTargetSegment  = 60 * time.Second
	DefaultWordsPerMinute = 150
	DefaultTextTimeout    = 60 * time.Second
	DefaultAudioTimeout   = 100 * time.Second
	DefaultRetryDelay     = 2 * time.Second
	DefaultContinuityTail = 3000
)

// Config holds the engine configuration.
type Config struct {
	// Lookahead is how many segments to keep generated ahead of the
	// playhead.
	Lookahead int `env:"WAYTALES_LOOKAHEAD"`

	// TargetSegment is the journey time one segment should cover; segment
	// count and narrative length are both derived from it.
	TargetSegment time.Duration `env:"WAYTALES_TARGET_SEGMENT"`

	// WordsPerMinute is the speaking rate used to size narrative text.
	WordsPerMinute int `env:"WAYTALES_WPM"`

	// TextTimeout bounds the text generation stage per segment.
	TextTimeout time.Duration `env:"WAYTALES_TEXT_TIMEOUT"`

	// AudioTimeout bounds the speech synthesis stage per segment.
	AudioTimeout time.Duration `env:"WAYTALES_AUDIO_TIMEOUT"`

	// RetryDelay is how long the controller waits before re-evaluating the
	// scheduler after a background generation failure.
	RetryDelay time.Duration `env:"WAYTALES_RETRY_DELAY"`

	// ContinuityTail is the number of trailing narrative characters handed
	// to the text stage as context.
	ContinuityTail int

	// Style is the narrative style tag passed to text generation.
	Style string `env:"WAYTALES_STYLE"`

	// Voice is the synthesis voice identifier.
	Voice string `env:"WAYTALES_VOICE"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Lookahead:      DefaultLookahead,
		TargetSegment:  DefaultTargetSegment,
		WordsPerMinute: DefaultWordsPerMinute,
		TextTimeout:    DefaultTextTimeout,
		AudioTimeout:   DefaultAudioTimeout,
		RetryDelay:     DefaultRetryDelay,
		ContinuityTail: DefaultContinuityTail,
		Style:          "warm and curious travel companion",
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.Lookahead < 1 {
		return fmt.Errorf("lookahead must be at least 1, got %d", c.Lookahead)
	}
	if c.TargetSegment < 5*time.Second {
		return fmt.Errorf("target segment duration too short: %s", c.TargetSegment)
	}
	if c.WordsPerMinute < 30 || c.WordsPerMinute > 600 {
		return fmt.Errorf("words per minute out of range: %d", c.WordsPerMinute)
	}
	if c.TextTimeout <= 0 || c.AudioTimeout <= 0 {
		return fmt.Errorf("stage timeouts must be positive")
	}
	if c.ContinuityTail < 0 {
		return fmt.Errorf("continuity tail must not be negative")
	}
	return nil
}

// TargetWords is the narrative length the text stage should aim for, derived
// from the target segment duration and the speaking rate.
func (c Config) TargetWords() int {
	return int(c.TargetSegment.Minutes() * float64(c.WordsPerMinute))
}
