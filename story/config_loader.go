package story

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the engine configuration from Viper, starting
// from defaults and overriding only keys that are set.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("story.lookahead") {
		cfg.Lookahead = viper.GetInt("story.lookahead")
	}
	if viper.IsSet("story.words_per_minute") {
		cfg.WordsPerMinute = viper.GetInt("story.words_per_minute")
	}
	if viper.IsSet("story.style") {
		cfg.Style = viper.GetString("story.style")
	}
	if viper.IsSet("story.voice") {
		cfg.Voice = viper.GetString("story.voice")
	}
	if viper.IsSet("story.target_segment") {
		if d, err := time.ParseDuration(viper.GetString("story.target_segment")); err == nil {
			cfg.TargetSegment = d
		}
	}
	if viper.IsSet("story.text_timeout") {
		if d, err := time.ParseDuration(viper.GetString("story.text_timeout")); err == nil {
			cfg.TextTimeout = d
		}
	}
	if viper.IsSet("story.audio_timeout") {
		if d, err := time.ParseDuration(viper.GetString("story.audio_timeout")); err == nil {
			cfg.AudioTimeout = d
		}
	}
	if viper.IsSet("story.retry_delay") {
		if d, err := time.ParseDuration(viper.GetString("story.retry_delay")); err == nil {
			cfg.RetryDelay = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid story configuration: %w", err)
	}
	return cfg, nil
}
