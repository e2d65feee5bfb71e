package gen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// The speech endpoint returns raw little-endian PCM16 at a fixed rate when
// asked for the pcm response format.
const speechSampleRate = 24000

// SpeechConfig configures the OpenAI-compatible speech synthesizer.
type SpeechConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Speed      float64
	HTTPClient *http.Client

	// RequestsPerMinute caps outgoing calls. Zero disables the limiter.
	RequestsPerMinute int
}

// SpeechSynthesizer implements Synthesizer against an OpenAI-compatible
// audio/speech endpoint, requesting raw PCM output.
type SpeechSynthesizer struct {
	client  *openai.Client
	model   openai.SpeechModel
	speed   float64
	limiter *rate.Limiter
}

// NewSpeechSynthesizer creates a speech synthesizer from the given config.
func NewSpeechSynthesizer(cfg SpeechConfig) (*SpeechSynthesizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.TTSModel1)
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	} else {
		config.HTTPClient = &http.Client{Timeout: 150 * time.Second}
	}

	s := &SpeechSynthesizer{
		client: openai.NewClientWithConfig(config),
		model:  openai.SpeechModel(cfg.Model),
		speed:  cfg.Speed,
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return s, nil
}

// Synthesize implements Synthesizer.
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text, voice string) (Clip, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Clip{}, err
		}
	}
	if voice == "" {
		voice = string(openai.VoiceNova)
	}

	start := time.Now()
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          s.speed,
	})
	if err != nil {
		return Clip{}, fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return Clip{}, fmt.Errorf("reading speech payload: %w", err)
	}

	log.Debug("speech synthesis complete",
		"voice", voice,
		"bytes", len(data),
		"elapsed", time.Since(start))
	return Clip{Data: data, SampleRate: speechSampleRate}, nil
}
