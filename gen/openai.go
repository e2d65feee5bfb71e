package gen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIConfig configures the OpenAI-compatible text generator. BaseURL may
// point at any chat-completions compatible server.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	HTTPClient  *http.Client

	// RequestsPerMinute caps outgoing calls. Zero disables the limiter.
	RequestsPerMinute int
}

// OpenAIGenerator implements TextGenerator against an OpenAI-compatible
// chat-completions endpoint.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	temp    float32
	limiter *rate.Limiter
}

// NewOpenAIGenerator creates a text generator from the given config.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	} else {
		config.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}

	g := &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		temp:   cfg.Temperature,
	}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return g, nil
}

// Generate implements TextGenerator.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temp,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	text := resp.Choices[0].Message.Content
	log.Debug("text generation complete",
		"model", g.model,
		"chars", len(text),
		"elapsed", time.Since(start))
	return text, nil
}
