// Package llm wraps the external language-model providers used for query
// processing and model-backed generation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrMissingKey is returned by New when the provider key is empty
var ErrMissingKey = errors.New("llm provider API key not set")

// Provider names accepted by New
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default models per provider
var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// Completer turns a prompt into a single completion
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Model is a Completer backed by a langchaingo model
type Model struct {
	provider    string
	model       string
	llm         llms.Model
	temperature float64
	maxTokens   int
}

// Option customizes a Model
type Option func(*Model)

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) Option {
	return func(m *Model) { m.temperature = t }
}

// WithMaxTokens caps the completion length
func WithMaxTokens(n int) Option {
	return func(m *Model) { m.maxTokens = n }
}

// New builds a model for provider. An empty model name selects the provider default.
func New(provider, apiKey, model string, opts ...Option) (*Model, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", provider, ErrMissingKey)
	}
	if model == "" {
		model = defaultModels[provider]
	}

	var (
		backend llms.Model
		err     error
	)
	switch provider {
	case ProviderOpenAI:
		backend, err = openai.New(
			openai.WithModel(model),
			openai.WithToken(apiKey),
		)
	case ProviderAnthropic:
		backend, err = anthropic.New(
			anthropic.WithModel(model),
			anthropic.WithToken(apiKey),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s model: %w", provider, err)
	}

	return NewWithModel(provider, model, backend, opts...), nil
}

// NewWithModel wraps an already constructed langchaingo model
func NewWithModel(provider, model string, backend llms.Model, opts ...Option) *Model {
	m := &Model{
		provider:    provider,
		model:       model,
		llm:         backend,
		temperature: 0.2,
		maxTokens:   1024,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns "provider/model"
func (m *Model) Name() string {
	return m.provider + "/" + m.model
}

// Complete sends prompt as a single human message
func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt,
		llms.WithTemperature(m.temperature),
		llms.WithMaxTokens(m.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", m.Name(), err)
	}
	return out, nil
}

// Ping checks that the provider answers with a non-empty completion
func Ping(ctx context.Context, c Completer) (string, error) {
	out, err := c.Complete(ctx, "Reply with the single word: pong")
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("provider returned an empty completion")
	}
	return out, nil
}

// Func adapts a plain function to Completer
type Func func(ctx context.Context, prompt string) (string, error)

// Complete calls f
func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
