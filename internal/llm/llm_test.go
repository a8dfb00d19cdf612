package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, p := range m.Parts {
			if text, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, text.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New("anthropic", "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKey))
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New("cohere", "key", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestModel_Complete(t *testing.T) {
	backend := &fakeModel{reply: "hello"}
	m := NewWithModel(ProviderOpenAI, "gpt-test", backend)

	out, err := m.Complete(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, []string{"say hello"}, backend.prompts)
	assert.Equal(t, "openai/gpt-test", m.Name())
}

func TestModel_CompleteError(t *testing.T) {
	m := NewWithModel(ProviderOpenAI, "gpt-test", &fakeModel{err: errors.New("quota exceeded")})
	_, err := m.Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai/gpt-test")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestPing(t *testing.T) {
	out, err := Ping(context.Background(), Func(func(ctx context.Context, prompt string) (string, error) {
		return "  pong\n", nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "pong", out)

	_, err = Ping(context.Background(), Func(func(ctx context.Context, prompt string) (string, error) {
		return "   ", nil
	}))
	assert.Error(t, err)
}
