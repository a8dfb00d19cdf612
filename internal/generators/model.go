package generators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"trainingops/internal/models"
)

// Completer is the slice of the llm package the model generator needs
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelParams configures the llm generator
type ModelParams struct {
	Tool         string   `json:"tool"`
	Intent       string   `json:"intent"`
	Count        int      `json:"count"`
	Instructions string   `json:"instructions"`
	Examples     []string `json:"examples"`
}

// Model asks a language model for a JSON array of examples
type Model struct {
	Completer Completer
}

// Name implements Generator
func (m *Model) Name() string { return "llm" }

// Generate implements Generator
func (m *Model) Generate(ctx context.Context, params Params) ([]models.TrainingExample, error) {
	p := ModelParams{Count: 10}
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	if p.Tool == "" {
		return nil, fmt.Errorf("llm generator: tool is required")
	}
	if p.Count < 1 {
		return nil, fmt.Errorf("llm generator: count must be at least 1, got %d", p.Count)
	}

	out, err := m.Completer.Complete(ctx, buildGenerationPrompt(p))
	if err != nil {
		return nil, fmt.Errorf("llm generator: %w", err)
	}

	examples, err := parseExamples(out)
	if err != nil {
		return nil, fmt.Errorf("llm generator: %w", err)
	}
	for i := range examples {
		if examples[i].Tool == "" {
			examples[i].Tool = p.Tool
		}
		if examples[i].Intent == "" {
			examples[i].Intent = p.Intent
		}
	}
	if len(examples) > p.Count {
		examples = examples[:p.Count]
	}
	return examples, nil
}

func buildGenerationPrompt(p ModelParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d training examples for the %q tool", p.Count, p.Tool)
	if p.Intent != "" {
		fmt.Fprintf(&b, " with intent %q", p.Intent)
	}
	b.WriteString(".\n")
	if p.Instructions != "" {
		b.WriteString(p.Instructions)
		b.WriteString("\n")
	}
	if len(p.Examples) > 0 {
		b.WriteString("Example user queries:\n")
		for _, e := range p.Examples {
			b.WriteString("- ")
			b.WriteString(e)
			b.WriteString("\n")
		}
	}
	b.WriteString(`Answer with only a JSON array of objects with the keys "tool", "intent", "query" and "response".`)
	return b.String()
}

// parseExamples extracts the outermost JSON array from a completion
func parseExamples(out string) ([]models.TrainingExample, error) {
	start := strings.Index(out, "[")
	end := strings.LastIndex(out, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("completion contains no JSON array")
	}
	var examples []models.TrainingExample
	if err := json.Unmarshal([]byte(out[start:end+1]), &examples); err != nil {
		return nil, fmt.Errorf("completion is not a valid example array: %w", err)
	}
	return examples, nil
}
