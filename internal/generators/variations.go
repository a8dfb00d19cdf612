package generators

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"trainingops/internal/models"
)

// ExampleSource supplies the active examples the variations generator rephrases
type ExampleSource interface {
	ActiveExamples(ctx context.Context, tool string, limit int) ([]models.TrainingExample, error)
}

// VariationParams configures the variations generator
type VariationParams struct {
	Tool     string   `json:"tool"`
	Limit    int      `json:"limit"`
	Prefixes []string `json:"prefixes"`
}

var defaultPrefixes = []string{
	"Can you %s",
	"Please %s",
	"I need to %s",
}

// Variations rephrases existing active examples with fixed prefixes
type Variations struct {
	Source ExampleSource
}

// Name implements Generator
func (v *Variations) Name() string { return "variations" }

// Generate implements Generator
func (v *Variations) Generate(ctx context.Context, params Params) ([]models.TrainingExample, error) {
	p := VariationParams{Limit: 20}
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	prefixes := p.Prefixes
	if len(prefixes) == 0 {
		prefixes = defaultPrefixes
	}

	sources, err := v.Source.ActiveExamples(ctx, p.Tool, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("variations generator: failed to load examples: %w", err)
	}

	var out []models.TrainingExample
	for _, src := range sources {
		base := strings.TrimRight(strings.TrimSpace(src.Query), "?.!")
		if base == "" {
			continue
		}
		for _, prefix := range prefixes {
			if !strings.Contains(prefix, "%s") {
				prefix += " %s"
			}
			out = append(out, models.TrainingExample{
				Tool:             src.Tool,
				Intent:           src.Intent,
				Query:            fmt.Sprintf(prefix, lowerFirst(base)),
				Response:         src.Response,
				Systems:          src.Systems,
				Workflow:         src.Workflow,
				ExecutionDetails: src.ExecutionDetails,
				Metadata:         map[string]interface{}{"variation_of": src.ID},
			})
		}
	}
	return out, nil
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	// Leave acronyms such as "API ..." alone
	if next, _ := utf8.DecodeRuneInString(s[size:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
