package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"trainingops/internal/llm"
	"trainingops/internal/models"
)

const (
	maxQueryMatches  = 5
	maxQueryKeywords = 6
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "that": true,
	"this": true, "what": true, "how": true, "can": true, "you": true, "please": true,
	"into": true, "all": true, "are": true, "get": true, "show": true, "give": true,
}

// QueryResult is the answer to one processed operator query
type QueryResult struct {
	Query    string                   `json:"query"`
	Response string                   `json:"response"`
	Tool     string                   `json:"tool,omitempty"`
	Intent   string                   `json:"intent,omitempty"`
	Matches  []models.TrainingExample `json:"matches"`
	Model    string                   `json:"model,omitempty"`
}

// QueryService answers a query with few-shot examples drawn from training_data
type QueryService struct {
	training  *TrainingService
	completer llm.Completer
	model     string
}

// NewQueryService creates a query processor; model is recorded on results
func NewQueryService(training *TrainingService, completer llm.Completer, model string) *QueryService {
	return &QueryService{training: training, completer: completer, model: model}
}

// Process finds similar examples, prompts the model with them and returns its answer.
// Tool and intent are copied from the best match.
func (s *QueryService) Process(ctx context.Context, query string) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	matches, err := s.training.Search(ctx, Keywords(query), maxQueryMatches)
	if err != nil {
		return nil, err
	}

	response, err := s.completer.Complete(ctx, buildQueryPrompt(query, matches))
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Query:    query,
		Response: strings.TrimSpace(response),
		Matches:  matches,
		Model:    s.model,
	}
	if result.Matches == nil {
		result.Matches = []models.TrainingExample{}
	}
	if len(matches) > 0 {
		result.Tool = matches[0].Tool
		result.Intent = matches[0].Intent
	}
	return result, nil
}

// Save stores a result as an inactive example for later review
func (s *QueryService) Save(ctx context.Context, result *QueryResult) (*models.TrainingExample, error) {
	now := time.Now().UTC()
	example := models.TrainingExample{
		Tool:     result.Tool,
		Intent:   result.Intent,
		Query:    result.Query,
		Response: result.Response,
		IsActive: false,
		Metadata: map[string]interface{}{
			"source":       "query",
			"model":        result.Model,
			"matched":      len(result.Matches),
			"processed_at": now.Format(time.RFC3339),
		},
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	stored, err := s.training.Insert(ctx, example)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return &example, nil
	}
	return &stored[0], nil
}

// Keywords extracts distinct lower-case search words of four or more letters
func Keywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		if len([]rune(f)) < 4 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
		if len(out) == maxQueryKeywords {
			break
		}
	}
	return out
}

func buildQueryPrompt(query string, examples []models.TrainingExample) string {
	var b strings.Builder
	b.WriteString("You translate user requests into API operations for connected tools.\n")
	if len(examples) > 0 {
		b.WriteString("Here are similar requests and their answers:\n\n")
		for i, ex := range examples {
			fmt.Fprintf(&b, "Example %d (tool: %s, intent: %s)\nQuery: %s\nResponse: %s\n\n", i+1, ex.Tool, ex.Intent, ex.Query, ex.Response)
		}
	}
	fmt.Fprintf(&b, "Query: %s\nResponse:", query)
	return b.String()
}
