package services

import (
	"context"
	"fmt"
	"strings"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

// TrainingService reads and writes training_data rows
type TrainingService struct {
	client *supabase.Client
	table  string
}

// NewTrainingService creates a training data service
func NewTrainingService(client *supabase.Client) *TrainingService {
	return &TrainingService{client: client, table: models.TableTrainingData}
}

// ActiveExamples returns up to limit active examples, newest first, optionally for one tool
func (s *TrainingService) ActiveExamples(ctx context.Context, tool string, limit int) ([]models.TrainingExample, error) {
	q := s.client.From(s.table).Eq("is_active", true).Order("created_at", false)
	if tool != "" {
		q = q.Eq("tool", tool)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.fetch(ctx, q)
}

// Search returns active examples whose query contains any of the keywords
func (s *TrainingService) Search(ctx context.Context, keywords []string, limit int) ([]models.TrainingExample, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	terms := make([]string, len(keywords))
	for i, kw := range keywords {
		terms[i] = "query.ilike.*" + kw + "*"
	}
	q := s.client.From(s.table).
		Eq("is_active", true).
		Or(strings.Join(terms, ",")).
		Limit(limit)
	return s.fetch(ctx, q)
}

// Insert writes examples in one request and returns the stored rows
func (s *TrainingService) Insert(ctx context.Context, examples ...models.TrainingExample) ([]models.TrainingExample, error) {
	res, err := s.client.From(s.table).Insert(ctx, examples)
	if err != nil {
		return nil, fmt.Errorf("failed to insert training examples: %w", err)
	}
	var stored []models.TrainingExample
	if err := res.Decode(&stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *TrainingService) fetch(ctx context.Context, q *supabase.Query) ([]models.TrainingExample, error) {
	res, err := q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	var rows []models.TrainingExample
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
