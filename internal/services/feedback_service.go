package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

var (
	// ErrExampleNotFound is returned when feedback targets a missing row
	ErrExampleNotFound = errors.New("training example not found")
	// ErrInvalidFeedback is returned for an unknown field or out-of-range rating
	ErrInvalidFeedback = errors.New("invalid feedback")
)

// FeedbackService records per-field ratings on training examples
type FeedbackService struct {
	client *supabase.Client
	table  string
}

// NewFeedbackService creates a feedback service
func NewFeedbackService(client *supabase.Client) *FeedbackService {
	return &FeedbackService{client: client, table: models.TableTrainingData}
}

// Submit writes the rating and feedback text for one field of example id
func (s *FeedbackService) Submit(ctx context.Context, id int64, req models.FeedbackRequest) (*models.TrainingExample, error) {
	if !req.Field.Valid() {
		return nil, fmt.Errorf("%w: field must be query, response or endpoint", ErrInvalidFeedback)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidFeedback)
	}

	res, err := s.client.From(s.table).Eq("id", id).Update(ctx, map[string]interface{}{
		req.Field.RatingColumn():   req.Rating,
		req.Field.FeedbackColumn(): req.Feedback,
		"updated_at":               time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record feedback on %d: %w", id, err)
	}

	var rows []models.TrainingExample
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrExampleNotFound, id)
	}
	return &rows[0], nil
}
