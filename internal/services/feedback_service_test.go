package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingops/internal/models"
	"trainingops/internal/supabase/supabasetest"
)

func TestFeedbackSubmit(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("training_data", map[string]interface{}{"id": 10, "tool": "slack", "query": "q", "response": "r"})
	svc := NewFeedbackService(fake.Backend())

	row, err := svc.Submit(context.Background(), 10, models.FeedbackRequest{Field: models.FeedbackResponse, Rating: 2, Feedback: "wrong channel"})
	require.NoError(t, err)
	require.NotNil(t, row.ResponseRating)
	assert.Equal(t, 2, *row.ResponseRating)
	assert.Equal(t, "wrong channel", row.ResponseFeedback)

	stored := fake.Rows("training_data")[0]
	assert.Equal(t, float64(2), stored["response_rating"])
	assert.NotContains(t, stored, "rating", "the legacy column is not written")
}

func TestFeedbackSubmit_Validation(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	svc := NewFeedbackService(fake.Backend())
	ctx := context.Background()

	_, err := svc.Submit(ctx, 1, models.FeedbackRequest{Field: "rating", Rating: 3})
	assert.True(t, errors.Is(err, ErrInvalidFeedback))

	_, err = svc.Submit(ctx, 1, models.FeedbackRequest{Field: models.FeedbackQuery, Rating: 6})
	assert.True(t, errors.Is(err, ErrInvalidFeedback))

	_, err = svc.Submit(ctx, 1, models.FeedbackRequest{Field: models.FeedbackQuery, Rating: 0})
	assert.True(t, errors.Is(err, ErrInvalidFeedback))
	assert.Empty(t, fake.Requests("", ""))

	_, err = svc.Submit(ctx, 404, models.FeedbackRequest{Field: models.FeedbackQuery, Rating: 5})
	assert.True(t, errors.Is(err, ErrExampleNotFound))
}
