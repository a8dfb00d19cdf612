package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"trainingops/internal/middleware"
	"trainingops/internal/models"
	"trainingops/internal/services"
)

// FeedbackHandler records ratings on training examples
type FeedbackHandler struct {
	feedback *services.FeedbackService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedback *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Submit rates one field of an example
// POST /api/feedback/:id  {"field":"response","rating":4,"feedback":"..."}
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid example id",
		})
	}

	var req models.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	example, err := h.feedback.Submit(ctx, id, req)
	switch {
	case errors.Is(err, services.ErrInvalidFeedback):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrExampleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Training example not found",
		})
	case err != nil:
		log.Printf("❌ [FEEDBACK-API] Failed to record feedback on %d: %v", id, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to record feedback",
		})
	}

	log.Printf("📝 [FEEDBACK-API] %s rated %s of example %d: %d", middleware.UserID(c), req.Field, id, req.Rating)
	return c.JSON(fiber.Map{
		"id":       example.ID,
		"field":    req.Field,
		"rating":   req.Rating,
		"feedback": req.Feedback,
	})
}
