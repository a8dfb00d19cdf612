package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"trainingops/internal/middleware"
	"trainingops/internal/services"
)

// AnalyticsHandler serves the per-user analytics procedures
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
	timeout   time.Duration
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, timeout: 10 * time.Second}
}

// Usage returns usage statistics for the caller
// GET /api/analytics/usage
func (h *AnalyticsHandler) Usage(c *fiber.Ctx) error {
	return h.serve(c, "usage", func(ctx context.Context, userID string) (interface{}, error) {
		return h.analytics.Usage(ctx, userID)
	})
}

// Comparison returns training-vs-live figures for the caller
// GET /api/analytics/comparison
func (h *AnalyticsHandler) Comparison(c *fiber.Ctx) error {
	return h.serve(c, "comparison", func(ctx context.Context, userID string) (interface{}, error) {
		return h.analytics.Comparison(ctx, userID)
	})
}

// Effectiveness returns rating-based effectiveness metrics for the caller
// GET /api/analytics/effectiveness
func (h *AnalyticsHandler) Effectiveness(c *fiber.Ctx) error {
	return h.serve(c, "effectiveness", func(ctx context.Context, userID string) (interface{}, error) {
		return h.analytics.Effectiveness(ctx, userID)
	})
}

func (h *AnalyticsHandler) serve(c *fiber.Ctx, name string, fetch func(ctx context.Context, userID string) (interface{}, error)) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	result, err := fetch(ctx, userID)
	if err != nil {
		log.Printf("❌ [ANALYTICS-API] Failed to load %s for %s: %v", name, userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load " + name + " analytics",
		})
	}
	return c.JSON(result)
}
