package handlers

import (
	"github.com/gofiber/fiber/v2"

	"trainingops/internal/middleware"
	"trainingops/pkg/auth"
)

// Routes bundles the handlers the server mounts
type Routes struct {
	Health    *HealthHandler
	Analytics *AnalyticsHandler
	Feedback  *FeedbackHandler
	Verifier  *auth.Verifier
	RateLimit *middleware.RateLimitConfig
}

// Mount registers every route on app
func (r Routes) Mount(app *fiber.App) {
	app.Get("/health", r.Health.Handle)

	limits := r.RateLimit
	if limits == nil {
		limits = middleware.DefaultRateLimitConfig()
	}

	api := app.Group("/api", middleware.GlobalAPIRateLimiter(limits))
	authed := middleware.AuthMiddleware(r.Verifier)

	analytics := api.Group("/analytics", authed)
	analytics.Get("/usage", r.Analytics.Usage)
	analytics.Get("/comparison", r.Analytics.Comparison)
	analytics.Get("/effectiveness", r.Analytics.Effectiveness)

	api.Post("/feedback/:id", authed, middleware.AuthenticatedRateLimiter(limits), r.Feedback.Submit)
}
