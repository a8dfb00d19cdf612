package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the backend answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	backend Pinger
	timeout time.Duration
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(backend Pinger) *HealthHandler {
	return &HealthHandler{backend: backend, timeout: 3 * time.Second}
}

// Handle responds with server health status. An unreachable backend reports
// "degraded" with 503 so load balancers can act on it.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	status, backend, code := "healthy", "ok", fiber.StatusOK
	if err := h.backend.Ping(ctx); err != nil {
		log.Printf("⚠️  [HEALTH] Backend ping failed: %v", err)
		status, backend, code = "degraded", "unreachable", fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"backend":   backend,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
