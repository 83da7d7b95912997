// Package handlers contains the HTTP route handler functions for the Match Point League API.
// Each handler corresponds to one API endpoint and is responsible for reading the
// request, calling into the domain packages, and writing a response.
//
// Most handlers follow the "handler factory" pattern: an exported function takes
// its dependencies (a *gorm.DB, a service) and returns a fiber.Handler.
package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck handles GET /health.
// It is a liveness probe: no database queries, no authentication.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready returns a handler for GET /ready. It reports 503 until ping succeeds,
// so load balancers hold traffic back while the database is unreachable.
func Ready(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  "database unreachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	}
}
