package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the app-wide catch-all for errors a handler returns instead
// of writing a response itself. Fiber errors (404 for unknown routes, 405, body
// too large) keep their status; anything else is logged and becomes a generic 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	logger = logger.With("component", "http")
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		logger.Error("unhandled error",
			"method", c.Method(),
			"path", c.Path(),
			"error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}

// badRequest writes a 400 with either a single message or a field → message map.
func badRequest(c *fiber.Ctx, msg string, fields map[string]string) error {
	body := fiber.Map{"error": msg}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
