package middleware

// roles.go holds role-based access control (RBAC).
// The app has three roles: admin, organizer and player (see models.UserRole).

import (
	"github.com/gofiber/fiber/v2"
	"github.com/trentd187/match-point-league/internal/models"
)

// RequireRole returns a middleware handler that allows only users whose role
// matches one of the provided roles. Anyone else gets 403 Forbidden.
//
//	api.Post("/courts", middleware.RequireRole(models.UserRoleAdmin, models.UserRoleOrganizer), handlers.CreateCourt(db))
//
// RequireRole must be used AFTER Auth, which populates the role in c.Locals.
func RequireRole(roles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole, ok := c.Locals(LocalUserRole).(string)
		if !ok || userRole == "" {
			// Auth was not applied or did not set a role; authenticated or not,
			// the caller has no permissions here.
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}

		for _, role := range roles {
			if userRole == string(role) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions",
		})
	}
}
