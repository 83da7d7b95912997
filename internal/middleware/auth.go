// Package middleware contains HTTP middleware functions for the Match Point League API.
// Middleware sits between the HTTP server and route handlers. It runs on every
// request that passes through it, which makes it the right place for
// authentication, role checks and rate limiting.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trentd187/match-point-league/internal/identity"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/session"
	"github.com/trentd187/match-point-league/internal/store"
)

// Keys under which Auth stores the caller in c.Locals.
const (
	LocalUserID      = "userID"      // users.id as a string
	LocalFirebaseUID = "firebaseUID" // identity-provider UID
	LocalUserEmail   = "userEmail"
	LocalUserRole    = "userRole"
)

type sessionParser interface {
	Parse(token string) (*session.Claims, error)
}

type idTokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (*identity.TokenInfo, error)
}

type profileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthDeps are the collaborators of Auth. Firebase may be nil, in which case
// only session tokens are accepted.
type AuthDeps struct {
	Sessions sessionParser
	Firebase idTokenVerifier
	Profiles profileLookup
	Logger   *slog.Logger
}

// Auth returns a Fiber middleware handler that:
//  1. Reads the token from the "Authorization: Bearer <token>" header
//  2. Accepts it as one of our session tokens (minted at sign-in) or, failing
//     that, as a Firebase ID token issued directly to the mobile app
//  3. Loads the caller's profile row, which is the source of truth for the role
//  4. Stores the caller's profile ID, UID, email and role in c.Locals so
//     downstream handlers can read them without re-parsing the token
func Auth(deps AuthDeps) fiber.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth")

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		ctx := c.UserContext()

		var (
			user *models.User
			err  error
		)
		if claims, perr := deps.Sessions.Parse(token); perr == nil {
			id, idErr := claims.ProfileID()
			if idErr != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid token subject",
				})
			}
			user, err = deps.Profiles.GetByID(ctx, id)
		} else if deps.Firebase != nil {
			info, verr := deps.Firebase.VerifyToken(ctx, token)
			if verr != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": identity.MessageFor(verr),
				})
			}
			user, err = deps.Profiles.GetByEmail(ctx, info.Email)
		} else {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		switch {
		case errors.Is(err, store.ErrNotFound):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "profile not found",
			})
		case err != nil:
			logger.Error("loading caller profile failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "database error",
			})
		case user.IsDeleted:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "account deactivated",
			})
		}

		c.Locals(LocalUserID, user.ID.String())
		c.Locals(LocalFirebaseUID, user.FirebaseUID)
		c.Locals(LocalUserEmail, user.Email)
		c.Locals(LocalUserRole, string(user.Role))

		return c.Next()
	}
}
