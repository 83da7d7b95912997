package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/trentd187/match-point-league/internal/accounts"
	"github.com/trentd187/match-point-league/internal/validation"
)

type accountService interface {
	SignUp(ctx context.Context, req validation.RegistrationRequest) accounts.SignUpResult
	SignIn(ctx context.Context, email, password string) accounts.SignInResult
}

// SignInRequest is the JSON body of POST /api/v1/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp returns a handler for POST /api/v1/auth/signup.
// The body is a validation.RegistrationRequest; the response is the
// accounts.SignUpResult with a status code chosen from its failure kind.
func SignUp(svc accountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req validation.RegistrationRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", nil)
		}

		res := svc.SignUp(c.UserContext(), req)
		if res.Success {
			return c.Status(fiber.StatusCreated).JSON(res)
		}
		return c.Status(statusFor(res.Failure)).JSON(res)
	}
}

// SignIn returns a handler for POST /api/v1/auth/signin.
func SignIn(svc accountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignInRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", nil)
		}

		res := svc.SignIn(c.UserContext(), req.Email, req.Password)
		if res.Success {
			return c.JSON(res)
		}
		return c.Status(statusFor(res.Failure)).JSON(res)
	}
}

// statusFor maps a workflow failure kind to an HTTP status.
func statusFor(f accounts.Failure) int {
	switch f {
	case accounts.FailureValidation:
		return fiber.StatusBadRequest
	case accounts.FailureConflict:
		return fiber.StatusConflict
	case accounts.FailureUnauthorized:
		return fiber.StatusUnauthorized
	case accounts.FailureDisabled:
		return fiber.StatusForbidden
	case accounts.FailureNotFound:
		return fiber.StatusNotFound
	case accounts.FailureRateLimited:
		return fiber.StatusTooManyRequests
	case accounts.FailureIdentity:
		return fiber.StatusBadGateway
	case accounts.FailureUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
