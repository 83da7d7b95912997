package handlers

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/trentd187/match-point-league/internal/accounts"
	"github.com/trentd187/match-point-league/internal/validation"
)

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) SignUp(ctx context.Context, req validation.RegistrationRequest) accounts.SignUpResult {
	return m.Called(ctx, req).Get(0).(accounts.SignUpResult)
}
func (m *mockAccounts) SignIn(ctx context.Context, email, password string) accounts.SignInResult {
	return m.Called(ctx, email, password).Get(0).(accounts.SignInResult)
}

func newAuthApp(svc accountService) *fiber.App {
	app := fiber.New()
	app.Post("/signup", SignUp(svc))
	app.Post("/signin", SignIn(svc))
	return app
}

func TestSignUpHandler_Statuses(t *testing.T) {
	cases := []struct {
		name   string
		result accounts.SignUpResult
		status int
	}{
		{"created", accounts.SignUpResult{Success: true, UserID: "uid-1"}, fiber.StatusCreated},
		{"created with warning", accounts.SignUpResult{Success: true, UserID: "uid-1", Warning: accounts.MsgIncomplete}, fiber.StatusCreated},
		{"field errors", accounts.SignUpResult{Error: accounts.MsgInvalidInput, FieldErrors: map[string]string{"email": "Email is required"}, Failure: accounts.FailureValidation}, fiber.StatusBadRequest},
		{"exists", accounts.SignUpResult{Error: accounts.MsgAccountExists, Failure: accounts.FailureConflict}, fiber.StatusConflict},
		{"identity down", accounts.SignUpResult{Error: "x", Failure: accounts.FailureIdentity}, fiber.StatusBadGateway},
		{"try later", accounts.SignUpResult{Error: accounts.MsgTryLater, Failure: accounts.FailureUnavailable}, fiber.StatusServiceUnavailable},
		{"internal", accounts.SignUpResult{Error: accounts.MsgSignUpFailed, Failure: accounts.FailureInternal}, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAccounts{}
			svc.On("SignUp", mock.Anything, mock.MatchedBy(func(r validation.RegistrationRequest) bool {
				return r.Email == "a@b.com" && r.SkillLevel == 3.0 && len(r.PreferredSports) == 1
			})).Return(tc.result).Once()

			status, body := doJSON(t, newAuthApp(svc), fiber.MethodPost, "/signup", map[string]interface{}{
				"email":           "a@b.com",
				"skillLevel":      3.0,
				"preferredSports": []string{"tennis"},
			})

			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.result.Success, body["success"])
			if tc.result.Warning != "" {
				assert.Equal(t, tc.result.Warning, body["warning"])
			}
			if tc.result.FieldErrors != nil {
				assert.Contains(t, body["fieldErrors"], "email")
			}
			assert.NotContains(t, body, "Failure")
			svc.AssertExpectations(t)
		})
	}
}

func TestSignUpHandler_BadBody(t *testing.T) {
	svc := &mockAccounts{}
	app := newAuthApp(svc)

	req := `{"email":`
	status, body := doJSON(t, app, fiber.MethodPost, "/signup", rawJSON(req))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid request body", body["error"])
	svc.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
}

func TestSignInHandler_Statuses(t *testing.T) {
	cases := []struct {
		result accounts.SignInResult
		status int
	}{
		{accounts.SignInResult{Success: true, Token: "tok"}, fiber.StatusOK},
		{accounts.SignInResult{Failure: accounts.FailureUnauthorized}, fiber.StatusUnauthorized},
		{accounts.SignInResult{Failure: accounts.FailureDisabled}, fiber.StatusForbidden},
		{accounts.SignInResult{Failure: accounts.FailureNotFound}, fiber.StatusNotFound},
		{accounts.SignInResult{Failure: accounts.FailureRateLimited}, fiber.StatusTooManyRequests},
	}
	for _, tc := range cases {
		svc := &mockAccounts{}
		svc.On("SignIn", mock.Anything, "a@b.com", "Abcdef1").Return(tc.result).Once()

		status, body := doJSON(t, newAuthApp(svc), fiber.MethodPost, "/signin",
			SignInRequest{Email: "a@b.com", Password: "Abcdef1"})

		assert.Equal(t, tc.status, status)
		if tc.result.Success {
			assert.Equal(t, "tok", body["token"])
		}
	}
}
