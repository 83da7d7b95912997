package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Account is an identity-provider account as returned after creation or sign-in.
type Account struct {
	UID         string
	Email       string
	DisplayName string
	IDToken     string // Only set by sign-in
}

// TokenInfo holds the verified claims of a Firebase ID token.
type TokenInfo struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// FirebaseConfig selects the Firebase project and credentials.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string // empty → Application Default Credentials
	APIKey          string // needed only for email/password sign-in
}

// Firebase is the identity provider backed by the Firebase Admin SDK.
// Password sign-in is not part of the Admin SDK, so it goes through the
// Identity Toolkit REST API (see PasswordVerifier).
type Firebase struct {
	client   *auth.Client
	password *PasswordVerifier
	logger   *slog.Logger
}

// NewFirebase initialises the Admin SDK and, when an API key is configured,
// the password verifier.
func NewFirebase(ctx context.Context, cfg FirebaseConfig, logger *slog.Logger) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}

	f := &Firebase{client: client, logger: logger.With("component", "firebase")}
	if cfg.APIKey != "" {
		f.password, err = NewPasswordVerifier(ctx, option.WithAPIKey(cfg.APIKey))
		if err != nil {
			return nil, err
		}
	} else {
		f.logger.Warn("FIREBASE_API_KEY not set; password sign-in is disabled")
	}
	return f, nil
}

// CreateAccount creates a Firebase user with the given credentials.
func (f *Firebase) CreateAccount(ctx context.Context, email, password, displayName string) (*Account, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	rec, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return nil, mapAdminError("create account", err)
	}
	return &Account{UID: rec.UID, Email: rec.Email, DisplayName: rec.DisplayName}, nil
}

// DeleteAccount removes the Firebase user uid. Used to undo a CreateAccount.
func (f *Firebase) DeleteAccount(ctx context.Context, uid string) error {
	if err := f.client.DeleteUser(ctx, uid); err != nil {
		return mapAdminError("delete account", err)
	}
	return nil
}

// VerifyToken checks a Firebase ID token's signature, audience and expiry.
func (f *Firebase) VerifyToken(ctx context.Context, idToken string) (*TokenInfo, error) {
	tok, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, newError("verify token", CodeTokenExpired, err)
		}
		return nil, newError("verify token", CodeTokenInvalid, err)
	}

	email, _ := tok.Claims["email"].(string)
	name, _ := tok.Claims["name"].(string)
	verified, _ := tok.Claims["email_verified"].(bool)
	return &TokenInfo{
		UID:           tok.UID,
		Email:         email,
		DisplayName:   name,
		EmailVerified: verified,
	}, nil
}

// SignInWithPassword verifies email/password credentials.
func (f *Firebase) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	if f.password == nil {
		return nil, newError("sign in", CodeUnknown, errors.New("password sign-in is not configured"))
	}
	return f.password.SignInWithPassword(ctx, email, password)
}

// mapAdminError reduces an Admin SDK error to a Code. The SDK validates some
// arguments locally and returns plain errors for those, so their text is
// matched as well.
func mapAdminError(op string, err error) error {
	msg := err.Error()
	switch {
	case auth.IsEmailAlreadyExists(err):
		return newError(op, CodeEmailInUse, err)
	case auth.IsInvalidEmail(err), strings.Contains(msg, "malformed email"):
		return newError(op, CodeInvalidEmail, err)
	case auth.IsUserNotFound(err):
		return newError(op, CodeUserNotFound, err)
	case strings.Contains(msg, "password must be"), strings.Contains(msg, "WEAK_PASSWORD"):
		return newError(op, CodeWeakPassword, err)
	case strings.Contains(msg, "TOO_MANY_ATTEMPTS"):
		return newError(op, CodeTooManyRequests, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(op, CodeTimeout, err)
	}
	return newError(op, CodeUnknown, err)
}
