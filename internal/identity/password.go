package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// PasswordVerifier checks email/password credentials against the Identity
// Toolkit API that backs Firebase email sign-in.
type PasswordVerifier struct {
	svc *identitytoolkit.Service
}

// NewPasswordVerifier builds the Identity Toolkit client. Production passes
// option.WithAPIKey; tests point it at a local server with option.WithEndpoint
// and option.WithHTTPClient.
func NewPasswordVerifier(ctx context.Context, opts ...option.ClientOption) (*PasswordVerifier, error) {
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init identity toolkit: %w", err)
	}
	return &PasswordVerifier{svc: svc}, nil
}

// SignInWithPassword returns the account for valid credentials along with a
// fresh Firebase ID token.
func (p *PasswordVerifier) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	resp, err := p.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapSignInError(err)
	}
	return &Account{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		IDToken:     resp.IdToken,
	}, nil
}

// signInReasons maps Identity Toolkit error reasons to codes.
var signInReasons = map[string]Code{
	"EMAIL_NOT_FOUND":             CodeUserNotFound,
	"INVALID_PASSWORD":            CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":   CodeWrongPassword,
	"USER_DISABLED":               CodeUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER": CodeTooManyRequests,
	"INVALID_EMAIL":               CodeInvalidEmail,
}

// mapSignInError reads the reason from the API error message. Reasons may be
// followed by " : <detail>", e.g. "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this
// account has been temporarily disabled".
func mapSignInError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := strings.TrimSpace(strings.SplitN(gerr.Message, ":", 2)[0])
		if code, ok := signInReasons[reason]; ok {
			return newError("sign in", code, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError("sign in", CodeTimeout, err)
	}
	return newError("sign in", CodeUnknown, err)
}
