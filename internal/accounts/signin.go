package accounts

import (
	"context"
	"errors"

	"github.com/trentd187/match-point-league/internal/identity"
	"github.com/trentd187/match-point-league/internal/store"
)

// SignIn checks credentials with the identity provider, loads the matching
// profile and mints a session token for it. It writes nothing.
func (s *Service) SignIn(ctx context.Context, email, password string) SignInResult {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return SignInResult{Error: MsgMissingLogin, Failure: FailureValidation}
	}

	acct, err := s.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		code := identity.CodeOf(err)
		s.logger.Info("sign in rejected by identity provider", "code", code)
		return SignInResult{Error: identity.Message(code), Failure: signInFailure(code)}
	}

	profile, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.logger.Warn("identity account has no profile", "uid", acct.UID)
		return SignInResult{Error: MsgProfileNotFound, Failure: FailureNotFound}
	case errors.Is(err, store.ErrTransient):
		s.logger.Error("profile lookup failed", "uid", acct.UID, "error", err)
		return SignInResult{Error: MsgTryLater, Failure: FailureUnavailable}
	case err != nil:
		s.logger.Error("profile lookup failed", "uid", acct.UID, "error", err)
		return SignInResult{Error: MsgSignInFailed, Failure: FailureInternal}
	}
	if profile.IsDeleted {
		return SignInResult{Error: MsgDeactivated, Failure: FailureDisabled}
	}

	token, err := s.tokens.Mint(profile)
	if err != nil {
		s.logger.Error("minting session token failed", "uid", acct.UID, "error", err)
		return SignInResult{Error: MsgSignInFailed, Failure: FailureInternal}
	}
	return SignInResult{Success: true, Token: token, Profile: NewProfile(profile)}
}

func signInFailure(code identity.Code) Failure {
	switch code {
	case identity.CodeUserNotFound:
		return FailureNotFound
	case identity.CodeWrongPassword, identity.CodeInvalidEmail:
		return FailureUnauthorized
	case identity.CodeUserDisabled:
		return FailureDisabled
	case identity.CodeTooManyRequests:
		return FailureRateLimited
	case identity.CodeTimeout:
		return FailureUnavailable
	default:
		return FailureIdentity
	}
}
