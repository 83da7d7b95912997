package accounts

import (
	"context"
	"math"
	"strings"

	"github.com/sethvargo/go-retry"
	"github.com/trentd187/match-point-league/internal/identity"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/store"
	"github.com/trentd187/match-point-league/internal/validation"
)

// SignUp registers a new member. The steps are:
//
//  1. validate the request; any field error ends here with no external call
//  2. create the identity account, bounded by the signup timeout
//  3. insert the profile row, retrying transient store errors with backoff
//  4. if the insert ultimately fails, delete the identity account again
//  5. re-read the row and compare it with what was written
//
// Steps 3 to 5 run detached from ctx's cancellation: once an identity account
// exists the workflow finishes (or compensates) even if the caller went away.
// SignUp never returns an error; every outcome is described by the result.
func (s *Service) SignUp(ctx context.Context, req validation.RegistrationRequest) SignUpResult {
	boundCtx, cancel := context.WithTimeout(ctx, s.signupTimeout)
	defer cancel()

	check := s.validator.ValidateRegistration(boundCtx, req)
	if !check.Valid {
		s.logger.Info("signup rejected by validation", "fields", len(check.Errors))
		return SignUpResult{Error: MsgInvalidInput, FieldErrors: check.Errors, Failure: FailureValidation}
	}

	profile := profileFromRequest(req, check)

	acct, err := s.identity.CreateAccount(boundCtx, profile.Email, req.Password, profile.DisplayName)
	if err != nil {
		s.logger.Warn("identity account creation failed", "code", identity.CodeOf(err), "error", err)
		return identityFailure(err)
	}
	profile.FirebaseUID = acct.UID
	log := s.logger.With("uid", acct.UID)

	detached := context.WithoutCancel(ctx)
	intended := *profile

	if err := s.persist(detached, profile); err != nil {
		log.Error("profile insert failed, compensating",
			"class", store.Classify(err).String(), "error", err)
		s.compensate(detached, acct.UID)
		return persistenceFailure(err)
	}
	log = log.With("profile_id", profile.ID.String())

	res := SignUpResult{Success: true, UserID: acct.UID, ProfileID: profile.ID.String()}
	if drift := s.verify(detached, &intended); len(drift) > 0 {
		log.Warn("stored profile differs from request", "fields", drift)
		res.Warning = MsgIncomplete
	} else {
		log.Info("signup complete")
	}
	return res
}

// profileFromRequest derives the row to insert. The request has already been
// validated, so the sport set collapses cleanly.
func profileFromRequest(req validation.RegistrationRequest, check validation.Result) *models.User {
	sport, _ := validation.CollapseSports(req.PreferredSports)
	u := &models.User{
		Email:          normalizeEmail(req.Email),
		Name:           strings.TrimSpace(req.FullName),
		DisplayName:    strings.TrimSpace(req.DisplayName),
		SkillLevel:     req.SkillLevel,
		PreferredSport: sport,
		ZipCode:        strings.TrimSpace(req.ZipCode),
		Role:           models.UserRolePlayer,
	}
	if check.CityInfo != nil {
		u.City = check.CityInfo.City
	}
	return u
}

// persist inserts u, retrying only errors that Classify reports as transient.
// The pause doubles from storeRetryBase on every retry. With the defaults
// (three attempts, 1s base) the pauses are 1s and 2s, so the longest wait is
// about 3s; the attempt cap ends the loop before a 4s pause is ever taken.
func (s *Service) persist(ctx context.Context, u *models.User) error {
	backoff := retry.WithMaxRetries(uint64(s.storeRetries-1), retry.NewExponential(s.storeRetryBase))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.users.Create(ctx, u)
		if err == nil {
			return nil
		}
		if store.Classify(err).Retryable() {
			s.logger.Warn("transient error inserting profile",
				"attempt", attempt, "max_attempts", s.storeRetries, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// compensate deletes the identity account created for a signup whose profile
// could not be stored. A failure here is logged and otherwise ignored; the
// caller reports the original persistence error.
func (s *Service) compensate(ctx context.Context, uid string) {
	if err := s.identity.DeleteAccount(ctx, uid); err != nil {
		s.logger.Error("compensation failed, identity account is orphaned",
			"uid", uid, "error", err)
		return
	}
	s.logger.Info("identity account removed after failed signup", "uid", uid)
}

// verify re-reads the profile by email and returns the names of the columns
// whose stored value differs from want. A failed read counts as a mismatch of
// every column.
func (s *Service) verify(ctx context.Context, want *models.User) []string {
	got, err := s.users.GetByEmail(ctx, want.Email)
	if err != nil {
		s.logger.Warn("could not re-read profile after insert", "error", err)
		return []string{"*"}
	}

	var drift []string
	diff := func(column string, same bool) {
		if !same {
			drift = append(drift, column)
		}
	}
	diff("firebase_uid", got.FirebaseUID == want.FirebaseUID)
	diff("email", got.Email == want.Email)
	diff("name", got.Name == want.Name)
	diff("display_name", got.DisplayName == want.DisplayName)
	diff("skill_level", math.Abs(got.SkillLevel-want.SkillLevel) < 1e-9)
	diff("preferred_sport", got.PreferredSport == want.PreferredSport)
	diff("is_competitive", got.IsCompetitive == want.IsCompetitive)
	diff("city", got.City == want.City)
	diff("zip_code", got.ZipCode == want.ZipCode)
	diff("allow_direct_contact", got.AllowDirectContact == want.AllowDirectContact)
	diff("role", got.Role == want.Role)
	return drift
}

func identityFailure(err error) SignUpResult {
	code := identity.CodeOf(err)
	msg := identity.Message(code)
	switch code {
	case identity.CodeEmailInUse:
		return SignUpResult{Error: msg, Failure: FailureConflict}
	case identity.CodeInvalidEmail:
		return SignUpResult{Error: msg, FieldErrors: map[string]string{validation.FieldEmail: msg}, Failure: FailureValidation}
	case identity.CodeWeakPassword:
		return SignUpResult{Error: msg, FieldErrors: map[string]string{validation.FieldPassword: msg}, Failure: FailureValidation}
	case identity.CodeTooManyRequests:
		return SignUpResult{Error: msg, Failure: FailureRateLimited}
	default:
		return SignUpResult{Error: msg, Failure: FailureIdentity}
	}
}

// persistenceFailure maps a classified store error to a safe message.
// Constraint names are matched but never shown.
func persistenceFailure(err error) SignUpResult {
	constraint, column := store.ConstraintOf(err)
	switch store.Classify(err) {
	case store.ClassUniqueViolation:
		return SignUpResult{Error: MsgAccountExists, Failure: FailureConflict}
	case store.ClassNotNullViolation:
		return SignUpResult{Error: MsgMissingInfo, Failure: FailureValidation}
	case store.ClassCheckViolation, store.ClassInvalidValue:
		switch {
		case strings.Contains(constraint, "skill_level") || column == "skill_level":
			return SignUpResult{
				Error:       MsgInvalidSkill,
				FieldErrors: map[string]string{validation.FieldSkillLevel: MsgInvalidSkill},
				Failure:     FailureValidation,
			}
		case strings.Contains(constraint, "preferred_sport") || column == "preferred_sport":
			return SignUpResult{
				Error:       MsgInvalidSport,
				FieldErrors: map[string]string{validation.FieldPreferredSports: MsgInvalidSport},
				Failure:     FailureValidation,
			}
		}
		return SignUpResult{Error: MsgInvalidProfile, Failure: FailureValidation}
	case store.ClassTransient:
		return SignUpResult{Error: MsgTryLater, Failure: FailureUnavailable}
	default:
		return SignUpResult{Error: MsgSignUpFailed, Failure: FailureInternal}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
