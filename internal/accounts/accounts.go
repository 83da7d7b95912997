// Package accounts creates and signs in league members. An account lives in
// two systems: the identity provider holds the credentials and the users
// table holds the profile. SignUp keeps them consistent by deleting the
// identity account again whenever the profile cannot be written.
package accounts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trentd187/match-point-league/internal/identity"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/validation"
)

// User-facing messages. Raw provider or database text never leaves this package.
const (
	MsgInvalidInput    = "Please correct the highlighted fields."
	MsgAccountExists   = "An account with this email already exists."
	MsgMissingInfo     = "Some required information is missing. Please complete every field."
	MsgInvalidSkill    = "Skill level must be between 1.0 and 5.5 in 0.5 increments"
	MsgInvalidSport    = "Preferred sport must be tennis, pickleball or both"
	MsgInvalidProfile  = "Some of the profile information is not valid."
	MsgTryLater        = "We couldn't save your profile right now. Please try again later."
	MsgSignUpFailed    = "Something went wrong creating your account. Please try again."
	MsgIncomplete      = "Your account was created, but some profile details may be incomplete. Please review your profile."
	MsgMissingLogin    = "Email and password are required."
	MsgProfileNotFound = "No profile found for this account. Please sign up first."
	MsgDeactivated     = "This account has been deactivated."
	MsgSignInFailed    = "Something went wrong signing you in. Please try again."
)

// Failure tells the HTTP layer which kind of failure a result carries.
type Failure string

const (
	FailureNone         Failure = ""
	FailureValidation   Failure = "validation"
	FailureConflict     Failure = "conflict"
	FailureIdentity     Failure = "identity"
	FailureUnavailable  Failure = "unavailable"
	FailureUnauthorized Failure = "unauthorized"
	FailureNotFound     Failure = "not_found"
	FailureDisabled     Failure = "disabled"
	FailureRateLimited  Failure = "rate_limited"
	FailureInternal     Failure = "internal"
)

// SignUpResult is the outcome of SignUp. UserID is the identity-provider UID;
// ProfileID is the primary key of the users row.
type SignUpResult struct {
	Success     bool              `json:"success"`
	UserID      string            `json:"userId,omitempty"`
	ProfileID   string            `json:"profileId,omitempty"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Warning     string            `json:"warning,omitempty"`
	Failure     Failure           `json:"-"`
}

// SignInResult is the outcome of SignIn.
type SignInResult struct {
	Success bool     `json:"success"`
	Token   string   `json:"token,omitempty"`
	Profile *Profile `json:"profile,omitempty"`
	Error   string   `json:"error,omitempty"`
	Failure Failure  `json:"-"`
}

// Profile is the public view of a users row.
type Profile struct {
	ID                 uuid.UUID `json:"id"`
	UID                string    `json:"uid"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	DisplayName        string    `json:"displayName"`
	SkillLevel         float64   `json:"skillLevel"`
	PreferredSport     string    `json:"preferredSport"`
	IsCompetitive      bool      `json:"isCompetitive"`
	City               string    `json:"city"`
	ZipCode            string    `json:"zipCode"`
	AllowDirectContact bool      `json:"allowDirectContact"`
	Role               string    `json:"role"`
	CreatedAt          time.Time `json:"createdAt"`
}

// NewProfile builds the public view of u.
func NewProfile(u *models.User) *Profile {
	return &Profile{
		ID:                 u.ID,
		UID:                u.FirebaseUID,
		Email:              u.Email,
		Name:               u.Name,
		DisplayName:        u.DisplayName,
		SkillLevel:         u.SkillLevel,
		PreferredSport:     string(u.PreferredSport),
		IsCompetitive:      u.IsCompetitive,
		City:               u.City,
		ZipCode:            u.ZipCode,
		AllowDirectContact: u.AllowDirectContact,
		Role:               string(u.Role),
		CreatedAt:          u.CreatedAt,
	}
}

type identityProvider interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (*identity.Account, error)
	DeleteAccount(ctx context.Context, uid string) error
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Account, error)
}

type userStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type registrationValidator interface {
	ValidateRegistration(ctx context.Context, req validation.RegistrationRequest) validation.Result
}

type tokenMinter interface {
	Mint(u *models.User) (string, error)
}

// ServiceDeps are the collaborators of a Service.
type ServiceDeps struct {
	Identity  identityProvider
	Users     userStore
	Validator registrationValidator
	Tokens    tokenMinter
	Logger    *slog.Logger

	SignupTimeout  time.Duration // Bounds validation and identity-account creation
	StoreRetries   int           // Total insert attempts on transient errors
	StoreRetryBase time.Duration // First backoff delay, doubled per retry
}

// Service runs the sign-up and sign-in workflows.
type Service struct {
	identity  identityProvider
	users     userStore
	validator registrationValidator
	tokens    tokenMinter
	logger    *slog.Logger

	signupTimeout  time.Duration
	storeRetries   int
	storeRetryBase time.Duration
}

// NewService returns a Service. Zero durations and counts fall back to 30s
// signup timeout, 3 attempts and a 1s first delay.
func NewService(deps ServiceDeps) *Service {
	s := &Service{
		identity:       deps.Identity,
		users:          deps.Users,
		validator:      deps.Validator,
		tokens:         deps.Tokens,
		logger:         deps.Logger,
		signupTimeout:  deps.SignupTimeout,
		storeRetries:   deps.StoreRetries,
		storeRetryBase: deps.StoreRetryBase,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "accounts")
	if s.signupTimeout <= 0 {
		s.signupTimeout = 30 * time.Second
	}
	if s.storeRetries < 1 {
		s.storeRetries = 3
	}
	if s.storeRetryBase <= 0 {
		s.storeRetryBase = time.Second
	}
	return s
}
