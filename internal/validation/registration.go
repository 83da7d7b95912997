// Package validation checks the structure of user-submitted data before any
// external system is involved. Registration validation never stops at the
// first problem: every field is checked and every error is reported at once.
package validation

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/zipcode"
)

// RegistrationRequest is what a client submits to sign up.
type RegistrationRequest struct {
	FullName        string   `json:"fullName"`
	Email           string   `json:"email"`
	ConfirmEmail    string   `json:"confirmEmail"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirmPassword"`
	DisplayName     string   `json:"displayName"`
	PreferredSports []string `json:"preferredSports"`
	SkillLevel      float64  `json:"skillLevel"`
	ZipCode         string   `json:"zipCode"`
}

// Field names used as keys of the error map. They match the JSON names so a
// client can attach each message to its input.
const (
	FieldFullName        = "fullName"
	FieldEmail           = "email"
	FieldConfirmEmail    = "confirmEmail"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldDisplayName     = "displayName"
	FieldPreferredSports = "preferredSports"
	FieldSkillLevel      = "skillLevel"
	FieldZipCode         = "zipCode"
)

const (
	MinSkillLevel = 1.0
	MaxSkillLevel = 5.5
	skillStep     = 0.5
	gridTolerance = 1e-9
)

var (
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipShape   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

	validate = validator.New()
)

// Result is the outcome of ValidateRegistration.
type Result struct {
	Valid    bool
	Errors   map[string]string
	CityInfo *zipcode.CityInfo // nil when the lookup was skipped or found nothing
}

// CityLookup resolves a ZIP code; the boolean reports whether a city was found.
type CityLookup interface {
	Lookup(ctx context.Context, zip string) (*zipcode.CityInfo, bool)
}

// Validator runs the structural checks and, for requests that pass them,
// the best-effort ZIP enrichment.
type Validator struct {
	lookup CityLookup
}

// New returns a Validator. lookup may be nil, in which case CityInfo is never set.
func New(lookup CityLookup) *Validator {
	return &Validator{lookup: lookup}
}

// ValidateRegistration checks every field of req. Only when all checks pass is
// the ZIP lookup attempted; its failure leaves CityInfo nil and never makes the
// request invalid.
func (v *Validator) ValidateRegistration(ctx context.Context, req RegistrationRequest) Result {
	errs := CheckRegistration(req)
	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}

	res := Result{Valid: true, Errors: map[string]string{}}
	if v.lookup != nil {
		if info, ok := v.lookup.Lookup(ctx, req.ZipCode); ok {
			res.CityInfo = info
		}
	}
	return res
}

// check is one (field, predicate, message) rule.
type check struct {
	field   string
	ok      func(r *RegistrationRequest) bool
	message string
}

// registrationChecks are evaluated in order; the first failing check of a
// field supplies that field's message and later checks for it are skipped.
var registrationChecks = []check{
	{FieldFullName, func(r *RegistrationRequest) bool { return strings.TrimSpace(r.FullName) != "" }, "Full name is required"},
	{FieldFullName, func(r *RegistrationRequest) bool { return len([]rune(strings.TrimSpace(r.FullName))) >= 2 }, "Full name must be at least 2 characters"},

	{FieldEmail, func(r *RegistrationRequest) bool { return strings.TrimSpace(r.Email) != "" }, "Email is required"},
	{FieldEmail, func(r *RegistrationRequest) bool { return ValidEmail(r.Email) }, "Please enter a valid email address"},

	{FieldConfirmEmail, func(r *RegistrationRequest) bool { return strings.TrimSpace(r.ConfirmEmail) != "" }, "Please confirm your email"},
	// Exact match: the address is lowercased only after both copies agree.
	{FieldConfirmEmail, func(r *RegistrationRequest) bool {
		return strings.TrimSpace(r.Email) == strings.TrimSpace(r.ConfirmEmail)
	}, "Emails do not match"},

	{FieldPassword, func(r *RegistrationRequest) bool { return r.Password != "" }, "Password is required"},
	{FieldPassword, func(r *RegistrationRequest) bool { return utf8.RuneCountInString(r.Password) >= 6 }, "Password must be at least 6 characters"},
	{FieldPassword, func(r *RegistrationRequest) bool { return passwordMix(r.Password) }, "Password must contain at least one uppercase letter, one lowercase letter, and one number"},

	{FieldConfirmPassword, func(r *RegistrationRequest) bool { return r.ConfirmPassword != "" }, "Please confirm your password"},
	{FieldConfirmPassword, func(r *RegistrationRequest) bool { return r.Password == r.ConfirmPassword }, "Passwords do not match"},

	{FieldDisplayName, func(r *RegistrationRequest) bool { return strings.TrimSpace(r.DisplayName) != "" }, "Display name is required"},

	{FieldPreferredSports, func(r *RegistrationRequest) bool { return len(r.PreferredSports) > 0 }, "Select at least one sport"},
	{FieldPreferredSports, func(r *RegistrationRequest) bool {
		_, ok := CollapseSports(r.PreferredSports)
		return ok
	}, "Preferred sports must be tennis or pickleball"},

	{FieldSkillLevel, func(r *RegistrationRequest) bool { return SkillInRange(r.SkillLevel) }, "Skill level must be between 1.0 and 5.5"},
	{FieldSkillLevel, func(r *RegistrationRequest) bool { return SkillOnGrid(r.SkillLevel) }, "Skill level must be in 0.5 increments"},

	{FieldZipCode, func(r *RegistrationRequest) bool { return strings.TrimSpace(r.ZipCode) != "" }, "ZIP code is required"},
	{FieldZipCode, func(r *RegistrationRequest) bool { return ValidZip(r.ZipCode) }, "Please enter a valid US ZIP code"},
}

// CheckRegistration runs every structural check and returns the field errors.
// An empty map means the request is structurally valid. It performs no I/O.
func CheckRegistration(req RegistrationRequest) map[string]string {
	errs := make(map[string]string)
	for _, c := range registrationChecks {
		if _, failed := errs[c.field]; failed {
			continue
		}
		if !c.ok(&req) {
			errs[c.field] = c.message
		}
	}
	return errs
}

// ValidEmail reports whether s has the local@domain.tld shape and passes the
// RFC 5322 check of the validator package.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return emailShape.MatchString(s) && validate.Var(s, "email") == nil
}

// ValidZip reports whether s is a 5-digit or ZIP+4 US ZIP code.
func ValidZip(s string) bool {
	return zipShape.MatchString(strings.TrimSpace(s))
}

// SkillInRange reports whether v is within [1.0, 5.5].
func SkillInRange(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= MinSkillLevel-gridTolerance && v <= MaxSkillLevel+gridTolerance
}

// SkillOnGrid reports whether v is a multiple of 0.5, within float tolerance.
func SkillOnGrid(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	steps := v / skillStep
	return math.Abs(steps-math.Round(steps)) < gridTolerance
}

// CollapseSports turns the requested set of sports into the single column
// value stored on a profile: "tennis", "pickleball" or "both". Entries are
// matched case-insensitively; an empty list or an unknown sport is rejected.
func CollapseSports(sports []string) (models.SportPreference, bool) {
	if len(sports) == 0 {
		return "", false
	}
	var tennis, pickleball bool
	for _, s := range sports {
		switch models.Sport(strings.ToLower(strings.TrimSpace(s))) {
		case models.SportTennis:
			tennis = true
		case models.SportPickleball:
			pickleball = true
		default:
			return "", false
		}
	}
	switch {
	case tennis && pickleball:
		return models.SportPreferenceBoth, true
	case tennis:
		return models.SportPreferenceTennis, true
	default:
		return models.SportPreferencePickleball, true
	}
}

func passwordMix(p string) bool {
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
