package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trentd187/match-point-league/internal/accounts"
	"github.com/trentd187/match-point-league/internal/middleware"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/store"
	"github.com/trentd187/match-point-league/internal/validation"
)

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.User, error)
}

// UpdateProfileRequest is the JSON body of PATCH /api/v1/me.
// Every field is optional; only the ones present are changed.
type UpdateProfileRequest struct {
	DisplayName        *string  `json:"displayName"`
	SkillLevel         *float64 `json:"skillLevel"`
	PreferredSports    []string `json:"preferredSports"`
	IsCompetitive      *bool    `json:"isCompetitive"`
	ZipCode            *string  `json:"zipCode"`
	AllowDirectContact *bool    `json:"allowDirectContact"`
}

// callerID reads the profile UUID that middleware.Auth put in c.Locals.
func callerID(c *fiber.Ctx) (uuid.UUID, bool) {
	s, _ := c.Locals(middleware.LocalUserID).(string)
	id, err := uuid.Parse(s)
	return id, err == nil
}

// GetMe returns a handler for GET /api/v1/me.
func GetMe(users profileStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := callerID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}
		u, err := users.GetByID(c.UserContext(), id)
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
		}
		if err != nil {
			return err
		}
		return c.JSON(accounts.NewProfile(u))
	}
}

// UpdateMe returns a handler for PATCH /api/v1/me. The same field rules as
// registration apply to the fields present. A new ZIP code re-derives the city;
// when the lookup fails the city is cleared rather than left stale.
func UpdateMe(users profileStore, lookup validation.CityLookup, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := callerID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}

		var req UpdateProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", nil)
		}

		updates, fieldErrs := profileUpdates(req)
		if len(fieldErrs) > 0 {
			return badRequest(c, accounts.MsgInvalidInput, fieldErrs)
		}
		if len(updates) == 0 {
			return badRequest(c, "no fields to update", nil)
		}

		if zip, ok := updates["zip_code"].(string); ok {
			updates["city"] = ""
			if lookup != nil {
				if info, found := lookup.Lookup(c.UserContext(), zip); found {
					updates["city"] = info.City
				}
			}
		}

		u, err := users.Update(c.UserContext(), id, updates)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
		case errors.Is(err, store.ErrInvalidEntity):
			return badRequest(c, accounts.MsgInvalidProfile, nil)
		case errors.Is(err, store.ErrTransient):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": accounts.MsgTryLater})
		case err != nil:
			logger.Error("profile update failed", "profile_id", id.String(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update profile"})
		}
		return c.JSON(accounts.NewProfile(u))
	}
}

// profileUpdates turns the request into a column → value map, checking each
// present field the way registration does.
func profileUpdates(req UpdateProfileRequest) (map[string]interface{}, map[string]string) {
	updates := map[string]interface{}{}
	errs := map[string]string{}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			errs[validation.FieldDisplayName] = "Display name is required"
		} else {
			updates["display_name"] = name
		}
	}
	if req.SkillLevel != nil {
		switch v := *req.SkillLevel; {
		case !validation.SkillInRange(v):
			errs[validation.FieldSkillLevel] = "Skill level must be between 1.0 and 5.5"
		case !validation.SkillOnGrid(v):
			errs[validation.FieldSkillLevel] = "Skill level must be in 0.5 increments"
		default:
			updates["skill_level"] = v
		}
	}
	if req.PreferredSports != nil {
		if sport, ok := validation.CollapseSports(req.PreferredSports); ok {
			updates["preferred_sport"] = string(sport)
		} else {
			errs[validation.FieldPreferredSports] = "Preferred sports must be tennis or pickleball"
		}
	}
	if req.ZipCode != nil {
		if validation.ValidZip(*req.ZipCode) {
			updates["zip_code"] = strings.TrimSpace(*req.ZipCode)
		} else {
			errs[validation.FieldZipCode] = "Please enter a valid US ZIP code"
		}
	}
	if req.IsCompetitive != nil {
		updates["is_competitive"] = *req.IsCompetitive
	}
	if req.AllowDirectContact != nil {
		updates["allow_direct_contact"] = *req.AllowDirectContact
	}
	return updates, errs
}
