package handlers

// courts.go handles the /api/v1/courts routes: listing, reading and adding the
// venues where matches are played. Anyone signed in can read courts; only
// admins and organizers can add them (enforced by RequireRole on the route).

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/validation"
	"gorm.io/gorm"
)

// CourtResponse is the JSON shape of a court.
type CourtResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
	Sport      string `json:"sport"` // "tennis", "pickleball" or "both"
	CourtCount int    `json:"court_count"`
	IsLighted  bool   `json:"is_lighted"`
	CreatedAt  string `json:"created_at"` // RFC 3339
}

// CreateCourtRequest is the JSON body of POST /api/v1/courts.
type CreateCourtRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=120"`
	Address    string `json:"address" validate:"max=200"`
	City       string `json:"city" validate:"max=100"`
	State      string `json:"state" validate:"omitempty,len=2"`
	ZipCode    string `json:"zip_code" validate:"required,zip"`
	Sport      string `json:"sport" validate:"required,oneof=tennis pickleball both"`
	CourtCount int    `json:"court_count" validate:"omitempty,gte=1,lte=64"`
	IsLighted  bool   `json:"is_lighted"`
}

func toCourtResponse(ct models.Court) CourtResponse {
	return CourtResponse{
		ID:         ct.ID.String(),
		Name:       ct.Name,
		Address:    ct.Address,
		City:       ct.City,
		State:      ct.State,
		ZipCode:    ct.ZipCode,
		Sport:      string(ct.Sport),
		CourtCount: ct.CourtCount,
		IsLighted:  ct.IsLighted,
		CreatedAt:  ct.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListCourts returns a handler for GET /api/v1/courts.
// Optional query params:
//   - ?city=Austin  case-insensitive city match
//   - ?sport=tennis courts for that sport, including shared ("both") courts
func ListCourts(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := db.WithContext(c.UserContext()).Order("name")

		if city := strings.TrimSpace(c.Query("city")); city != "" {
			query = query.Where("LOWER(city) = LOWER(?)", city)
		}
		if sport := c.Query("sport"); sport != "" {
			switch models.Sport(sport) {
			case models.SportTennis, models.SportPickleball:
				query = query.Where("sport IN ?", []string{sport, string(models.SportPreferenceBoth)})
			default:
				return badRequest(c, "sport must be 'tennis' or 'pickleball'", nil)
			}
		}

		var courts []models.Court
		if err := query.Find(&courts).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch courts",
			})
		}

		response := make([]CourtResponse, 0, len(courts))
		for _, ct := range courts {
			response = append(response, toCourtResponse(ct))
		}
		return c.JSON(response)
	}
}

// GetCourt returns a handler for GET /api/v1/courts/:id.
func GetCourt(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid court ID", nil)
		}

		var court models.Court
		err = db.WithContext(c.UserContext()).First(&court, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "court not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch court",
			})
		}
		return c.JSON(toCourtResponse(court))
	}
}

// CreateCourt returns a handler for POST /api/v1/courts.
// When the request leaves city or state blank they are filled from the ZIP
// lookup; a failed lookup leaves them blank.
func CreateCourt(db *gorm.DB, lookup validation.CityLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := callerID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}

		var req CreateCourtRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", nil)
		}
		req.Name = strings.TrimSpace(req.Name)
		req.ZipCode = strings.TrimSpace(req.ZipCode)
		if fields := validation.Struct(req); fields != nil {
			return badRequest(c, "invalid court", fields)
		}

		court := models.Court{
			Name:       req.Name,
			Address:    strings.TrimSpace(req.Address),
			City:       strings.TrimSpace(req.City),
			State:      strings.ToUpper(req.State),
			ZipCode:    req.ZipCode,
			Sport:      models.SportPreference(req.Sport),
			CourtCount: req.CourtCount,
			IsLighted:  req.IsLighted,
			CreatedBy:  userID,
		}
		if court.CourtCount == 0 {
			court.CourtCount = 1
		}
		if (court.City == "" || court.State == "") && lookup != nil {
			if info, found := lookup.Lookup(c.UserContext(), req.ZipCode); found {
				if court.City == "" {
					court.City = info.City
				}
				if court.State == "" {
					court.State = stateAbbrev(info.FullLocation)
				}
			}
		}

		if err := db.WithContext(c.UserContext()).Create(&court).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create court",
			})
		}
		return c.Status(fiber.StatusCreated).JSON(toCourtResponse(court))
	}
}

// stateAbbrev pulls "NY" out of a "New York, NY" location string.
func stateAbbrev(fullLocation string) string {
	i := strings.LastIndex(fullLocation, ", ")
	if i < 0 {
		return ""
	}
	return fullLocation[i+2:]
}
