package handlers

// matches.go handles the /api/v1/matches routes. A match is an open game at a
// court; its creator is the first player and others join until the format's
// capacity (2 for singles, 4 for doubles) is reached, at which point the
// match flips to "full". Creates and joins are pushed to the court's live feed.

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Join rule violations. checkJoin returns them; JoinMatch maps them to statuses.
var (
	errMatchNotOpen   = errors.New("match is not open")
	errMatchFull      = errors.New("match is full")
	errAlreadyJoined  = errors.New("already joined this match")
	errSkillOutOfBand = errors.New("your skill level is outside this match's range")
)

type feedPublisher interface {
	PublishJSON(courtID string, v interface{}) error
}

// MatchResponse is the JSON shape of a match.
type MatchResponse struct {
	ID          string  `json:"id"`
	CourtID     string  `json:"court_id"`
	CourtName   string  `json:"court_name"`
	CreatedBy   string  `json:"created_by"`
	CreatorName string  `json:"creator_name"`
	Sport       string  `json:"sport"`
	Format      string  `json:"format"`
	ScheduledAt string  `json:"scheduled_at"` // RFC 3339
	SkillMin    float64 `json:"skill_min"`
	SkillMax    float64 `json:"skill_max"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes"`
	PlayerCount int64   `json:"player_count"`
	Capacity    int     `json:"capacity"`
	CreatedAt   string  `json:"created_at"`
}

// CreateMatchRequest is the JSON body of POST /api/v1/matches.
type CreateMatchRequest struct {
	CourtID     string    `json:"court_id" validate:"required,uuid"`
	Sport       string    `json:"sport" validate:"required,oneof=tennis pickleball"`
	Format      string    `json:"format" validate:"required,oneof=singles doubles"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	SkillMin    float64   `json:"skill_min" validate:"skill"`
	SkillMax    float64   `json:"skill_max" validate:"skill,gtefield=SkillMin"`
	Notes       *string   `json:"notes" validate:"omitempty,max=500"`
}

// MatchEvent is what the live feed carries for a match change.
type MatchEvent struct {
	Type  string        `json:"type"` // "match_created" or "player_joined"
	Match MatchResponse `json:"match"`
}

func toMatchResponse(m models.Match, players int64) MatchResponse {
	return MatchResponse{
		ID:          m.ID.String(),
		CourtID:     m.CourtID.String(),
		CourtName:   m.Court.Name,
		CreatedBy:   m.CreatedBy.String(),
		CreatorName: m.Creator.DisplayName,
		Sport:       string(m.Sport),
		Format:      string(m.Format),
		ScheduledAt: m.ScheduledAt.UTC().Format(time.RFC3339),
		SkillMin:    m.SkillMin,
		SkillMax:    m.SkillMax,
		Status:      string(m.Status),
		Notes:       m.Notes,
		PlayerCount: players,
		Capacity:    m.Format.Capacity(),
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// courtSupports reports whether a court for courtSport can host a match of sport.
func courtSupports(courtSport models.SportPreference, sport models.Sport) bool {
	return courtSport == models.SportPreferenceBoth || string(courtSport) == string(sport)
}

// skillInBand reports whether skill lies within [lo, hi].
func skillInBand(skill, lo, hi float64) bool {
	const eps = 1e-9
	return skill >= lo-eps && skill <= hi+eps
}

// checkJoin applies the join rules to a match that currently has players
// players. It is the whole decision; JoinMatch only loads the inputs.
func checkJoin(m models.Match, players int64, alreadyJoined bool, skill float64) error {
	switch {
	case alreadyJoined:
		return errAlreadyJoined
	case m.Status != models.MatchStatusOpen:
		return errMatchNotOpen
	case players >= int64(m.Format.Capacity()):
		return errMatchFull
	case !skillInBand(skill, m.SkillMin, m.SkillMax):
		return errSkillOutOfBand
	}
	return nil
}

// publishMatch sends ev to the court's feed. Feed delivery is best-effort.
func publishMatch(feed feedPublisher, logger *slog.Logger, ev MatchEvent) {
	if feed == nil {
		return
	}
	if err := feed.PublishJSON(ev.Match.CourtID, ev); err != nil {
		logger.Warn("publishing match event failed", "match_id", ev.Match.ID, "error", err)
	}
}

// ListMatches returns a handler for GET /api/v1/matches.
// Optional query params: ?court_id=<uuid> and ?status=open|full|completed|cancelled.
// Matches are ordered by start time.
func ListMatches(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := db.WithContext(c.UserContext()).
			Preload("Court").
			Preload("Creator").
			Order("scheduled_at")

		if courtID := c.Query("court_id"); courtID != "" {
			id, err := uuid.Parse(courtID)
			if err != nil {
				return badRequest(c, "invalid court_id", nil)
			}
			query = query.Where("court_id = ?", id)
		}
		if status := c.Query("status"); status != "" {
			switch models.MatchStatus(status) {
			case models.MatchStatusOpen, models.MatchStatusFull, models.MatchStatusCompleted, models.MatchStatusCancelled:
				query = query.Where("status = ?", status)
			default:
				return badRequest(c, "status must be 'open', 'full', 'completed' or 'cancelled'", nil)
			}
		}

		var matches []models.Match
		if err := query.Find(&matches).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch matches",
			})
		}

		counts, err := playerCounts(db.WithContext(c.UserContext()), matches)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch matches",
			})
		}

		response := make([]MatchResponse, 0, len(matches))
		for _, m := range matches {
			response = append(response, toMatchResponse(m, counts[m.ID]))
		}
		return c.JSON(response)
	}
}

// playerCounts counts match_players for every match in one grouped query.
func playerCounts(db *gorm.DB, matches []models.Match) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(matches))
	if len(matches) == 0 {
		return counts, nil
	}
	ids := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}

	var rows []struct {
		MatchID uuid.UUID
		Count   int64
	}
	err := db.Model(&models.MatchPlayer{}).
		Select("match_id, count(*) AS count").
		Where("match_id IN ?", ids).
		Group("match_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.MatchID] = r.Count
	}
	return counts, nil
}

// CreateMatch returns a handler for POST /api/v1/matches.
// The creator must fit the match's skill range and the court must support the
// sport. The match and the creator's seat are written in one transaction.
func CreateMatch(db *gorm.DB, feed feedPublisher, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := callerID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}

		var req CreateMatchRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body", nil)
		}
		if fields := validation.Struct(req); fields != nil {
			return badRequest(c, "invalid match", fields)
		}
		if !req.ScheduledAt.After(time.Now()) {
			return badRequest(c, "scheduled_at must be in the future", nil)
		}
		courtID := uuid.MustParse(req.CourtID)

		ctxDB := db.WithContext(c.UserContext())

		var court models.Court
		err := ctxDB.First(&court, "id = ?", courtID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "court not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch court"})
		}
		if !courtSupports(court.Sport, models.Sport(req.Sport)) {
			return badRequest(c, "this court does not support "+req.Sport, nil)
		}

		var creator models.User
		if err := ctxDB.First(&creator, "id = ?", userID).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch profile"})
		}
		if !skillInBand(creator.SkillLevel, req.SkillMin, req.SkillMax) {
			return badRequest(c, errSkillOutOfBand.Error(), nil)
		}

		match := models.Match{
			CourtID:     courtID,
			CreatedBy:   userID,
			Sport:       models.Sport(req.Sport),
			Format:      models.MatchFormat(req.Format),
			ScheduledAt: req.ScheduledAt.UTC(),
			SkillMin:    req.SkillMin,
			SkillMax:    req.SkillMax,
			Status:      models.MatchStatusOpen,
			Notes:       req.Notes,
		}
		txErr := ctxDB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Create(&match).Error; err != nil {
				return err
			}
			seat := models.MatchPlayer{MatchID: match.ID, UserID: userID}
			return tx.Omit(clause.Associations).Create(&seat).Error
		})
		if txErr != nil {
			logger.Error("creating match failed", "court_id", courtID.String(), "error", txErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create match"})
		}

		match.Court = court
		match.Creator = creator
		resp := toMatchResponse(match, 1)
		publishMatch(feed, logger, MatchEvent{Type: "match_created", Match: resp})
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// JoinMatch returns a handler for POST /api/v1/matches/:id/join.
// The match row is locked for the duration of the transaction so two players
// racing for the last seat cannot both get it.
func JoinMatch(db *gorm.DB, feed feedPublisher, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := callerID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
		}
		matchID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid match ID", nil)
		}

		var (
			match   models.Match
			players int64
		)
		txErr := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&match, "id = ?", matchID).Error; err != nil {
				return err
			}

			var player models.User
			if err := tx.First(&player, "id = ?", userID).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.MatchPlayer{}).Where("match_id = ?", matchID).Count(&players).Error; err != nil {
				return err
			}
			var mine int64
			if err := tx.Model(&models.MatchPlayer{}).
				Where("match_id = ? AND user_id = ?", matchID, userID).
				Count(&mine).Error; err != nil {
				return err
			}

			if err := checkJoin(match, players, mine > 0, player.SkillLevel); err != nil {
				return err
			}

			seat := models.MatchPlayer{MatchID: matchID, UserID: userID}
			if err := tx.Omit(clause.Associations).Create(&seat).Error; err != nil {
				return err
			}
			players++

			if players >= int64(match.Format.Capacity()) {
				match.Status = models.MatchStatusFull
				return tx.Model(&models.Match{}).Where("id = ?", matchID).Update("status", models.MatchStatusFull).Error
			}
			return nil
		})

		switch {
		case txErr == nil:
		case errors.Is(txErr, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "match not found"})
		case errors.Is(txErr, errAlreadyJoined), errors.Is(txErr, errMatchNotOpen), errors.Is(txErr, errMatchFull):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": txErr.Error()})
		case errors.Is(txErr, errSkillOutOfBand):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": txErr.Error()})
		default:
			logger.Error("joining match failed", "match_id", matchID.String(), "error", txErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to join match"})
		}

		// Names for the response only; a failed read leaves them blank.
		ctxDB := db.WithContext(c.UserContext())
		ctxDB.First(&match.Court, "id = ?", match.CourtID)
		ctxDB.First(&match.Creator, "id = ?", match.CreatedBy)

		resp := toMatchResponse(match, players)
		publishMatch(feed, logger, MatchEvent{Type: "player_joined", Match: resp})
		return c.JSON(resp)
	}
}
