package handlers

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/trentd187/match-point-league/internal/logging"
	"github.com/trentd187/match-point-league/internal/models"
)

func TestCheckJoin(t *testing.T) {
	open := models.Match{Status: models.MatchStatusOpen, Format: models.MatchFormatDoubles, SkillMin: 3.0, SkillMax: 4.0}
	singles := open
	singles.Format = models.MatchFormatSingles
	full := open
	full.Status = models.MatchStatusFull

	cases := []struct {
		name    string
		match   models.Match
		players int64
		joined  bool
		skill   float64
		want    error
	}{
		{"fits", open, 1, false, 3.5, nil},
		{"lower bound", open, 3, false, 3.0, nil},
		{"upper bound", open, 3, false, 4.0, nil},
		{"doubles full", open, 4, false, 3.5, errMatchFull},
		{"singles full", singles, 2, false, 3.5, errMatchFull},
		{"not open", full, 1, false, 3.5, errMatchNotOpen},
		{"already in", open, 1, true, 3.5, errAlreadyJoined},
		{"too strong", open, 1, false, 4.5, errSkillOutOfBand},
		{"too weak", open, 1, false, 2.5, errSkillOutOfBand},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, checkJoin(tc.match, tc.players, tc.joined, tc.skill))
		})
	}
}

func TestCourtSupports(t *testing.T) {
	assert.True(t, courtSupports(models.SportPreferenceBoth, models.SportTennis))
	assert.True(t, courtSupports(models.SportPreferencePickleball, models.SportPickleball))
	assert.False(t, courtSupports(models.SportPreferenceTennis, models.SportPickleball))
}

func TestMatchFormatCapacity(t *testing.T) {
	assert.Equal(t, 2, models.MatchFormatSingles.Capacity())
	assert.Equal(t, 4, models.MatchFormatDoubles.Capacity())
}

func TestCreateMatch_Validation(t *testing.T) {
	db, mock := newMockDB(t)
	app := fiber.New()
	app.Use(asUser(uuid.New(), "player"))
	app.Post("/matches", CreateMatch(db, nil, logging.Discard()))

	status, body := doJSON(t, app, fiber.MethodPost, "/matches", map[string]interface{}{
		"court_id":     "nope",
		"sport":        "tennis",
		"format":       "triples",
		"scheduled_at": time.Now().Add(time.Hour),
		"skill_min":    4.0,
		"skill_max":    3.0,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	fields, _ := body["fields"].(map[string]interface{})
	assert.Equal(t, "court_id must be a valid ID", fields["court_id"])
	assert.Contains(t, fields, "format")
	assert.Contains(t, fields, "skill_max")

	status, body = doJSON(t, app, fiber.MethodPost, "/matches", map[string]interface{}{
		"court_id":     uuid.NewString(),
		"sport":        "tennis",
		"format":       "singles",
		"scheduled_at": time.Now().Add(-time.Hour),
		"skill_min":    3.0,
		"skill_max":    4.0,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "scheduled_at must be in the future", body["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMatches_BadFilters(t *testing.T) {
	db, mock := newMockDB(t)
	app := fiber.New()
	app.Get("/matches", ListMatches(db))

	status, _ := doJSON(t, app, fiber.MethodGet, "/matches?status=postponed", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = doJSON(t, app, fiber.MethodGet, "/matches?court_id=123", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinMatch_BadID(t *testing.T) {
	db, _ := newMockDB(t)
	app := fiber.New()
	app.Use(asUser(uuid.New(), "player"))
	app.Post("/matches/:id/join", JoinMatch(db, nil, logging.Discard()))

	status, body := doJSON(t, app, fiber.MethodPost, "/matches/xyz/join", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid match ID", body["error"])
}
