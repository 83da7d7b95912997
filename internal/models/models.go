// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and relationships.
//
// The data model represents a recreational racquet-sports league where:
//   - Users register once (Firebase account + users row) and carry a skill level
//   - Courts are public or club venues where people play
//   - Matches are open games at a court that other players can join
//
// The schema itself lives in migrations/; these structs must stay in sync with it.
package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Enums ---
// Named string types plus constants. The values are stored as Postgres enum types
// (see migrations/000001_initial_schema.up.sql), so they must match exactly.

// UserRole represents a user's global permission level across the platform.
type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"     // Full access: manage users, courts, matches
	UserRoleOrganizer UserRole = "organizer" // Can add courts and run league play
	UserRolePlayer    UserRole = "player"    // Regular member; the role every new signup gets
)

// Sport is a single racquet sport a court supports or a match is played in.
type Sport string

const (
	SportTennis     Sport = "tennis"
	SportPickleball Sport = "pickleball"
)

// SportPreference is what a user (or court) plays. "both" is the collapsed form of
// {tennis, pickleball} so the users table can keep a single enum column.
type SportPreference string

const (
	SportPreferenceTennis     SportPreference = "tennis"
	SportPreferencePickleball SportPreference = "pickleball"
	SportPreferenceBoth       SportPreference = "both"
)

// MatchFormat decides how many players a match holds.
type MatchFormat string

const (
	MatchFormatSingles MatchFormat = "singles" // 2 players
	MatchFormatDoubles MatchFormat = "doubles" // 4 players
)

// Capacity returns the number of players needed to fill a match of this format.
func (f MatchFormat) Capacity() int {
	if f == MatchFormatDoubles {
		return 4
	}
	return 2
}

// MatchStatus tracks the lifecycle of a match.
type MatchStatus string

const (
	MatchStatusOpen      MatchStatus = "open"      // Accepting players
	MatchStatusFull      MatchStatus = "full"      // Capacity reached
	MatchStatusCompleted MatchStatus = "completed" // Played
	MatchStatusCancelled MatchStatus = "cancelled" // Called off by the creator
)

// --- Models ---

// User is the persistent profile half of a registered account.
// The other half lives in Firebase; FirebaseUID is a loose reference to it
// (not a foreign key), and the two are matched on Email.
type User struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirebaseUID        string          `gorm:"column:firebase_uid;not null"`
	Email              string          `gorm:"uniqueIndex;not null"`
	Name               string          `gorm:"not null"`
	DisplayName        string          `gorm:"not null"`
	SkillLevel         float64         `gorm:"type:numeric(2,1);not null"` // 1.0–5.5 in 0.5 steps; enforced by a CHECK constraint
	PreferredSport     SportPreference `gorm:"not null"`                   // tennis, pickleball or both; enforced by a CHECK constraint
	IsCompetitive      bool            `gorm:"not null;default:false"`
	City               string          `gorm:"not null;default:''"` // Filled from the ZIP lookup at signup; empty when the lookup failed
	ZipCode            string          `gorm:"not null"`
	AllowDirectContact bool            `gorm:"not null;default:false"`
	Role               UserRole        `gorm:"type:user_role;not null;default:'player'"`
	IsDeleted          bool            `gorm:"not null;default:false"` // Soft-delete flag; managed by account administration, not signup
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Court is a venue where matches are played.
type Court struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name       string          `gorm:"not null"`
	Address    string          `gorm:"not null;default:''"`
	City       string          `gorm:"not null;default:''"`
	State      string          `gorm:"not null;default:''"`
	ZipCode    string          `gorm:"not null"`
	Sport      SportPreference `gorm:"type:sport_preference;not null"` // "both" for shared tennis/pickleball courts
	CourtCount int             `gorm:"not null;default:1"`
	IsLighted  bool            `gorm:"not null;default:false"`
	CreatedBy  uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Match is an open game at a court that players can join until it is full.
type Match struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourtID     uuid.UUID     `gorm:"type:uuid;not null"`
	Court       Court         `gorm:"foreignKey:CourtID"`
	CreatedBy   uuid.UUID     `gorm:"type:uuid;not null"`
	Creator     User          `gorm:"foreignKey:CreatedBy"`
	Sport       Sport         `gorm:"type:sport;not null"`
	Format      MatchFormat   `gorm:"type:match_format;not null"`
	ScheduledAt time.Time     `gorm:"not null"`
	SkillMin    float64       `gorm:"type:numeric(2,1);not null"`
	SkillMax    float64       `gorm:"type:numeric(2,1);not null"`
	Status      MatchStatus   `gorm:"type:match_status;not null;default:'open'"`
	Notes       *string       // Optional free text from the creator
	Players     []MatchPlayer `gorm:"foreignKey:MatchID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MatchPlayer links a User to a Match. The unique index stops a user joining twice.
type MatchPlayer struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MatchID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_match_user"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_match_user"`
	User     User      `gorm:"foreignKey:UserID"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}
