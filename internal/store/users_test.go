package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trentd187/match-point-league/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func sampleUser() *models.User {
	return &models.User{
		FirebaseUID:    "fb-123",
		Email:          "jane@example.com",
		Name:           "Jane Doe",
		DisplayName:    "JD",
		SkillLevel:     3.0,
		PreferredSport: models.SportPreferenceTennis,
		ZipCode:        "10001",
		Role:           models.UserRolePlayer,
	}
}

var userColumns = []string{
	"id", "firebase_uid", "email", "name", "display_name", "skill_level",
	"preferred_sport", "is_competitive", "city", "zip_code", "allow_direct_contact",
	"role", "is_deleted", "created_at", "updated_at",
}

func TestUserStore_Create(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))

	u := sampleUser()
	err := NewUserStore(db).Create(context.Background(), u)

	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := NewUserStore(db).Create(context.Background(), sampleUser())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	constraint, _ := ConstraintOf(err)
	assert.Equal(t, "users_email_key", constraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_Create_Transient(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "40P01"})

	err := NewUserStore(db).Create(context.Background(), sampleUser())

	assert.ErrorIs(t, err, ErrTransient)
	assert.True(t, Classify(err).Retryable())
}

func TestUserStore_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			id.String(), "fb-123", "jane@example.com", "Jane Doe", "JD", 3.0,
			"tennis", false, "New York", "10001", false,
			"player", false, now, now,
		))

	u, err := NewUserStore(db).GetByEmail(context.Background(), "  Jane@Example.com ")

	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "New York", u.City)
	assert.Equal(t, models.SportPreferenceTennis, u.PreferredSport)
	assert.Equal(t, models.UserRolePlayer, u.Role)
	assert.InDelta(t, 3.0, u.SkillLevel, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_GetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	u, err := NewUserStore(db).GetByEmail(context.Background(), "nobody@example.com")

	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserStore_Update_NoRows(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewUserStore(db).Update(context.Background(), uuid.New(), map[string]interface{}{"display_name": "New"})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_Update_CheckViolation(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "users_skill_level_check"})

	_, err := NewUserStore(db).Update(context.Background(), uuid.New(), map[string]interface{}{"skill_level": 9.0})

	assert.ErrorIs(t, err, ErrInvalidEntity)
	assert.Equal(t, ClassCheckViolation, Classify(err))
}
