package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/trentd187/match-point-league/internal/models"
	"gorm.io/gorm"
)

// UserStore reads and writes rows of the users table.
// Every error it returns is a classified *Error (see Classify).
type UserStore struct {
	db *gorm.DB
}

// NewUserStore returns a store backed by db. The *gorm.DB is safe for
// concurrent use; each call checks a connection out of the pool and returns it.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts u. On success GORM fills in u.ID and the timestamps.
// A second row with the same email fails with a unique violation, which is the
// only serialization point between racing signups for one address.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	return wrap("create user", s.db.WithContext(ctx).Create(u).Error)
}

// GetByEmail returns the user row for email, or ErrNotFound.
// Emails are stored lowercased, so the lookup lowercases too.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, wrap("get user by email", err)
	}
	return &u, nil
}

// GetByID returns the user row with the given primary key, or ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, wrap("get user by id", err)
	}
	return &u, nil
}

// Update applies a partial update (column name → value) to the user with id
// and returns the row as stored afterwards.
func (s *UserStore) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.User, error) {
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, wrap("update user", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, wrap("update user", ErrNotFound)
		}
	}
	return s.GetByID(ctx, id)
}
