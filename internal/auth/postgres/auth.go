package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/auth"
	usermodel "github.com/frahmantamala/rental-management/internal/core/datamodel/user"
)

type Repository struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func NewRepository(db *gorm.DB, queryTimeout time.Duration) *Repository {
	return &Repository{
		db:           db,
		queryTimeout: queryTimeout,
	}
}

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	return r.find(ctx, "email = ?", email)
}

func (r *Repository) GetCredentialsByID(ctx context.Context, userID string) (*auth.Credentials, error) {
	return r.find(ctx, "id = ?", userID)
}

func (r *Repository) find(ctx context.Context, cond string, arg string) (*auth.Credentials, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var u usermodel.User
	err := r.db.WithContext(ctx).
		Select("id", "password_hash", "role", "is_active").
		Where(cond, arg).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	return &auth.Credentials{
		UserID:       u.ID,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		IsActive:     u.IsActive,
	}, nil
}
