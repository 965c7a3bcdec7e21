package user

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rental-management/internal"
	userDatamodel "github.com/frahmantamala/rental-management/internal/core/datamodel/user"
	"github.com/frahmantamala/rental-management/internal/user"
)

type Repository struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func NewRepository(db *gorm.DB, queryTimeout time.Duration) *Repository {
	return &Repository{db: db, queryTimeout: queryTimeout}
}

func (r *Repository) GetByID(ctx context.Context, userID string) (*user.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

// Upsert inserts the account or refreshes every column of an existing one.
// Used by the seeder.
func (r *Repository) Upsert(ctx context.Context, row *userDatamodel.User) error {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Save(row).Error
}
