package notification

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rental-management/internal"
	notificationmodel "github.com/frahmantamala/rental-management/internal/core/datamodel/notification"
)

type Repository struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func NewRepository(db *gorm.DB, queryTimeout time.Duration) *Repository {
	return &Repository{db: db, queryTimeout: queryTimeout}
}

func (r *Repository) Create(ctx context.Context, n *notificationmodel.Notification) error {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Create(n).Error
}

func (r *Repository) ListForUser(ctx context.Context, userID string, limit int) ([]notificationmodel.Notification, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var out []notificationmodel.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
