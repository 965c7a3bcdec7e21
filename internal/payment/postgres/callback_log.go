package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/core/datamodel/payment"
)

type CallbackLogRepository struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func NewCallbackLogRepository(db *gorm.DB, queryTimeout time.Duration) *CallbackLogRepository {
	return &CallbackLogRepository{
		db:           db,
		queryTimeout: queryTimeout,
	}
}

func (r *CallbackLogRepository) Record(ctx context.Context, entry *payment.CallbackLog) error {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByCheckoutRequestID returns every delivery for one push attempt, oldest first.
func (r *CallbackLogRepository) ListByCheckoutRequestID(ctx context.Context, checkoutRequestID string) ([]payment.CallbackLog, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var entries []payment.CallbackLog
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ?", checkoutRequestID).
		Order("received_at ASC").
		Find(&entries).Error
	return entries, err
}
