package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/rental-management/internal/payment"
)

type PaymentRepository struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func NewPaymentRepository(db *gorm.DB, queryTimeout time.Duration) *PaymentRepository {
	return &PaymentRepository{
		db:           db,
		queryTimeout: queryTimeout,
	}
}

var _ paymentpkg.RepositoryAPI = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var p payment.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Payment, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var p payment.Payment
	err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) AttachCheckoutRequestID(ctx context.Context, id, checkoutRequestID string) (bool, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ? AND status = ? AND checkout_request_id IS NULL", id, paymentpkg.StatusPending).
		Updates(map[string]interface{}{
			"checkout_request_id": checkoutRequestID,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Transition applies a terminal update only while the row is still PENDING,
// so concurrent deliveries for the same payment cannot both win.
func (r *PaymentRepository) Transition(ctx context.Context, id string, t paymentpkg.Transition) (bool, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	updates := map[string]interface{}{
		"status":     t.Status,
		"updated_at": time.Now().UTC(),
	}
	if t.ReceiptNumber != nil {
		updates["receipt_number"] = *t.ReceiptNumber
	}
	if t.PaidAt != nil {
		updates["paid_at"] = t.PaidAt.UTC()
	}
	if t.ProcessedBy != nil {
		updates["processed_by"] = *t.ProcessedBy
	}
	if t.Notes != nil {
		updates["notes"] = *t.Notes
	}

	res := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ? AND status = ?", id, paymentpkg.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentRepository) UpdateNotes(ctx context.Context, id, notes string) error {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"notes":      notes,
			"updated_at": time.Now().UTC(),
		}).Error
}

// FindInFlightForLease returns the newest PENDING payment for the lease that
// reached the provider at or after since, or nil.
func (r *PaymentRepository) FindInFlightForLease(ctx context.Context, leaseID string, since time.Time) (*payment.Payment, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var p payment.Payment
	err := r.db.WithContext(ctx).
		Where("lease_id = ? AND status = ? AND checkout_request_id IS NOT NULL AND created_at >= ?",
			leaseID, paymentpkg.StatusPending, since.UTC()).
		Order("created_at DESC").
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListStale(ctx context.Context, createdBefore time.Time) ([]payment.Payment, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var payments []payment.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", paymentpkg.StatusPending, createdBefore.UTC()).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}
