package lease

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rental-management/internal"
	leasemodel "github.com/frahmantamala/rental-management/internal/core/datamodel/lease"
	"github.com/frahmantamala/rental-management/internal/lease"
)

type LeaseRepository struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func NewLeaseRepository(db *gorm.DB, queryTimeout time.Duration) *LeaseRepository {
	return &LeaseRepository{db: db, queryTimeout: queryTimeout}
}

func (r *LeaseRepository) GetByID(ctx context.Context, id string) (*leasemodel.Lease, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var l leasemodel.Lease
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrLeaseNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LeaseRepository) CreateOccupying(ctx context.Context, l *leasemodel.Lease) error {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&leasemodel.Unit{}).
			Where("id = ? AND status = ?", l.UnitID, lease.UnitAvailable).
			Update("status", lease.UnitOccupied)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrUnitNotAvailable
		}

		return tx.Create(l).Error
	})
}

func (r *LeaseRepository) TerminateReleasing(ctx context.Context, id string, endDate time.Time) error {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l leasemodel.Lease
		if err := tx.Where("id = ?", id).First(&l).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrLeaseNotFound
			}
			return err
		}

		res := tx.Model(&leasemodel.Lease{}).
			Where("id = ? AND status = ?", id, lease.StatusActive).
			Updates(map[string]interface{}{
				"status":   lease.StatusTerminated,
				"end_date": endDate,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrLeaseNotActive
		}

		return tx.Model(&leasemodel.Unit{}).
			Where("id = ?", l.UnitID).
			Update("status", lease.UnitAvailable).Error
	})
}
