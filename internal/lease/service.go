package lease

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	errors "github.com/frahmantamala/rental-management/internal"
	leasemodel "github.com/frahmantamala/rental-management/internal/core/datamodel/lease"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// GetForTenant hides leases of other tenants behind ErrLeaseNotFound.
func (s *Service) GetForTenant(ctx context.Context, leaseID, tenantID string) (*leasemodel.Lease, error) {
	l, err := s.repo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if l.TenantID != tenantID {
		return nil, errors.ErrLeaseNotFound
	}
	return l, nil
}

func (s *Service) Create(ctx context.Context, req CreateLeaseRequest) (*leasemodel.Lease, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	l := &leasemodel.Lease{
		ID:         uuid.NewString(),
		UnitID:     req.UnitID,
		TenantID:   req.TenantID,
		RentAmount: req.RentAmount,
		Status:     StatusActive,
		StartDate:  req.StartDate.UTC(),
	}

	if err := s.repo.CreateOccupying(ctx, l); err != nil {
		if stderrors.Is(err, errors.ErrUnitNotAvailable) {
			return nil, err
		}
		return nil, errors.NewInternalError("failed to create lease", err)
	}

	s.logger.Info("lease created", "lease_id", l.ID, "unit_id", l.UnitID, "tenant_id", l.TenantID)
	return l, nil
}

func (s *Service) Terminate(ctx context.Context, leaseID string) error {
	if err := s.repo.TerminateReleasing(ctx, leaseID, s.now().UTC()); err != nil {
		if stderrors.Is(err, errors.ErrLeaseNotFound) || stderrors.Is(err, errors.ErrLeaseNotActive) {
			return err
		}
		return errors.NewInternalError("failed to terminate lease", err)
	}

	s.logger.Info("lease terminated", "lease_id", leaseID)
	return nil
}
