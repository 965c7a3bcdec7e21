package lease

import (
	"context"
	"time"

	leasemodel "github.com/frahmantamala/rental-management/internal/core/datamodel/lease"
)

const (
	StatusActive     = "ACTIVE"
	StatusTerminated = "TERMINATED"

	UnitAvailable = "AVAILABLE"
	UnitOccupied  = "OCCUPIED"
)

// RepositoryAPI returns errors.ErrLeaseNotFound for an unknown lease id.
type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*leasemodel.Lease, error)
	// CreateOccupying inserts an ACTIVE lease and marks its unit OCCUPIED in one
	// transaction. It returns errors.ErrUnitNotAvailable when the unit is taken.
	CreateOccupying(ctx context.Context, l *leasemodel.Lease) error
	// TerminateReleasing ends an ACTIVE lease and frees its unit in one
	// transaction. It returns errors.ErrLeaseNotActive when nothing changed.
	TerminateReleasing(ctx context.Context, id string, endDate time.Time) error
}

type ServiceAPI interface {
	GetForTenant(ctx context.Context, leaseID, tenantID string) (*leasemodel.Lease, error)
	Create(ctx context.Context, req CreateLeaseRequest) (*leasemodel.Lease, error)
	Terminate(ctx context.Context, leaseID string) error
}
