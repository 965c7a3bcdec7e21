package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/rental-management/internal"
	paymentpkg "github.com/frahmantamala/rental-management/internal/payment"
)

const paymentViewColumns = `
	p.id, p.tenant_id, p.lease_id, p.amount, p.phone_number, p.method, p.status,
	p.checkout_request_id, p.receipt_number, p.paid_at, p.processed_by, p.notes,
	p.created_at, p.updated_at,
	COALESCE(u.first_name, '') AS tenant_first_name,
	COALESCE(u.last_name, '') AS tenant_last_name,
	COALESCE(u.email, '') AS tenant_email,
	un.id AS unit_id, un.unit_number,
	pr.id AS property_id, pr.name AS property_name, pr.landlord_id`

const paymentViewFrom = `
	FROM payments p
	LEFT JOIN users u ON u.id = p.tenant_id
	LEFT JOIN leases l ON l.id = p.lease_id
	LEFT JOIN units un ON un.id = l.unit_id
	LEFT JOIN properties pr ON pr.id = un.property_id`

// QueryRepository serves the read-only payment listings with plain SQL.
type QueryRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

func NewQueryRepository(db *sqlx.DB, queryTimeout time.Duration) *QueryRepository {
	return &QueryRepository{
		db:           db,
		queryTimeout: queryTimeout,
	}
}

var _ paymentpkg.QueryRepositoryAPI = (*QueryRepository)(nil)

func (r *QueryRepository) ListForTenant(ctx context.Context, tenantID string) ([]paymentpkg.PaymentView, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	query := "SELECT" + paymentViewColumns + paymentViewFrom + `
	WHERE p.tenant_id = ?
	ORDER BY p.created_at DESC`

	views := []paymentpkg.PaymentView{}
	if err := r.db.SelectContext(ctx, &views, r.db.Rebind(query), tenantID); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *QueryRepository) List(ctx context.Context, filter paymentpkg.ListFilter) ([]paymentpkg.PaymentView, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	where, args := filterClause(filter)
	query := "SELECT" + paymentViewColumns + paymentViewFrom + where + `
	ORDER BY p.created_at DESC
	LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	views := []paymentpkg.PaymentView{}
	if err := r.db.SelectContext(ctx, &views, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return views, nil
}

type statusTotal struct {
	Status string          `db:"status"`
	Count  int64           `db:"count"`
	Amount decimal.Decimal `db:"amount"`
}

func (r *QueryRepository) Summarize(ctx context.Context, filter paymentpkg.ListFilter) (*paymentpkg.Summary, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	where, args := filterClause(filter)
	query := `SELECT p.status AS status, COUNT(*) AS count, COALESCE(SUM(p.amount), 0) AS amount` +
		paymentViewFrom + where + `
	GROUP BY p.status`

	var totals []statusTotal
	if err := r.db.SelectContext(ctx, &totals, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	summary := &paymentpkg.Summary{CompletedAmount: decimal.Zero}
	for _, t := range totals {
		summary.Total += t.Count
		switch t.Status {
		case paymentpkg.StatusPending:
			summary.Pending = t.Count
		case paymentpkg.StatusCompleted:
			summary.Completed = t.Count
			summary.CompletedAmount = t.Amount
		case paymentpkg.StatusFailed:
			summary.Failed = t.Count
		}
	}
	return summary, nil
}

func filterClause(filter paymentpkg.ListFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Status != "" {
		conditions = append(conditions, "p.status = ?")
		args = append(args, filter.Status)
	}
	if filter.LandlordID != "" {
		conditions = append(conditions, "pr.landlord_id = ?")
		args = append(args, filter.LandlordID)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "\n\tWHERE " + strings.Join(conditions, " AND "), args
}
