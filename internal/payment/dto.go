package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/core/common/validation"
	"github.com/frahmantamala/rental-management/internal/core/datamodel/payment"
)

const (
	InitiatedMessage   = "Payment initiated successfully. Please check your phone for the M-Pesa prompt."
	CallbackAckMessage = "Callback received"

	DefaultListLimit = 50
	MaxListLimit     = 100
)

type InitiatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phoneNumber"`
	LeaseID     *string         `json:"leaseId,omitempty"`
}

func (r *InitiatePaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Positive(errors.ErrCodeInvalidAmount).MaxAmount(validation.MaxStoredAmount, errors.ErrCodeInvalidAmount)
	validator.Field("phoneNumber", r.PhoneNumber).Required().Phone()
	validator.Field("leaseId", r.LeaseID).MaxLength(64)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// normalize rounds the amount to minor units, the precision the record keeps.
func (r *InitiatePaymentRequest) normalize() {
	r.Amount = r.Amount.Round(2)
}

func (r *InitiatePaymentRequest) leaseID() *string {
	if r.LeaseID == nil {
		return nil
	}
	id := strings.TrimSpace(*r.LeaseID)
	if id == "" {
		return nil
	}
	return &id
}

type InitiatePaymentResponse struct {
	Message               string `json:"message"`
	PaymentID             string `json:"paymentId"`
	ProviderCorrelationID string `json:"providerCorrelationId"`
}

// ManualReconcileRequest is an operator's decision on a payment the provider
// never reported back on.
type ManualReconcileRequest struct {
	Status        string  `json:"status"`
	ReceiptNumber *string `json:"receiptNumber,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

func (r *ManualReconcileRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("status", r.Status).Required().OneOf(errors.ErrCodeInvalidStatus, StatusCompleted, StatusFailed)
	if r.Status == StatusCompleted {
		validator.Field("receiptNumber", r.ReceiptNumber).Required().MaxLength(64)
	}
	validator.Field("notes", r.Notes).MaxLength(1000)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// ListFilter narrows the staff payment listing. Zero values mean "no filter".
type ListFilter struct {
	Status     string
	LandlordID string
	Limit      int
	Offset     int
}

func (f *ListFilter) Validate() error {
	validator := validation.NewValidator()

	validator.Field("status", f.Status).OneOf(errors.ErrCodeInvalidFilter, StatusPending, StatusCompleted, StatusFailed)
	validator.Field("limit", f.Limit).MinInt(0, errors.ErrCodeInvalidFilter).MaxInt(MaxListLimit, errors.ErrCodeInvalidFilter)
	validator.Field("offset", f.Offset).MinInt(0, errors.ErrCodeInvalidFilter)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (f ListFilter) WithDefaults() ListFilter {
	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	return f
}

// PaymentView is a payment joined with its payer and lease/unit/property.
type PaymentView struct {
	ID                string          `db:"id"`
	TenantID          string          `db:"tenant_id"`
	LeaseID           *string         `db:"lease_id"`
	Amount            decimal.Decimal `db:"amount"`
	PhoneNumber       string          `db:"phone_number"`
	Method            string          `db:"method"`
	Status            string          `db:"status"`
	CheckoutRequestID *string         `db:"checkout_request_id"`
	ReceiptNumber     *string         `db:"receipt_number"`
	PaidAt            *time.Time      `db:"paid_at"`
	ProcessedBy       *string         `db:"processed_by"`
	Notes             *string         `db:"notes"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`

	TenantFirstName string  `db:"tenant_first_name"`
	TenantLastName  string  `db:"tenant_last_name"`
	TenantEmail     string  `db:"tenant_email"`
	UnitID          *string `db:"unit_id"`
	UnitNumber      *string `db:"unit_number"`
	PropertyID      *string `db:"property_id"`
	PropertyName    *string `db:"property_name"`
	LandlordID      *string `db:"landlord_id"`
}

type Summary struct {
	Total           int64           `json:"total"`
	Pending         int64           `json:"pending"`
	Completed       int64           `json:"completed"`
	Failed          int64           `json:"failed"`
	CompletedAmount decimal.Decimal `json:"completedAmount"`
}

type TenantResponse struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type PropertyResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	LandlordID string `json:"landlordId"`
}

type UnitResponse struct {
	ID         string            `json:"id"`
	UnitNumber string            `json:"unitNumber"`
	Property   *PropertyResponse `json:"property,omitempty"`
}

type LeaseResponse struct {
	ID   string        `json:"id"`
	Unit *UnitResponse `json:"unit,omitempty"`
}

type PaymentResponse struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenantId"`
	LeaseID           *string         `json:"leaseId"`
	Amount            decimal.Decimal `json:"amount"`
	PhoneNumber       string          `json:"phoneNumber"`
	Method            string          `json:"method"`
	Status            string          `json:"status"`
	CheckoutRequestID *string         `json:"checkoutRequestId"`
	ReceiptNumber     *string         `json:"receiptNumber"`
	PaidAt            *time.Time      `json:"paidAt"`
	ProcessedBy       *string         `json:"processedBy,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	Tenant            *TenantResponse `json:"tenant,omitempty"`
	Lease             *LeaseResponse  `json:"lease,omitempty"`
}

func (v PaymentView) ToResponse(includeTenant bool) PaymentResponse {
	resp := PaymentResponse{
		ID:                v.ID,
		TenantID:          v.TenantID,
		LeaseID:           v.LeaseID,
		Amount:            v.Amount,
		PhoneNumber:       v.PhoneNumber,
		Method:            v.Method,
		Status:            v.Status,
		CheckoutRequestID: v.CheckoutRequestID,
		ReceiptNumber:     v.ReceiptNumber,
		PaidAt:            v.PaidAt,
		ProcessedBy:       v.ProcessedBy,
		Notes:             v.Notes,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}

	if includeTenant {
		resp.Tenant = &TenantResponse{
			FirstName: v.TenantFirstName,
			LastName:  v.TenantLastName,
			Email:     v.TenantEmail,
		}
	}

	if v.LeaseID != nil {
		lease := &LeaseResponse{ID: *v.LeaseID}
		if v.UnitID != nil {
			unit := &UnitResponse{ID: *v.UnitID, UnitNumber: deref(v.UnitNumber)}
			if v.PropertyID != nil {
				unit.Property = &PropertyResponse{
					ID:         *v.PropertyID,
					Name:       deref(v.PropertyName),
					LandlordID: deref(v.LandlordID),
				}
			}
			lease.Unit = unit
		}
		resp.Lease = lease
	}

	return resp
}

func ToResponses(views []PaymentView, includeTenant bool) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(views))
	for _, v := range views {
		out = append(out, v.ToResponse(includeTenant))
	}
	return out
}

// FromModel renders a stored payment without joined details.
func FromModel(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		TenantID:          p.TenantID,
		LeaseID:           p.LeaseID,
		Amount:            p.Amount,
		PhoneNumber:       p.PhoneNumber,
		Method:            p.Method,
		Status:            p.Status,
		CheckoutRequestID: p.CheckoutRequestID,
		ReceiptNumber:     p.ReceiptNumber,
		PaidAt:            p.PaidAt,
		ProcessedBy:       p.ProcessedBy,
		Notes:             p.Notes,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
