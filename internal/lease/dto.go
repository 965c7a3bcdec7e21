package lease

import (
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/core/common/validation"
)

type CreateLeaseRequest struct {
	UnitID     string          `json:"unitId"`
	TenantID   string          `json:"tenantId"`
	RentAmount decimal.Decimal `json:"rentAmount"`
	StartDate  time.Time       `json:"startDate"`
}

func (r *CreateLeaseRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("unitId", r.UnitID).Required()
	validator.Field("tenantId", r.TenantID).Required()
	validator.Field("rentAmount", r.RentAmount).Positive(errors.ErrCodeInvalidAmount).MaxDecimalPlaces(2).MaxAmount(validation.MaxStoredAmount, errors.ErrCodeInvalidAmount)
	validator.Field("startDate", r.StartDate).Custom(func(value interface{}) *errors.AppError {
		if value.(time.Time).IsZero() {
			return errors.NewValidationError("startDate is required", errors.ErrCodeValidationFailed)
		}
		return nil
	})

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
