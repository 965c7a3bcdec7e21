package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Payment struct {
	ID                string          `gorm:"column:id;primaryKey"`
	TenantID          string          `gorm:"column:tenant_id;not null;index"`
	LeaseID           *string         `gorm:"column:lease_id;index"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	PhoneNumber       string          `gorm:"column:phone_number;not null"`
	Method            string          `gorm:"column:method;not null"`
	Status            string          `gorm:"column:status;not null;index"`
	CheckoutRequestID *string         `gorm:"column:checkout_request_id;uniqueIndex"`
	ReceiptNumber     *string         `gorm:"column:receipt_number"`
	PaidAt            *time.Time      `gorm:"column:paid_at"`
	ProcessedBy       *string         `gorm:"column:processed_by"`
	Notes             *string         `gorm:"column:notes"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}

// CallbackLog is one provider callback delivery, kept whatever the outcome.
type CallbackLog struct {
	ID                string         `gorm:"column:id;primaryKey"`
	CheckoutRequestID *string        `gorm:"column:checkout_request_id;index"`
	ResultCode        *int64         `gorm:"column:result_code"`
	Outcome           string         `gorm:"column:outcome;not null"`
	Payload           datatypes.JSON `gorm:"column:payload"`
	ReceivedAt        time.Time      `gorm:"column:received_at;autoCreateTime"`
}

func (CallbackLog) TableName() string {
	return "payment_callbacks"
}
