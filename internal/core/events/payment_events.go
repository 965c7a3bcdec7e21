package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
)

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID         string          `json:"payment_id"`
	TenantID          string          `json:"tenant_id"`
	LeaseID           *string         `json:"lease_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	CheckoutRequestID string          `json:"checkout_request_id"`
	ReceiptNumber     string          `json:"receipt_number"`
	ProcessedBy       *string         `json:"processed_by,omitempty"`
}

func NewPaymentCompletedEvent(paymentID, tenantID string, leaseID *string, amount decimal.Decimal, checkoutRequestID, receiptNumber string, processedBy *string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":          paymentID,
				"tenant_id":           tenantID,
				"amount":              amount.StringFixed(2),
				"checkout_request_id": checkoutRequestID,
				"receipt_number":      receiptNumber,
			},
		},
		PaymentID:         paymentID,
		TenantID:          tenantID,
		LeaseID:           leaseID,
		Amount:            amount,
		CheckoutRequestID: checkoutRequestID,
		ReceiptNumber:     receiptNumber,
		ProcessedBy:       processedBy,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID         string          `json:"payment_id"`
	TenantID          string          `json:"tenant_id"`
	LeaseID           *string         `json:"lease_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	CheckoutRequestID string          `json:"checkout_request_id"`
	FailureReason     string          `json:"failure_reason"`
	ProcessedBy       *string         `json:"processed_by,omitempty"`
}

func NewPaymentFailedEvent(paymentID, tenantID string, leaseID *string, amount decimal.Decimal, checkoutRequestID, failureReason string, processedBy *string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":          paymentID,
				"tenant_id":           tenantID,
				"amount":              amount.StringFixed(2),
				"checkout_request_id": checkoutRequestID,
				"failure_reason":      failureReason,
			},
		},
		PaymentID:         paymentID,
		TenantID:          tenantID,
		LeaseID:           leaseID,
		Amount:            amount,
		CheckoutRequestID: checkoutRequestID,
		FailureReason:     failureReason,
		ProcessedBy:       processedBy,
	}
}
