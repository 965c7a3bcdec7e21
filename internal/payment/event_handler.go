package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/rental-management/internal/core/events"
)

const notificationTypePayment = "PAYMENT"

// Notifier delivers a message to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, notificationType string) error
}

type EventHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewEventHandler(notifier Notifier, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		notifier: notifier,
		logger:   logger,
	}
}

func (h *EventHandler) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypePaymentCompleted, h.HandlePaymentCompleted)
	bus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)
}

func (h *EventHandler) HandlePaymentCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	h.logger.Info("payment completed",
		"payment_id", e.PaymentID,
		"tenant_id", e.TenantID,
		"receipt_number", e.ReceiptNumber)

	message := fmt.Sprintf("Your payment of KES %s was received. M-Pesa receipt: %s.", e.Amount.StringFixed(2), e.ReceiptNumber)
	return h.notifier.Notify(ctx, e.TenantID, "Payment received", message, notificationTypePayment)
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	h.logger.Info("payment failed",
		"payment_id", e.PaymentID,
		"tenant_id", e.TenantID,
		"reason", e.FailureReason)

	message := fmt.Sprintf("Your payment of KES %s did not go through.", e.Amount.StringFixed(2))
	if e.FailureReason != "" {
		message += " Reason: " + e.FailureReason
	}
	return h.notifier.Notify(ctx, e.TenantID, "Payment failed", message, notificationTypePayment)
}
