package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/rental-management/internal/core/events"
	paymentPkg "github.com/frahmantamala/rental-management/internal/payment"
)

type notice struct {
	userID, title, message, kind string
}

type mockNotifier struct {
	mu      sync.Mutex
	notices []notice
	err     error
}

func (m *mockNotifier) Notify(ctx context.Context, userID, title, message, notificationType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.notices = append(m.notices, notice{userID, title, message, notificationType})
	return nil
}

var _ = Describe("EventHandler", func() {
	var (
		bus      *events.EventBus
		notifier *mockNotifier
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		bus = events.NewEventBus(logger)
		notifier = &mockNotifier{}
		paymentPkg.NewEventHandler(notifier, logger).Register(bus)
	})

	It("should notify the tenant of a completed payment", func() {
		// Given
		event := events.NewPaymentCompletedEvent("pay-1", "tenant-1", nil, decimal.NewFromInt(45000), "ws_CO_123", "RJQ999", nil)

		// When
		err := bus.PublishSync(ctx, event)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(notifier.notices).To(HaveLen(1))
		Expect(notifier.notices[0].userID).To(Equal("tenant-1"))
		Expect(notifier.notices[0].kind).To(Equal("PAYMENT"))
		Expect(notifier.notices[0].message).To(ContainSubstring("KES 45000.00"))
		Expect(notifier.notices[0].message).To(ContainSubstring("RJQ999"))
	})

	It("should include the provider reason for a failed payment", func() {
		// Given
		event := events.NewPaymentFailedEvent("pay-1", "tenant-1", nil, decimal.NewFromInt(45000), "ws_CO_123", "Request cancelled by user", nil)

		// When
		err := bus.PublishSync(ctx, event)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(notifier.notices[0].title).To(Equal("Payment failed"))
		Expect(notifier.notices[0].message).To(ContainSubstring("Request cancelled by user"))
	})

	It("should report a notifier failure to the bus", func() {
		// Given
		notifier.err = errors.New("disk full")
		event := events.NewPaymentFailedEvent("pay-1", "tenant-1", nil, decimal.NewFromInt(100), "ws_CO_123", "", nil)

		// When
		err := bus.PublishSync(ctx, event)

		// Then
		Expect(err).To(HaveOccurred())
	})
})
