package notification_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rental-management/internal/auth"
	notificationmodel "github.com/frahmantamala/rental-management/internal/core/datamodel/notification"
	"github.com/frahmantamala/rental-management/internal/notification"
)

var _ = Describe("NotificationHandler", func() {
	var (
		repo     *mockRepository
		handler  *notification.Handler
		recorder *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		repo = &mockRepository{}
		service := notification.NewService(repo, nil, mockRecipients{}, logger)
		handler = notification.NewHandler(service, logger)
		recorder = httptest.NewRecorder()
	})

	get := func(target string, withUser bool) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if withUser {
			req = req.WithContext(auth.WithUser(req.Context(), &auth.User{ID: "tenant-1", Role: auth.RoleTenant}))
		}
		handler.MyNotifications(recorder, req)
	}

	It("should list the caller's notifications", func() {
		// Given
		repo.listed = []notificationmodel.Notification{
			{ID: "n-1", UserID: "tenant-1", Title: "Payment received", Message: "Your payment of KES 45000.00 was received.", Type: "PAYMENT", CreatedAt: time.Now()},
		}

		// When
		get("/api/v1/notifications", true)

		// Then
		Expect(recorder.Code).To(Equal(http.StatusOK))
		var body []notification.NotificationResponse
		Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveLen(1))
		Expect(body[0].Title).To(Equal("Payment received"))
		Expect(repo.lastLimit).To(Equal(notification.DefaultListLimit))
	})

	It("should cap the page size", func() {
		// When
		get("/api/v1/notifications?limit=500", true)

		// Then
		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(recorder.Body.String()).To(Equal("[]\n"))
		Expect(repo.lastLimit).To(Equal(notification.MaxListLimit))
	})

	It("should reject a malformed limit", func() {
		get("/api/v1/notifications?limit=ten", true)
		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
	})

	It("should require a user", func() {
		get("/api/v1/notifications", false)
		Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should hide storage errors", func() {
		// Given
		repo.err = errors.New("connection refused")

		// When
		get("/api/v1/notifications", true)

		// Then
		Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
		Expect(recorder.Body.String()).NotTo(ContainSubstring("connection refused"))
	})
})
