package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/auth"
	"github.com/frahmantamala/rental-management/internal/core/datamodel/payment"
	mpesa "github.com/frahmantamala/rental-management/internal/core/datamodel/paymentgateway"
	paymentpkg "github.com/frahmantamala/rental-management/internal/payment"
	"github.com/frahmantamala/rental-management/internal/transport"
)

type mockPaymentService struct {
	initiateResp   *paymentpkg.InitiatePaymentResponse
	err            error
	callbackResult paymentpkg.CallbackOutcome
	views          []paymentpkg.PaymentView
	lastPayerID    string
	lastFilter     paymentpkg.ListFilter
	lastOperator   string
	lastPaymentID  string
	lastBody       []byte
}

func (m *mockPaymentService) Initiate(ctx context.Context, payerID string, req paymentpkg.InitiatePaymentRequest) (*paymentpkg.InitiatePaymentResponse, error) {
	m.lastPayerID = payerID
	return m.initiateResp, m.err
}

func (m *mockPaymentService) HandleCallback(ctx context.Context, body []byte) (paymentpkg.CallbackOutcome, error) {
	m.lastBody = body
	return m.callbackResult, m.err
}

func (m *mockPaymentService) ReconcileCallback(ctx context.Context, envelope *mpesa.STKCallbackEnvelope) (paymentpkg.CallbackOutcome, error) {
	return m.callbackResult, m.err
}

func (m *mockPaymentService) ReconcileManually(ctx context.Context, paymentID, operatorID string, req paymentpkg.ManualReconcileRequest) (*payment.Payment, error) {
	m.lastPaymentID = paymentID
	m.lastOperator = operatorID
	if m.err != nil {
		return nil, m.err
	}
	return &payment.Payment{ID: paymentID, Status: req.Status, ProcessedBy: &operatorID}, nil
}

func (m *mockPaymentService) ListForPayer(ctx context.Context, payerID string) ([]paymentpkg.PaymentView, error) {
	m.lastPayerID = payerID
	return m.views, m.err
}

func (m *mockPaymentService) ListAll(ctx context.Context, filter paymentpkg.ListFilter) ([]paymentpkg.PaymentView, error) {
	m.lastFilter = filter
	return m.views, m.err
}

func (m *mockPaymentService) Summary(ctx context.Context, filter paymentpkg.ListFilter) (*paymentpkg.Summary, error) {
	m.lastFilter = filter
	return &paymentpkg.Summary{Total: 3, Completed: 2, CompletedAmount: decimal.NewFromInt(75000)}, m.err
}

func (m *mockPaymentService) ListStale(ctx context.Context, olderThan time.Duration) ([]payment.Payment, error) {
	return nil, m.err
}

func withUser(req *http.Request, id, role string) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), &auth.User{ID: id, Role: role}))
}

var _ = ginkgo.Describe("PaymentHandler", func() {
	var (
		handler     *paymentpkg.Handler
		mockService *mockPaymentService
		recorder    *httptest.ResponseRecorder
		logger      *slog.Logger
	)

	ginkgo.BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(ginkgo.GinkgoWriter, nil))
		mockService = &mockPaymentService{}
		handler = paymentpkg.NewHandler(mockService, logger)
		recorder = httptest.NewRecorder()
	})

	ginkgo.Describe("Initiate", func() {
		ginkgo.It("should return the correlation id for the caller", func() {
			// Given
			mockService.initiateResp = &paymentpkg.InitiatePaymentResponse{
				Message:               paymentpkg.InitiatedMessage,
				PaymentID:             "pay-1",
				ProviderCorrelationID: "ws_CO_123",
			}
			body := []byte(`{"amount": 45000, "phoneNumber": "0733567890"}`)
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", bytes.NewReader(body)), "tenant-1", auth.RoleTenant)

			// When
			handler.Initiate(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(mockService.lastPayerID).To(gomega.Equal("tenant-1"))

			var resp map[string]string
			gomega.Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp["paymentId"]).To(gomega.Equal("pay-1"))
			gomega.Expect(resp["providerCorrelationId"]).To(gomega.Equal("ws_CO_123"))
		})

		ginkgo.It("should return bad request for an invalid body", func() {
			// Given
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", bytes.NewReader([]byte("invalid json"))), "tenant-1", auth.RoleTenant)

			// When
			handler.Initiate(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should relay a provider rejection as a 400 error body", func() {
			// Given
			mockService.err = internal.NewExternalError("payment could not be started: Failed to initiate M-Pesa payment: Invalid PhoneNumber", internal.ErrCodePaymentInitiationFailed, nil)
			body := []byte(`{"amount": "45000", "phoneNumber": "0733567890"}`)
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", bytes.NewReader(body)), "tenant-1", auth.RoleTenant)

			// When
			handler.Initiate(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
			var resp map[string]string
			gomega.Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp["error"]).To(gomega.ContainSubstring("Invalid PhoneNumber"))
		})

		ginkgo.It("should return conflict while another prompt is pending", func() {
			// Given
			mockService.err = internal.ErrDuplicatePaymentInFlight
			body := []byte(`{"amount": 45000, "phoneNumber": "0733567890", "leaseId": "lease-1"}`)
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", bytes.NewReader(body)), "tenant-1", auth.RoleTenant)

			// When
			handler.Initiate(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusConflict))
		})

		ginkgo.It("should return unauthorized without a caller", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", bytes.NewReader([]byte(`{}`)))

			handler.Initiate(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("MyPayments", func() {
		ginkgo.It("should list the caller's payments without tenant details", func() {
			// Given
			leaseID, unitID, unitNumber := "lease-1", "unit-1", "A1"
			mockService.views = []paymentpkg.PaymentView{{
				ID:              "pay-1",
				TenantID:        "tenant-1",
				LeaseID:         &leaseID,
				Amount:          decimal.NewFromInt(45000),
				Status:          paymentpkg.StatusCompleted,
				TenantFirstName: "Jane",
				UnitID:          &unitID,
				UnitNumber:      &unitNumber,
			}}
			req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments/my", nil), "tenant-1", auth.RoleTenant)

			// When
			handler.MyPayments(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			var resp []map[string]interface{}
			gomega.Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp).To(gomega.HaveLen(1))
			gomega.Expect(resp[0]).NotTo(gomega.HaveKey("tenant"))
			gomega.Expect(resp[0]["amount"]).To(gomega.Equal("45000"))
			lease := resp[0]["lease"].(map[string]interface{})
			gomega.Expect(lease["unit"]).To(gomega.HaveKeyWithValue("unitNumber", "A1"))
		})
	})

	ginkgo.Describe("ListPayments", func() {
		ginkgo.It("should pass known query keys and ignore the rest", func() {
			// Given
			req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments?status=PENDING&landlordId=landlord-9&limit=20&offset=40&amount=1", nil), "admin-1", auth.RoleAdmin)

			// When
			handler.ListPayments(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(mockService.lastFilter).To(gomega.Equal(paymentpkg.ListFilter{
				Status:     paymentpkg.StatusPending,
				LandlordID: "landlord-9",
				Limit:      20,
				Offset:     40,
			}))
		})

		ginkgo.It("should scope a landlord to their own properties", func() {
			// Given
			req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments?landlordId=landlord-9", nil), "landlord-1", auth.RoleLandlord)

			// When
			handler.ListPayments(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(mockService.lastFilter.LandlordID).To(gomega.Equal("landlord-1"))
		})

		ginkgo.It("should reject a non-numeric limit", func() {
			req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments?limit=ten", nil), "admin-1", auth.RoleAdmin)

			handler.ListPayments(recorder, req)

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("Summary", func() {
		ginkgo.It("should return the totals", func() {
			// Given
			req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments/summary", nil), "landlord-1", auth.RoleLandlord)

			// When
			handler.Summary(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(mockService.lastFilter.LandlordID).To(gomega.Equal("landlord-1"))
			gomega.Expect(recorder.Body.String()).To(gomega.ContainSubstring(`"completedAmount":"75000"`))
		})
	})

	ginkgo.Describe("Reconcile", func() {
		reconcile := func(id string, body string) {
			req := withUser(httptest.NewRequest(http.MethodPatch, "/api/v1/payments/"+id+"/reconcile", bytes.NewReader([]byte(body))), "admin-1", auth.RoleAdmin)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			handler.Reconcile(recorder, req)
		}

		ginkgo.It("should reconcile on behalf of the operator", func() {
			// When
			reconcile("pay-1", `{"status":"FAILED","notes":"customer cancelled at the counter"}`)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(mockService.lastPaymentID).To(gomega.Equal("pay-1"))
			gomega.Expect(mockService.lastOperator).To(gomega.Equal("admin-1"))
			gomega.Expect(recorder.Body.String()).To(gomega.ContainSubstring(`"processedBy":"admin-1"`))
		})

		ginkgo.It("should return conflict for a settled payment", func() {
			// Given
			mockService.err = internal.ErrPaymentAlreadyReconciled

			// When
			reconcile("pay-1", `{"status":"FAILED"}`)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusConflict))
		})

		ginkgo.It("should return not found for an unknown payment", func() {
			// Given
			mockService.err = internal.ErrPaymentNotFound

			// When
			reconcile("missing", `{"status":"FAILED"}`)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusNotFound))
		})
	})
})

var _ = ginkgo.Describe("WebhookHandler", func() {
	var (
		handler     *paymentpkg.WebhookHandler
		mockService *mockPaymentService
		recorder    *httptest.ResponseRecorder
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(ginkgo.GinkgoWriter, nil))
		mockService = &mockPaymentService{}
		handler = paymentpkg.NewWebhookHandler(transport.NewBaseHandler(logger), mockService)
		recorder = httptest.NewRecorder()
	})

	ginkgo.DescribeTable("should acknowledge every well-formed delivery",
		func(outcome paymentpkg.CallbackOutcome) {
			// Given
			mockService.callbackResult = outcome
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader([]byte(`{"Body":{}}`)))

			// When
			handler.HandleSTKCallback(recorder, req)

			// Then
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(recorder.Body.String()).To(gomega.MatchJSON(`{"message":"Callback received"}`))
			gomega.Expect(mockService.lastBody).To(gomega.Equal([]byte(`{"Body":{}}`)))
		},
		ginkgo.Entry("applied", paymentpkg.OutcomeApplied),
		ginkgo.Entry("unknown correlation", paymentpkg.OutcomeUnknown),
		ginkgo.Entry("repeated delivery", paymentpkg.OutcomeAlreadyReconciled),
		ginkgo.Entry("storage error", paymentpkg.OutcomeError),
	)

	ginkgo.It("should answer 500 for a malformed payload", func() {
		// Given
		mockService.callbackResult = paymentpkg.OutcomeMalformed
		mockService.err = internal.ErrMalformedCallback
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader([]byte(`garbage`)))

		// When
		handler.HandleSTKCallback(recorder, req)

		// Then
		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(recorder.Body.String()).To(gomega.ContainSubstring(`"error"`))
	})
})
