package paymentgateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	mpesa "github.com/frahmantamala/rental-management/internal/core/datamodel/paymentgateway"
)

func TestPaymentGateway(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Gateway Suite")
}

type fakeDaraja struct {
	tokenHits atomic.Int32
	pushHits  atomic.Int32

	tokenStatus int
	tokenBody   string
	tokenDelay  time.Duration

	pushStatus int
	pushBody   string
	pushDelay  time.Duration

	mu          sync.Mutex
	lastAuth    string
	lastBasic   [2]string
	lastPayload mpesa.STKPushRequest
}

func newFakeDaraja() *fakeDaraja {
	return &fakeDaraja{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"tok-1","expires_in":"3599"}`,
		pushStatus:  http.StatusOK,
		pushBody:    `{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_123","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing"}`,
	}
}

func (f *fakeDaraja) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/oauth/v1/generate":
		f.tokenHits.Add(1)
		if f.tokenDelay > 0 {
			time.Sleep(f.tokenDelay)
		}
		user, pass, _ := r.BasicAuth()
		f.mu.Lock()
		f.lastBasic = [2]string{user, pass}
		f.mu.Unlock()
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(f.tokenBody))
	case "/mpesa/stkpush/v1/processrequest":
		f.pushHits.Add(1)
		if f.pushDelay > 0 {
			time.Sleep(f.pushDelay)
		}
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&f.lastPayload)
		f.mu.Unlock()
		w.WriteHeader(f.pushStatus)
		_, _ = w.Write([]byte(f.pushBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

var _ = Describe("Client", func() {
	var (
		fake   *fakeDaraja
		server *httptest.Server
		client *Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = newFakeDaraja()
		server = httptest.NewServer(fake)

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client = NewClient(Config{
			BaseURL:        server.URL,
			ConsumerKey:    "key",
			ConsumerSecret: "secret",
			Passkey:        "passkey",
			ShortCode:      "174379",
			CallbackURL:    "https://example.com/api/v1/payments/callback",
			RequestTimeout: 500 * time.Millisecond,
		}, logger)
		client.now = func() time.Time {
			return time.Date(2025, 3, 1, 9, 30, 15, 0, time.UTC)
		}
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("AcquireAccessCredential", func() {
		It("should fetch a token with basic auth", func() {
			// When
			token, err := client.AcquireAccessCredential(ctx)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("tok-1"))
			Expect(fake.lastBasic).To(Equal([2]string{"key", "secret"}))
		})

		It("should reuse a cached token until it nears expiry", func() {
			// Given
			_, err := client.AcquireAccessCredential(ctx)
			Expect(err).NotTo(HaveOccurred())

			// When
			_, err = client.AcquireAccessCredential(ctx)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.tokenHits.Load()).To(Equal(int32(1)))
		})

		It("should refresh once the cached token is inside the expiry margin", func() {
			// Given
			fake.tokenBody = `{"access_token":"tok-1","expires_in":120}`
			_, err := client.AcquireAccessCredential(ctx)
			Expect(err).NotTo(HaveOccurred())

			// When
			client.now = func() time.Time {
				return time.Date(2025, 3, 1, 9, 31, 20, 0, time.UTC)
			}
			_, err = client.AcquireAccessCredential(ctx)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.tokenHits.Load()).To(Equal(int32(2)))
		})

		It("should collapse concurrent refreshes into one fetch", func() {
			// Given
			fake.tokenDelay = 50 * time.Millisecond

			// When
			var wg sync.WaitGroup
			tokens := make([]string, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					token, err := client.AcquireAccessCredential(ctx)
					Expect(err).NotTo(HaveOccurred())
					tokens[i] = token
				}(i)
			}
			wg.Wait()

			// Then
			Expect(fake.tokenHits.Load()).To(Equal(int32(1)))
			for _, token := range tokens {
				Expect(token).To(Equal("tok-1"))
			}
		})

		It("should return a GatewayAuthError when the provider rejects the credentials", func() {
			// Given
			fake.tokenStatus = http.StatusUnauthorized
			fake.tokenBody = `{"errorMessage":"Invalid Credentials"}`

			// When
			_, err := client.AcquireAccessCredential(ctx)

			// Then
			var authErr *GatewayAuthError
			Expect(errors.As(err, &authErr)).To(BeTrue())
			Expect(authErr.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(err.Error()).To(ContainSubstring("Failed to get M-Pesa access token"))
		})

		It("should not cache a failed fetch", func() {
			// Given
			fake.tokenStatus = http.StatusInternalServerError
			_, err := client.AcquireAccessCredential(ctx)
			Expect(err).To(HaveOccurred())

			// When
			fake.tokenStatus = http.StatusOK
			token, err := client.AcquireAccessCredential(ctx)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("tok-1"))
			Expect(fake.tokenHits.Load()).To(Equal(int32(2)))
		})

		It("should time out a slow provider", func() {
			// Given
			fake.tokenDelay = time.Second

			// When
			_, err := client.AcquireAccessCredential(ctx)

			// Then
			var authErr *GatewayAuthError
			Expect(errors.As(err, &authErr)).To(BeTrue())
		})
	})

	Describe("SubmitPushRequest", func() {
		var req PushRequest

		BeforeEach(func() {
			req = PushRequest{
				Amount:      decimal.RequireFromString("45000"),
				PhoneNumber: "0733567890",
				Reference:   "pay-1",
			}
		})

		It("should send the STK push payload and return the correlation id", func() {
			// When
			id, err := client.SubmitPushRequest(ctx, "tok-1", req)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("ws_CO_123"))
			Expect(fake.lastAuth).To(Equal("Bearer tok-1"))

			p := fake.lastPayload
			Expect(p.BusinessShortCode).To(Equal("174379"))
			Expect(p.Timestamp).To(Equal("20250301093015"))
			Expect(p.TransactionType).To(Equal("CustomerPayBillOnline"))
			Expect(p.Amount).To(Equal(int64(45000)))
			Expect(p.PartyA).To(Equal("254733567890"))
			Expect(p.PhoneNumber).To(Equal("254733567890"))
			Expect(p.PartyB).To(Equal("174379"))
			Expect(p.CallBackURL).To(Equal("https://example.com/api/v1/payments/callback"))
			Expect(p.AccountReference).To(Equal("pay-1"))
			Expect(p.TransactionDesc).To(Equal("Payment for pay-1"))

			password, err := base64.StdEncoding.DecodeString(p.Password)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(password)).To(Equal("174379passkey20250301093015"))
		})

		It("should round fractional amounts before sending", func() {
			// Given
			req.Amount = decimal.RequireFromString("65000.6")

			// When
			_, err := client.SubmitPushRequest(ctx, "tok-1", req)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.lastPayload.Amount).To(Equal(int64(65001)))
		})

		It("should surface the provider diagnostic on a non-2xx response", func() {
			// Given
			fake.pushStatus = http.StatusBadRequest
			fake.pushBody = `{"requestId":"r-1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`

			// When
			_, err := client.SubmitPushRequest(ctx, "tok-1", req)

			// Then
			var reqErr *GatewayRequestError
			Expect(errors.As(err, &reqErr)).To(BeTrue())
			Expect(reqErr.Diagnostic).To(Equal("Bad Request - Invalid PhoneNumber"))
			Expect(err.Error()).To(HavePrefix("Failed to initiate M-Pesa payment"))
		})

		It("should treat a non-zero ResponseCode as a rejection", func() {
			// Given
			fake.pushBody = `{"CheckoutRequestID":"ws_CO_9","ResponseCode":"1","ResponseDescription":"Rejected"}`

			// When
			_, err := client.SubmitPushRequest(ctx, "tok-1", req)

			// Then
			var reqErr *GatewayRequestError
			Expect(errors.As(err, &reqErr)).To(BeTrue())
			Expect(reqErr.Diagnostic).To(Equal("Rejected"))
		})

		It("should reject an accepted response without a CheckoutRequestID", func() {
			// Given
			fake.pushBody = `{"ResponseCode":"0"}`

			// When
			_, err := client.SubmitPushRequest(ctx, "tok-1", req)

			// Then
			var reqErr *GatewayRequestError
			Expect(errors.As(err, &reqErr)).To(BeTrue())
		})

		It("should drop a cached token the provider rejects", func() {
			// Given
			token, err := client.AcquireAccessCredential(ctx)
			Expect(err).NotTo(HaveOccurred())
			fake.pushStatus = http.StatusUnauthorized
			fake.pushBody = `{"requestId":"r-1","errorCode":"404.001.04","errorMessage":"Invalid Access Token"}`

			// When
			_, err = client.SubmitPushRequest(ctx, token, req)

			// Then
			var reqErr *GatewayRequestError
			Expect(errors.As(err, &reqErr)).To(BeTrue())
			Expect(reqErr.StatusCode).To(Equal(http.StatusUnauthorized))

			fake.tokenBody = `{"access_token":"tok-2","expires_in":"3599"}`
			fresh, err := client.AcquireAccessCredential(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh).To(Equal("tok-2"))
			Expect(fake.tokenHits.Load()).To(Equal(int32(2)))
		})

		It("should keep a newer token when an older one is rejected", func() {
			// Given
			_, err := client.AcquireAccessCredential(ctx)
			Expect(err).NotTo(HaveOccurred())
			fake.pushStatus = http.StatusUnauthorized
			fake.pushBody = `{"errorMessage":"Invalid Access Token"}`

			// When
			_, err = client.SubmitPushRequest(ctx, "tok-old", req)

			// Then
			Expect(err).To(HaveOccurred())
			_, err = client.AcquireAccessCredential(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.tokenHits.Load()).To(Equal(int32(1)))
		})

		It("should log only the last digits of the payer phone", func() {
			// Given
			var logs bytes.Buffer
			client.logger = slog.New(slog.NewTextHandler(&logs, nil))

			// When
			_, err := client.SubmitPushRequest(ctx, "tok-1", req)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(logs.String()).To(ContainSubstring("submitting stk push"))
			Expect(logs.String()).To(ContainSubstring("phone_number=*********890"))
			Expect(logs.String()).NotTo(ContainSubstring("733567"))
		})

		It("should time out a slow provider", func() {
			// Given
			fake.pushDelay = time.Second

			// When
			_, err := client.SubmitPushRequest(ctx, "tok-1", req)

			// Then
			var reqErr *GatewayRequestError
			Expect(errors.As(err, &reqErr)).To(BeTrue())
		})
	})
})
