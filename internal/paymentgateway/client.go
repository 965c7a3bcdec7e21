package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	mpesa "github.com/frahmantamala/rental-management/internal/core/datamodel/paymentgateway"
)

const (
	tokenPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"
)

type Config struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	Passkey         string
	ShortCode       string
	CallbackURL     string
	CountryCode     string
	TransactionType string
	RequestTimeout  time.Duration
}

// PushRequest is one payment prompt to send to the payer's handset.
type PushRequest struct {
	Amount      decimal.Decimal
	PhoneNumber string
	Reference   string
}

// Client talks to the M-Pesa Daraja API. It is safe for concurrent use.
type Client struct {
	baseURL         string
	consumerKey     string
	consumerSecret  string
	passkey         string
	shortCode       string
	callbackURL     string
	countryCode     string
	transactionType string
	requestTimeout  time.Duration

	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenGroup  singleflight.Group
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	countryCode := config.CountryCode
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	transactionType := config.TransactionType
	if transactionType == "" {
		transactionType = mpesa.TransactionTypePayBillOnline
	}

	return &Client{
		baseURL:         strings.TrimRight(config.BaseURL, "/"),
		consumerKey:     config.ConsumerKey,
		consumerSecret:  config.ConsumerSecret,
		passkey:         config.Passkey,
		shortCode:       config.ShortCode,
		callbackURL:     config.CallbackURL,
		countryCode:     countryCode,
		transactionType: transactionType,
		requestTimeout:  timeout,
		httpClient:      &http.Client{Timeout: timeout},
		logger:          logger,
		now:             time.Now,
	}
}

func (c *Client) CountryCode() string {
	return c.countryCode
}

// SubmitPushRequest asks the provider to prompt the payer and returns the
// provider's CheckoutRequestID for the attempt.
func (c *Client) SubmitPushRequest(ctx context.Context, credential string, req PushRequest) (string, error) {
	timestamp := Timestamp(c.now())
	phone := NormalizePhone(req.PhoneNumber, c.countryCode)

	payload := mpesa.STKPushRequest{
		BusinessShortCode: c.shortCode,
		Password:          Password(c.shortCode, c.passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   c.transactionType,
		Amount:            RoundAmount(req.Amount).IntPart(),
		PartyA:            phone,
		PartyB:            c.shortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  req.Reference,
		TransactionDesc:   fmt.Sprintf("Payment for %s", req.Reference),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", &GatewayRequestError{Cause: fmt.Errorf("failed to marshal push request: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stkPushPath, bytes.NewReader(jsonData))
	if err != nil {
		return "", &GatewayRequestError{Cause: fmt.Errorf("failed to create HTTP request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	c.logger.Info("submitting stk push",
		"reference", req.Reference,
		"amount", payload.Amount,
		"phone_number", MaskPhone(phone))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &GatewayRequestError{Cause: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &GatewayRequestError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	var pushResp mpesa.STKPushResponse
	decodeErr := json.Unmarshal(body, &pushResp)

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken(credential)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("stk push rejected",
			"reference", req.Reference,
			"status_code", resp.StatusCode,
			"diagnostic", pushResp.Diagnostic())
		return "", &GatewayRequestError{
			StatusCode: resp.StatusCode,
			Diagnostic: pushResp.Diagnostic(),
			Cause:      fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}

	if decodeErr != nil {
		return "", &GatewayRequestError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}

	if pushResp.ResponseCode != mpesa.ResponseCodeAccepted {
		return "", &GatewayRequestError{
			StatusCode: resp.StatusCode,
			Diagnostic: pushResp.Diagnostic(),
			Cause:      fmt.Errorf("provider response code %q", pushResp.ResponseCode),
		}
	}

	if pushResp.CheckoutRequestID == "" {
		return "", &GatewayRequestError{
			StatusCode: resp.StatusCode,
			Diagnostic: pushResp.Diagnostic(),
			Cause:      fmt.Errorf("response has no CheckoutRequestID"),
		}
	}

	c.logger.Info("stk push accepted",
		"reference", req.Reference,
		"checkout_request_id", pushResp.CheckoutRequestID)

	return pushResp.CheckoutRequestID, nil
}
