package paymentgateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	TransactionTypePayBillOnline = "CustomerPayBillOnline"
	ResponseCodeAccepted         = "0"
	ResultCodeSuccess            = 0
	MetadataReceiptNumber        = "MpesaReceiptNumber"
)

// FlexInt decodes integers that the provider sends either as numbers or as
// quoted strings.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return fmt.Errorf("empty integer value")
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer value %q: %w", raw, err)
	}
	*f = FlexInt(n)
	return nil
}

type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   *FlexInt `json:"expires_in"`
}

type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse covers both the accepted shape and the error shape
// (requestId, errorCode, errorMessage) the provider returns on rejection.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	RequestID           string `json:"requestId"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// Diagnostic returns the most specific provider message available.
func (r *STKPushResponse) Diagnostic() string {
	switch {
	case r.ErrorMessage != "":
		return r.ErrorMessage
	case r.ResponseDescription != "":
		return r.ResponseDescription
	default:
		return ""
	}
}

type STKCallbackEnvelope struct {
	Body *STKCallbackBody `json:"Body"`
}

type STKCallbackBody struct {
	StkCallback *STKCallback `json:"stkCallback"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        *FlexInt          `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// Lookup returns the named metadata item rendered as a string. Numbers are
// returned in their literal JSON form.
func (m *CallbackMetadata) Lookup(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, item := range m.Item {
		if item.Name != name {
			continue
		}
		raw := bytes.TrimSpace(item.Value)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return "", false
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, s != ""
		}
		return string(raw), true
	}
	return "", false
}

// Callback returns the inner stkCallback, or nil when the envelope is incomplete.
func (e *STKCallbackEnvelope) Callback() *STKCallback {
	if e == nil || e.Body == nil {
		return nil
	}
	return e.Body.StkCallback
}
