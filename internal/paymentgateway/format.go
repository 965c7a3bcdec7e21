package paymentgateway

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCountryCode = "254"
	timestampLayout    = "20060102150405"
)

// NormalizePhone converts a local or international number into the bare
// MSISDN form the provider expects. Any other input is returned unchanged.
func NormalizePhone(phone, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	switch {
	case strings.HasPrefix(phone, "0"):
		return countryCode + phone[1:]
	case strings.HasPrefix(phone, "+"):
		return phone[1:]
	default:
		return phone
	}
}

// RoundAmount rounds to whole currency units, half away from zero.
func RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(0)
}

func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// MaskPhone keeps the last three digits for logging.
func MaskPhone(phone string) string {
	if len(phone) <= 3 {
		return "***"
	}
	return strings.Repeat("*", len(phone)-3) + phone[len(phone)-3:]
}
