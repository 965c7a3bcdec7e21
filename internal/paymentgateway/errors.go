package paymentgateway

import "fmt"

// GatewayAuthError means no access credential could be obtained.
type GatewayAuthError struct {
	StatusCode int
	Cause      error
}

func (e *GatewayAuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Failed to get M-Pesa access token: %v", e.Cause)
	}
	return "Failed to get M-Pesa access token"
}

func (e *GatewayAuthError) Unwrap() error {
	return e.Cause
}

// GatewayRequestError means the push request was not accepted. Diagnostic
// carries the provider's own explanation when one was returned.
type GatewayRequestError struct {
	StatusCode int
	Diagnostic string
	Cause      error
}

func (e *GatewayRequestError) Error() string {
	switch {
	case e.Diagnostic != "":
		return fmt.Sprintf("Failed to initiate M-Pesa payment: %s", e.Diagnostic)
	case e.Cause != nil:
		return fmt.Sprintf("Failed to initiate M-Pesa payment: %v", e.Cause)
	default:
		return "Failed to initiate M-Pesa payment"
	}
}

func (e *GatewayRequestError) Unwrap() error {
	return e.Cause
}
