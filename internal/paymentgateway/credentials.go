package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	mpesa "github.com/frahmantamala/rental-management/internal/core/datamodel/paymentgateway"
)

const (
	defaultTokenLifetime = 3599 * time.Second
	tokenExpiryMargin    = 60 * time.Second
)

// AcquireAccessCredential returns a bearer token for the Daraja API. Tokens are
// cached until shortly before expiry and concurrent refreshes share one fetch.
func (c *Client) AcquireAccessCredential(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	result := c.tokenGroup.DoChan("token", func() (interface{}, error) {
		if token, ok := c.cachedToken(); ok {
			return token, nil
		}
		// detached so one caller giving up does not fail the others waiting on it
		return c.fetchToken(context.WithoutCancel(ctx))
	})

	select {
	case res := <-result:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &GatewayAuthError{Cause: ctx.Err()}
	}
}

func (c *Client) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, true
	}
	return "", false
}

// invalidateToken drops the cached token if it is still the rejected one, so
// the next AcquireAccessCredential fetches a fresh token.
func (c *Client) invalidateToken(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == rejected {
		c.token = ""
		c.tokenExpiry = time.Time{}
	}
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", &GatewayAuthError{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("access token request failed", "error", err)
		return "", &GatewayAuthError{Cause: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("access token rejected", "status_code", resp.StatusCode)
		return "", &GatewayAuthError{
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}

	var tokenResp mpesa.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", &GatewayAuthError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}
	if tokenResp.AccessToken == "" {
		return "", &GatewayAuthError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("response has no access_token")}
	}

	lifetime := defaultTokenLifetime
	if tokenResp.ExpiresIn != nil && *tokenResp.ExpiresIn > 0 {
		lifetime = time.Duration(*tokenResp.ExpiresIn) * time.Second
	}

	c.mu.Lock()
	c.token = tokenResp.AccessToken
	c.tokenExpiry = c.now().Add(lifetime - tokenExpiryMargin)
	c.mu.Unlock()

	c.logger.Debug("access token refreshed", "expires_in_seconds", int64(lifetime.Seconds()))

	return tokenResp.AccessToken, nil
}
