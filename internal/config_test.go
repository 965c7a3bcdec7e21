package internal

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

func validConfig() *Config {
	return &Config{
		Env:    "development",
		Server: ServerConfig{Port: 8080, ReadHeaderTimeout: 5 * time.Second, ReadTimeout: 15 * time.Second},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			Source:       "postgres://localhost/rental",
		},
		Security: SecurityConfig{
			JWTAccessSecret:      "access-secret-access-secret-access-secret",
			JWTRefreshSecret:     "refresh-secret-refresh-secret-refresh-secret",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * time.Hour,
			BCryptCost:           12,
		},
		Observability: ObservabilityConfig{Logging: LoggingConfig{Level: "info", Format: "json"}},
		Payment: PaymentConfig{
			Environment:     "sandbox",
			ConsumerKey:     "key",
			ConsumerSecret:  "secret",
			Passkey:         "passkey",
			ShortCode:       "174379",
			CallbackURL:     "https://example.com/api/v1/payments/callback",
			CountryCode:     "254",
			TransactionType: "CustomerPayBillOnline",
			RequestTimeout:  30 * time.Second,
			InFlightWindow:  3 * time.Minute,
		},
	}
}

var _ = Describe("Config", func() {
	It("should accept a complete configuration", func() {
		Expect(validConfig().Validate()).To(Succeed())
	})

	It("should require M-Pesa credentials", func() {
		// Given
		cfg := validConfig()
		cfg.Payment.Passkey = ""

		// When
		err := cfg.Validate()

		// Then
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Passkey"))
	})

	It("should reject identical token secrets", func() {
		cfg := validConfig()
		cfg.Security.JWTRefreshSecret = cfg.Security.JWTAccessSecret
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("secrets must differ")))
	})

	It("should reject a production environment pointing at the sandbox", func() {
		// Given
		cfg := validConfig()
		cfg.Payment.Environment = "production"
		cfg.Payment.BaseURL = MpesaSandboxURL

		// Then
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("sandbox gateway")))
	})

	It("should require SMTP settings only when email is enabled", func() {
		// Given
		cfg := validConfig()
		cfg.Notification.SMTP.Enabled = true

		// Then
		Expect(cfg.Validate()).NotTo(Succeed())

		cfg.Notification.SMTP = SMTPConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "rent@example.com"}
		Expect(cfg.Validate()).To(Succeed())
	})

	Describe("GatewayBaseURL", func() {
		It("should pick the Daraja host for the environment", func() {
			cfg := validConfig()
			Expect(cfg.Payment.GatewayBaseURL()).To(Equal(MpesaSandboxURL))

			cfg.Payment.Environment = "production"
			Expect(cfg.Payment.GatewayBaseURL()).To(Equal(MpesaProductionURL))

			cfg.Payment.BaseURL = "http://localhost:9090/"
			Expect(cfg.Payment.GatewayBaseURL()).To(Equal("http://localhost:9090"))
		})
	})
})
