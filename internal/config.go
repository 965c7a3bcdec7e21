package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MpesaSandboxURL    = "https://sandbox.safaricom.co.ke"
	MpesaProductionURL = "https://api.safaricom.co.ke"
)

type Config struct {
	Env           string              `mapstructure:"env" validate:"omitempty,oneof=development staging production"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Notification  NotificationConfig  `mapstructure:"notification"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	Source          string        `mapstructure:"source" validate:"required"`
}

type SecurityConfig struct {
	JWTAccessSecret      string        `mapstructure:"jwt_access_secret" validate:"required,min=32"`
	JWTRefreshSecret     string        `mapstructure:"jwt_refresh_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

// PaymentConfig holds the M-Pesa Daraja credentials and STK push settings.
type PaymentConfig struct {
	Environment     string        `mapstructure:"environment" validate:"required,oneof=sandbox production"`
	BaseURL         string        `mapstructure:"base_url" validate:"omitempty,url"`
	ConsumerKey     string        `mapstructure:"consumer_key" validate:"required"`
	ConsumerSecret  string        `mapstructure:"consumer_secret" validate:"required"`
	Passkey         string        `mapstructure:"passkey" validate:"required"`
	ShortCode       string        `mapstructure:"short_code" validate:"required,numeric"`
	CallbackURL     string        `mapstructure:"callback_url" validate:"required,url"`
	CountryCode     string        `mapstructure:"country_code" validate:"required,numeric"`
	TransactionType string        `mapstructure:"transaction_type" validate:"required"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"required"`
	InFlightWindow  time.Duration `mapstructure:"inflight_window"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string        `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string        `mapstructure:"format" validate:"required,oneof=json text"`
	File   LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type NotificationConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port" validate:"required_if=Enabled true"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required_if=Enabled true"`
}

var structValidator = validator.New()

// LoadConfigFromEnv builds the config from plain environment variables, the
// way containers are deployed.
func LoadConfigFromEnv() *Config {
	return &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			OpenAPIPath:       getEnv("OPENAPI_PATH", "./api/openapi.yml"),
			AllowedOrigins:    getEnvAsList("CLIENT_URL", []string{"http://localhost:3000"}),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 45*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			QueryTimeout:    getEnvAsDuration("DB_QUERY_TIMEOUT", 5*time.Second),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
			JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 12),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
				File: LogFileConfig{
					Path:       getEnv("LOG_FILE", ""),
					MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 10),
					MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 7),
					MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 28),
					Compress:   getEnvAsBool("LOG_FILE_COMPRESS", true),
				},
			},
		},
		Payment: PaymentConfig{
			Environment:     getEnv("MPESA_ENVIRONMENT", "sandbox"),
			BaseURL:         getEnv("MPESA_BASE_URL", ""),
			ConsumerKey:     getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret:  getEnv("MPESA_CONSUMER_SECRET", ""),
			Passkey:         getEnv("MPESA_PASSKEY", ""),
			ShortCode:       getEnv("MPESA_SHORTCODE", ""),
			CallbackURL:     getEnv("MPESA_CALLBACK_URL", ""),
			CountryCode:     getEnv("MPESA_COUNTRY_CODE", "254"),
			TransactionType: getEnv("MPESA_TRANSACTION_TYPE", "CustomerPayBillOnline"),
			RequestTimeout:  getEnvAsDuration("MPESA_REQUEST_TIMEOUT", 30*time.Second),
			InFlightWindow:  getEnvAsDuration("PAYMENT_INFLIGHT_WINDOW", 3*time.Minute),
		},
		Notification: NotificationConfig{
			SMTP: SMTPConfig{
				Enabled:  getEnvAsBool("SMTP_ENABLED", false),
				Host:     getEnv("SMTP_HOST", ""),
				Port:     getEnvAsInt("SMTP_PORT", 587),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
				From:     getEnv("SMTP_FROM", ""),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.JWTAccessSecret != "" && c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	if c.RefreshTokenDuration <= c.AccessTokenDuration {
		return errors.New("refresh_token_duration must be longer than access_token_duration")
	}
	return nil
}

func (c *PaymentConfig) Validate() error {
	if c.InFlightWindow < 0 {
		return errors.New("inflight_window cannot be negative")
	}
	if c.Environment == "production" && strings.HasPrefix(c.GatewayBaseURL(), MpesaSandboxURL) {
		return errors.New("production environment cannot point at the sandbox gateway")
	}
	return nil
}

// GatewayBaseURL returns the explicit base_url or the Daraja host for the environment.
func (c *PaymentConfig) GatewayBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Environment == "production" {
		return MpesaProductionURL
	}
	return MpesaSandboxURL
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
