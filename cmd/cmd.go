package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	clearData bool
)

var rootCmd = &cobra.Command{
	Use:   "rental-management",
	Short: "Rental Management",
	Long:  `For collecting rent over M-Pesa and reconciling payment callbacks.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// a missing .env is fine, real deployments inject the environment
	_ = godotenv.Load(".env")

	// Check if we're running in Docker environment
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	// Load configuration from file (development)
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("http_server.port", 8080)
	v.SetDefault("http_server.openapi_path", "./api/openapi.yml")
	v.SetDefault("database.query_timeout", "5s")
	v.SetDefault("payment.environment", "sandbox")
	v.SetDefault("payment.country_code", "254")
	v.SetDefault("payment.transaction_type", "CustomerPayBillOnline")
	v.SetDefault("payment.request_timeout", "30s")
	v.SetDefault("payment.inflight_window", "3m")
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

func setupLogger(cfg *internal.Config) *slog.Logger {
	logCfg := cfg.Observability.Logging
	return logger.Setup(logger.Options{
		Level:      logCfg.Level,
		Format:     logCfg.Format,
		FilePath:   logCfg.File.Path,
		MaxSizeMB:  logCfg.File.MaxSizeMB,
		MaxBackups: logCfg.File.MaxBackups,
		MaxAgeDays: logCfg.File.MaxAgeDays,
		Compress:   logCfg.File.Compress,
	})
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(paymentsCmd)
	rootCmd.AddCommand(leaseCmd)
}
