package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/auth"
	authpg "github.com/frahmantamala/rental-management/internal/auth/postgres"
	"github.com/frahmantamala/rental-management/internal/core/events"
	"github.com/frahmantamala/rental-management/internal/lease"
	leasepg "github.com/frahmantamala/rental-management/internal/lease/postgres"
	"github.com/frahmantamala/rental-management/internal/notification"
	notificationpg "github.com/frahmantamala/rental-management/internal/notification/postgres"
	"github.com/frahmantamala/rental-management/internal/payment"
	paymentpg "github.com/frahmantamala/rental-management/internal/payment/postgres"
	"github.com/frahmantamala/rental-management/internal/paymentgateway"
	"github.com/frahmantamala/rental-management/internal/transport"
	"github.com/frahmantamala/rental-management/internal/transport/rest"
	"github.com/frahmantamala/rental-management/internal/transport/swagger"
	"github.com/frahmantamala/rental-management/internal/user"
	userpg "github.com/frahmantamala/rental-management/internal/user/postgres"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests and M-Pesa callbacks`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Router   *chi.Mux
	Logger   *slog.Logger
	Services *Services
}

// Services is the wired domain layer shared by the server and the CLI commands.
type Services struct {
	Auth         *auth.Service
	User         *user.Service
	Lease        *lease.Service
	Payment      *payment.Service
	Notification *notification.Service
	Events       *events.EventBus
}

func startHTTPServer() error {
	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	}()

	if err := setupRoutes(deps); err != nil {
		return fmt.Errorf("failed to set up routes: %w", err)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.Services.Events.Wait(ctx); err != nil {
			deps.Logger.Error("Event handlers did not finish", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			return err
		}
	}

	deps.Logger.Info("Server stopped")
	return nil
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config

	openAPIPath := cfg.Server.OpenAPIPath
	if openAPIPath != "" {
		if _, err := swagger.LoadSpec(context.Background(), openAPIPath); err != nil {
			return err
		}
	}

	base := transport.NewBaseHandler(deps.Logger)
	handlers := rest.Handlers{
		Auth:         auth.NewHandler(deps.Services.Auth, cfg.Env == "production"),
		RBAC:         auth.NewRBACAuthorization(deps.Logger),
		User:         user.NewHandler(deps.Services.User),
		Payment:      payment.NewHandler(deps.Services.Payment, deps.Logger),
		Webhook:      payment.NewWebhookHandler(base, deps.Services.Payment),
		Notification: notification.NewHandler(deps.Services.Notification, deps.Logger),
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB, handlers, rest.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPIPath:    openAPIPath,
	}, deps.Logger)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := setupLogger(config)

	db, gormDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		Services: buildServices(config, db, gormDB, lg),
	}, nil
}

func buildServices(cfg *internal.Config, db *sqlx.DB, gormDB *gorm.DB, lg *slog.Logger) *Services {
	queryTimeout := cfg.Database.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}

	bus := events.NewEventBus(lg)

	userService := user.NewService(userpg.NewRepository(gormDB, queryTimeout))

	var mailer notification.Mailer
	if smtp := cfg.Notification.SMTP; smtp.Enabled {
		mailer = notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     smtp.Host,
			Port:     smtp.Port,
			Username: smtp.Username,
			Password: smtp.Password,
			From:     smtp.From,
		})
	}
	notificationService := notification.NewService(notificationpg.NewRepository(gormDB, queryTimeout), mailer, userService, lg)
	payment.NewEventHandler(notificationService, lg).Register(bus)

	leaseService := lease.NewService(leasepg.NewLeaseRepository(gormDB, queryTimeout), lg)

	gateway := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:         cfg.Payment.GatewayBaseURL(),
		ConsumerKey:     cfg.Payment.ConsumerKey,
		ConsumerSecret:  cfg.Payment.ConsumerSecret,
		Passkey:         cfg.Payment.Passkey,
		ShortCode:       cfg.Payment.ShortCode,
		CallbackURL:     cfg.Payment.CallbackURL,
		CountryCode:     cfg.Payment.CountryCode,
		TransactionType: cfg.Payment.TransactionType,
		RequestTimeout:  cfg.Payment.RequestTimeout,
	}, lg)

	paymentService := payment.NewService(payment.Dependencies{
		Repository:     paymentpg.NewPaymentRepository(gormDB, queryTimeout),
		Queries:        paymentpg.NewQueryRepository(db, queryTimeout),
		CallbackLog:    paymentpg.NewCallbackLogRepository(gormDB, queryTimeout),
		Gateway:        gateway,
		Leases:         leaseService,
		Publisher:      bus,
		InFlightWindow: cfg.Payment.InFlightWindow,
		Logger:         lg,
	})

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authpg.NewRepository(gormDB, queryTimeout), tokens, cfg.Security.BCryptCost)

	return &Services{
		Auth:         authService,
		User:         userService,
		Lease:        leaseService,
		Payment:      paymentService,
		Notification: notificationService,
		Events:       bus,
	}
}

// initDB opens one pgx pool and shares it between sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return dbConn, gormDB, nil
}
