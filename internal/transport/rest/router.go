package rest

import (
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/rental-management/internal/auth"
	"github.com/frahmantamala/rental-management/internal/notification"
	"github.com/frahmantamala/rental-management/internal/payment"
	"github.com/frahmantamala/rental-management/internal/transport/middleware"
	"github.com/frahmantamala/rental-management/internal/transport/swagger"
	"github.com/frahmantamala/rental-management/internal/user"
)

type Handlers struct {
	Auth         *auth.Handler
	RBAC         *auth.RBACAuthorization
	User         *user.Handler
	Payment      *payment.Handler
	Webhook      *payment.WebhookHandler
	Notification *notification.Handler
}

type RouterConfig struct {
	AllowedOrigins []string
	OpenAPIPath    string
}

func RegisterAllRoutes(router *chi.Mux, db *sqlx.DB, h Handlers, cfg RouterConfig, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if cfg.OpenAPIPath != "" {
		router.Handle("/openapi.yml", swagger.SpecHandler(cfg.OpenAPIPath))
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// the provider cannot authenticate, so the callback is public
		r.Post("/payments/callback", h.Webhook.HandleSTKCallback)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Get("/notifications", h.Notification.MyNotifications)

			pr.Route("/payments", func(pmr chi.Router) {
				pmr.Group(func(tr chi.Router) {
					tr.Use(h.RBAC.RequireRole(auth.RoleTenant))
					tr.Post("/initiate", h.Payment.Initiate)
					tr.Post("/stkpush", h.Payment.Initiate)
					tr.Get("/my", h.Payment.MyPayments)
				})

				pmr.Group(func(sr chi.Router) {
					sr.Use(h.RBAC.RequireRole(auth.RoleAdmin, auth.RoleLandlord))
					sr.Get("/", h.Payment.ListPayments)
					sr.Get("/summary", h.Payment.Summary)
				})

				pmr.Group(func(ar chi.Router) {
					ar.Use(h.RBAC.RequireRole(auth.RoleAdmin))
					ar.Patch("/{id}/reconcile", h.Payment.Reconcile)
				})
			})
		})
	})
}
