package auth

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

// RequireRole lets the request through only when the caller holds one of roles.
func (ra *RBACAuthorization) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			if !user.HasRole(roles...) {
				ra.Logger.WarnContext(r.Context(), "access denied: role not allowed",
					"user_id", user.ID,
					"role", user.Role,
					"allowed_roles", roles)
				ra.HandleError(w, errors.ErrInsufficientRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
