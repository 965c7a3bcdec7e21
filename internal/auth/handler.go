package auth

import (
	"log/slog"
	"net/http"
	"time"

	errors "github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/transport"
	"github.com/frahmantamala/rental-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service      ServiceAPI
	SecureCookie bool
}

func NewHandler(svc ServiceAPI, secureCookie bool) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(lg),
		Service:      svc,
		SecureCookie: secureCookie,
	}
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Info("authentication failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.setAccessCookie(w, tokens)
	h.WriteJSON(w, http.StatusOK, tokens)
}

// RefreshToken handles POST /api/v1/auth/refresh
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Info("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.setAccessCookie(w, tokens)
	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) setAccessCookie(w http.ResponseWriter, tokens AuthTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// AuthMiddleware accepts a Bearer token or the access token cookie and puts
// the caller on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Debug("token validation failed", "error", err)
			h.HandleError(w, errors.ErrInvalidToken)
			return
		}

		ctx := WithUser(r.Context(), &User{ID: claims.UserID, Role: claims.Role})
		ctx = logger.With(ctx, "user_id", claims.UserID, "role", claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
