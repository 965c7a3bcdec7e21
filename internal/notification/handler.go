package notification

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	errors "github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/auth"
	notificationmodel "github.com/frahmantamala/rental-management/internal/core/datamodel/notification"
	"github.com/frahmantamala/rental-management/internal/transport"
)

type NotificationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponses(rows []notificationmodel.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(rows))
	for _, n := range rows {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
	}
}

// MyNotifications handles GET /api/v1/notifications
func (h *Handler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.HandleError(w, errors.NewValidationFieldError("limit", "limit must be a non-negative integer", errors.ErrCodeInvalidFilter))
			return
		}
		limit = n
	}

	rows, err := h.Service.ListForUser(r.Context(), user.ID, limit)
	if err != nil {
		h.Logger.Error("MyNotifications: service error", "user_id", user.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toResponses(rows))
}
