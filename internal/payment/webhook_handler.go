package payment

import (
	"io"
	"net/http"

	"github.com/frahmantamala/rental-management/internal/transport"
	"github.com/frahmantamala/rental-management/pkg/logger"
)

const maxCallbackBody = 1 << 20

type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    baseHandler,
		paymentService: paymentService,
	}
}

type CallbackAckResponse struct {
	Message string `json:"message"`
}

// HandleSTKCallback handles POST /api/v1/payments/callback. Every well-formed
// delivery is acknowledged with 200, including unknown and repeated ones.
func (h *WebhookHandler) HandleSTKCallback(w http.ResponseWriter, r *http.Request) {
	ctx := logger.With(r.Context(), "component", "mpesa_callback")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		h.Logger.Error("failed to read payment callback body", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to read callback body")
		return
	}

	outcome, err := h.paymentService.HandleCallback(ctx, body)
	if err != nil {
		h.Logger.Error("payment callback rejected", "error", err, "outcome", outcome)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("payment callback processed", "outcome", outcome)
	h.WriteJSON(w, http.StatusOK, CallbackAckResponse{Message: CallbackAckMessage})
}
