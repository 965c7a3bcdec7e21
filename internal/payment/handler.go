package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/rental-management/internal"
	"github.com/frahmantamala/rental-management/internal/auth"
	"github.com/frahmantamala/rental-management/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	PaymentService ServiceAPI
}

func NewHandler(paymentService ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:    transport.NewBaseHandler(logger),
		PaymentService: paymentService,
	}
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return nil, false
	}
	return user, true
}

// Initiate handles POST /api/v1/payments/initiate
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req InitiatePaymentRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.PaymentService.Initiate(r.Context(), user.ID, req)
	if err != nil {
		h.Logger.Info("Initiate: payment not started", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// MyPayments handles GET /api/v1/payments/my
func (h *Handler) MyPayments(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	views, err := h.PaymentService.ListForPayer(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponses(views, false))
}

// ListPayments handles GET /api/v1/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	filter, err := h.parseFilter(r, user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	views, err := h.PaymentService.ListAll(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponses(views, true))
}

// Summary handles GET /api/v1/payments/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	filter, err := h.parseFilter(r, user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	summary, err := h.PaymentService.Summary(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

// Reconcile handles PATCH /api/v1/payments/{id}/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		h.HandleError(w, errors.NewValidationError("payment id is required", errors.ErrCodeValidationFailed))
		return
	}

	var req ManualReconcileRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	updated, err := h.PaymentService.ReconcileManually(r.Context(), paymentID, user.ID, req)
	if err != nil {
		h.Logger.Warn("Reconcile: service error", "error", err, "payment_id", paymentID, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, FromModel(updated))
}

// parseFilter reads only the known query keys. A landlord is always scoped to
// their own properties.
func (h *Handler) parseFilter(r *http.Request, user *auth.User) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:     q.Get("status"),
		LandlordID: q.Get("landlordId"),
	}

	var err error
	if filter.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		return ListFilter{}, err
	}
	if filter.Offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
		return ListFilter{}, err
	}

	if user.Role == auth.RoleLandlord {
		filter.LandlordID = user.ID
	}
	return filter, nil
}

func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationFieldError(field, field+" must be a number", errors.ErrCodeInvalidFilter)
	}
	return n, nil
}
