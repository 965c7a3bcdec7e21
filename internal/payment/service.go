package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	errors "github.com/frahmantamala/rental-management/internal"
	leasemodel "github.com/frahmantamala/rental-management/internal/core/datamodel/lease"
	"github.com/frahmantamala/rental-management/internal/core/datamodel/payment"
	mpesa "github.com/frahmantamala/rental-management/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/rental-management/internal/core/events"
	"github.com/frahmantamala/rental-management/internal/paymentgateway"
	"github.com/frahmantamala/rental-management/pkg/logger"
)

// RepositoryAPI is the write side of the payment store. GetByID and
// GetByCheckoutRequestID return errors.ErrPaymentNotFound when nothing matches.
type RepositoryAPI interface {
	Create(ctx context.Context, p *payment.Payment) error
	GetByID(ctx context.Context, id string) (*payment.Payment, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*payment.Payment, error)
	// AttachCheckoutRequestID reports false when the payment is no longer
	// PENDING or already has a correlation id.
	AttachCheckoutRequestID(ctx context.Context, id, checkoutRequestID string) (bool, error)
	// Transition reports false when the payment was not PENDING any more.
	Transition(ctx context.Context, id string, t Transition) (bool, error)
	UpdateNotes(ctx context.Context, id, notes string) error
	FindInFlightForLease(ctx context.Context, leaseID string, since time.Time) (*payment.Payment, error)
	ListStale(ctx context.Context, createdBefore time.Time) ([]payment.Payment, error)
}

type QueryRepositoryAPI interface {
	ListForTenant(ctx context.Context, tenantID string) ([]PaymentView, error)
	List(ctx context.Context, filter ListFilter) ([]PaymentView, error)
	Summarize(ctx context.Context, filter ListFilter) (*Summary, error)
}

type CallbackLogRepositoryAPI interface {
	Record(ctx context.Context, entry *payment.CallbackLog) error
}

type GatewayAPI interface {
	AcquireAccessCredential(ctx context.Context) (string, error)
	SubmitPushRequest(ctx context.Context, credential string, req paymentgateway.PushRequest) (string, error)
	CountryCode() string
}

// LeaseLookup returns errors.ErrLeaseNotFound when the lease does not exist or
// belongs to someone else.
type LeaseLookup interface {
	GetForTenant(ctx context.Context, leaseID, tenantID string) (*leasemodel.Lease, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ServiceAPI interface {
	Initiate(ctx context.Context, payerID string, req InitiatePaymentRequest) (*InitiatePaymentResponse, error)
	HandleCallback(ctx context.Context, body []byte) (CallbackOutcome, error)
	ReconcileCallback(ctx context.Context, envelope *mpesa.STKCallbackEnvelope) (CallbackOutcome, error)
	ReconcileManually(ctx context.Context, paymentID, operatorID string, req ManualReconcileRequest) (*payment.Payment, error)
	ListForPayer(ctx context.Context, payerID string) ([]PaymentView, error)
	ListAll(ctx context.Context, filter ListFilter) ([]PaymentView, error)
	Summary(ctx context.Context, filter ListFilter) (*Summary, error)
	ListStale(ctx context.Context, olderThan time.Duration) ([]payment.Payment, error)
}

type Service struct {
	repo           RepositoryAPI
	queries        QueryRepositoryAPI
	callbackLog    CallbackLogRepositoryAPI
	gateway        GatewayAPI
	leases         LeaseLookup
	publisher      EventPublisher
	inFlightWindow time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

type Dependencies struct {
	Repository     RepositoryAPI
	Queries        QueryRepositoryAPI
	CallbackLog    CallbackLogRepositoryAPI
	Gateway        GatewayAPI
	Leases         LeaseLookup
	Publisher      EventPublisher
	InFlightWindow time.Duration
	Logger         *slog.Logger
}

func NewService(deps Dependencies) *Service {
	return &Service{
		repo:           deps.Repository,
		queries:        deps.Queries,
		callbackLog:    deps.CallbackLog,
		gateway:        deps.Gateway,
		leases:         deps.Leases,
		publisher:      deps.Publisher,
		inFlightWindow: deps.InFlightWindow,
		logger:         deps.Logger,
		now:            time.Now,
	}
}

// Initiate creates a PENDING payment and asks the provider to prompt the payer.
// The record is kept even when the provider refuses the push.
func (s *Service) Initiate(ctx context.Context, payerID string, req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	leaseID := req.leaseID()
	if leaseID != nil {
		if err := s.checkLease(ctx, *leaseID, payerID); err != nil {
			return nil, err
		}
	}

	record := &payment.Payment{
		ID:          uuid.NewString(),
		TenantID:    payerID,
		LeaseID:     leaseID,
		Amount:      req.Amount,
		PhoneNumber: paymentgateway.NormalizePhone(req.PhoneNumber, s.gateway.CountryCode()),
		Method:      MethodMpesa,
		Status:      StatusPending,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("failed to create payment record", "error", err, "tenant_id", payerID)
		return nil, errors.NewInternalError("failed to create payment record", err)
	}

	log := s.logger.With("payment_id", record.ID, "tenant_id", payerID)
	log.Info("payment record created", "amount", record.Amount.String(), "lease_id", leaseID)

	credential, err := s.gateway.AcquireAccessCredential(ctx)
	if err != nil {
		return nil, s.initiationFailed(ctx, log, record.ID, err)
	}

	checkoutRequestID, err := s.gateway.SubmitPushRequest(ctx, credential, paymentgateway.PushRequest{
		Amount:      record.Amount,
		PhoneNumber: record.PhoneNumber,
		Reference:   record.ID,
	})
	if err != nil {
		return nil, s.initiationFailed(ctx, log, record.ID, err)
	}

	attached, err := s.repo.AttachCheckoutRequestID(ctx, record.ID, checkoutRequestID)
	if err != nil {
		log.Error("failed to attach checkout request id", "error", err, "checkout_request_id", checkoutRequestID)
		return nil, errors.NewInternalError("failed to record payment correlation", err)
	}
	if !attached {
		log.Error("payment changed before checkout request id was attached", "checkout_request_id", checkoutRequestID)
		return nil, errors.NewInternalError("failed to record payment correlation", nil)
	}

	log.Info("payment initiated", "checkout_request_id", checkoutRequestID)

	return &InitiatePaymentResponse{
		Message:               InitiatedMessage,
		PaymentID:             record.ID,
		ProviderCorrelationID: checkoutRequestID,
	}, nil
}

func (s *Service) checkLease(ctx context.Context, leaseID, payerID string) error {
	if _, err := s.leases.GetForTenant(ctx, leaseID, payerID); err != nil {
		if stderrors.Is(err, errors.ErrLeaseNotFound) {
			return errors.NewValidationFieldError("leaseId", "lease not found for this tenant", errors.ErrCodeInvalidLease)
		}
		return errors.NewInternalError("failed to load lease", err)
	}

	if s.inFlightWindow <= 0 {
		return nil
	}

	existing, err := s.repo.FindInFlightForLease(ctx, leaseID, s.now().Add(-s.inFlightWindow))
	if err != nil {
		return errors.NewInternalError("failed to check in-flight payments", err)
	}
	if existing != nil {
		s.logger.Info("rejecting payment while another is awaiting confirmation",
			"lease_id", leaseID,
			"in_flight_payment_id", existing.ID)
		return errors.ErrDuplicatePaymentInFlight
	}
	return nil
}

func (s *Service) initiationFailed(ctx context.Context, log *slog.Logger, paymentID string, cause error) error {
	log.Warn("payment initiation failed, record left pending", "error", cause)

	if err := s.repo.UpdateNotes(ctx, paymentID, cause.Error()); err != nil {
		log.Error("failed to record initiation diagnostic", "error", err)
	}

	return errors.NewExternalError("payment could not be started: "+cause.Error(), errors.ErrCodePaymentInitiationFailed, cause)
}

// HandleCallback decodes one provider delivery, reconciles it and writes the
// delivery to the callback log. Only malformed payloads return an error.
func (s *Service) HandleCallback(ctx context.Context, body []byte) (CallbackOutcome, error) {
	var envelope mpesa.STKCallbackEnvelope

	var (
		outcome CallbackOutcome
		err     error
	)
	if decodeErr := json.Unmarshal(body, &envelope); decodeErr != nil {
		outcome, err = OutcomeMalformed, errors.ErrMalformedCallback.WithCause(decodeErr)
	} else {
		outcome, err = s.ReconcileCallback(ctx, &envelope)
	}

	s.recordCallback(ctx, body, &envelope, outcome)

	return outcome, err
}

func (s *Service) ReconcileCallback(ctx context.Context, envelope *mpesa.STKCallbackEnvelope) (CallbackOutcome, error) {
	cb := envelope.Callback()
	if cb == nil || cb.CheckoutRequestID == "" || cb.ResultCode == nil {
		s.logger.Warn("malformed payment callback")
		return OutcomeMalformed, errors.ErrMalformedCallback
	}

	resultCode := int64(*cb.ResultCode)
	log := logger.From(ctx).With("checkout_request_id", cb.CheckoutRequestID, "result_code", resultCode)

	var receipt string
	if resultCode == mpesa.ResultCodeSuccess {
		var ok bool
		receipt, ok = cb.CallbackMetadata.Lookup(mpesa.MetadataReceiptNumber)
		if !ok {
			log.Warn("successful callback without receipt number")
			return OutcomeMalformed, errors.ErrMalformedCallback
		}
	}

	record, err := s.repo.GetByCheckoutRequestID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if stderrors.Is(err, errors.ErrPaymentNotFound) {
			log.Info("callback for unknown checkout request id")
			return OutcomeUnknown, nil
		}
		log.Error("failed to load payment for callback", "error", err)
		return OutcomeError, nil
	}

	log = log.With("payment_id", record.ID)

	if IsTerminal(record.Status) {
		log.Info("callback for already reconciled payment", "status", record.Status)
		return OutcomeAlreadyReconciled, nil
	}

	var t Transition
	if resultCode == mpesa.ResultCodeSuccess {
		t = completedTransition(receipt, s.now(), nil, nil)
	} else {
		desc := cb.ResultDesc
		t = failedTransition(&desc, nil)
	}

	applied, err := s.repo.Transition(ctx, record.ID, t)
	if err != nil {
		log.Error("failed to apply callback", "error", err, "status", t.Status)
		return OutcomeError, nil
	}
	if !applied {
		log.Info("callback lost race to another reconciliation")
		return OutcomeAlreadyReconciled, nil
	}

	log.Info("payment reconciled from callback", "status", t.Status)
	s.publishTransition(ctx, record, t)

	return OutcomeApplied, nil
}

func (s *Service) recordCallback(ctx context.Context, body []byte, envelope *mpesa.STKCallbackEnvelope, outcome CallbackOutcome) {
	entry := &payment.CallbackLog{
		ID:      uuid.NewString(),
		Outcome: string(outcome),
		Payload: callbackPayload(body),
	}

	if cb := envelope.Callback(); cb != nil {
		if cb.CheckoutRequestID != "" {
			id := cb.CheckoutRequestID
			entry.CheckoutRequestID = &id
		}
		if cb.ResultCode != nil {
			code := int64(*cb.ResultCode)
			entry.ResultCode = &code
		}
	}

	if err := s.callbackLog.Record(ctx, entry); err != nil {
		s.logger.Error("failed to record payment callback", "error", err, "outcome", outcome)
	}
}

func callbackPayload(body []byte) datatypes.JSON {
	if json.Valid(body) {
		return datatypes.JSON(body)
	}
	quoted, _ := json.Marshal(string(body))
	return datatypes.JSON(quoted)
}

// ReconcileManually applies an operator's terminal decision through the same
// conditional transition the callback path uses.
func (s *Service) ReconcileManually(ctx context.Context, paymentID, operatorID string, req ManualReconcileRequest) (*payment.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		if stderrors.Is(err, errors.ErrPaymentNotFound) {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.NewInternalError("failed to load payment", err)
	}

	if !IsValidTransition(record.Status, req.Status) {
		return nil, errors.ErrPaymentAlreadyReconciled
	}

	operator := operatorID
	var t Transition
	if req.Status == StatusCompleted {
		t = completedTransition(*req.ReceiptNumber, s.now(), &operator, req.Notes)
	} else {
		t = failedTransition(req.Notes, &operator)
	}

	applied, err := s.repo.Transition(ctx, record.ID, t)
	if err != nil {
		return nil, errors.NewInternalError("failed to reconcile payment", err)
	}
	if !applied {
		return nil, errors.ErrPaymentAlreadyReconciled
	}

	s.logger.Info("payment reconciled manually",
		"payment_id", record.ID,
		"operator_id", operatorID,
		"status", t.Status)

	s.publishTransition(ctx, record, t)

	updated, err := s.repo.GetByID(ctx, record.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to reload payment", err)
	}
	return updated, nil
}

func (s *Service) publishTransition(ctx context.Context, record *payment.Payment, t Transition) {
	if s.publisher == nil {
		return
	}

	checkoutRequestID := ""
	if record.CheckoutRequestID != nil {
		checkoutRequestID = *record.CheckoutRequestID
	}

	var event events.Event
	if t.Status == StatusCompleted {
		event = events.NewPaymentCompletedEvent(record.ID, record.TenantID, record.LeaseID, record.Amount, checkoutRequestID, *t.ReceiptNumber, t.ProcessedBy)
	} else {
		reason := ""
		if t.Notes != nil {
			reason = *t.Notes
		}
		event = events.NewPaymentFailedEvent(record.ID, record.TenantID, record.LeaseID, record.Amount, checkoutRequestID, reason, t.ProcessedBy)
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment event", "error", err, "event_type", event.EventType(), "payment_id", record.ID)
	}
}

func (s *Service) ListForPayer(ctx context.Context, payerID string) ([]PaymentView, error) {
	views, err := s.queries.ListForTenant(ctx, payerID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list payments", err)
	}
	return views, nil
}

func (s *Service) ListAll(ctx context.Context, filter ListFilter) ([]PaymentView, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	views, err := s.queries.List(ctx, filter.WithDefaults())
	if err != nil {
		return nil, errors.NewInternalError("failed to list payments", err)
	}
	return views, nil
}

func (s *Service) Summary(ctx context.Context, filter ListFilter) (*Summary, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	summary, err := s.queries.Summarize(ctx, filter)
	if err != nil {
		return nil, errors.NewInternalError("failed to summarize payments", err)
	}
	return summary, nil
}

// ListStale returns PENDING payments created more than olderThan ago.
func (s *Service) ListStale(ctx context.Context, olderThan time.Duration) ([]payment.Payment, error) {
	if olderThan <= 0 {
		return nil, errors.NewValidationError("older-than must be positive", errors.ErrCodeValidationFailed)
	}

	stale, err := s.repo.ListStale(ctx, s.now().Add(-olderThan))
	if err != nil {
		return nil, errors.NewInternalError("failed to list stale payments", err)
	}
	return stale, nil
}
