package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	notificationmodel "github.com/frahmantamala/rental-management/internal/core/datamodel/notification"
)

type Service struct {
	repo       RepositoryAPI
	mailer     Mailer
	recipients RecipientLookup
	logger     *slog.Logger
}

// NewService builds the notification sink. mailer may be nil, in which case
// only in-app notifications are stored.
func NewService(repo RepositoryAPI, mailer Mailer, recipients RecipientLookup, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		mailer:     mailer,
		recipients: recipients,
		logger:     logger,
	}
}

// Notify stores an in-app notification and, when email is configured, mails it.
// A failed email does not fail the notification.
func (s *Service) Notify(ctx context.Context, userID, title, message, notificationType string) error {
	n := &notificationmodel.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notificationType,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.mailer == nil || s.recipients == nil {
		return nil
	}

	to, err := s.recipients.Email(ctx, userID)
	if err != nil {
		s.logger.Warn("no email address for notification", "user_id", userID, "error", err)
		return nil
	}
	if err := s.mailer.Send(ctx, to, title, message); err != nil {
		s.logger.Error("failed to email notification", "user_id", userID, "notification_id", n.ID, "error", err)
	}
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]notificationmodel.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.ListForUser(ctx, userID, limit)
}
