package notification

import (
	"context"

	notificationmodel "github.com/frahmantamala/rental-management/internal/core/datamodel/notification"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type RepositoryAPI interface {
	Create(ctx context.Context, n *notificationmodel.Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]notificationmodel.Notification, error)
}

// Mailer sends a plain text message to one address.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RecipientLookup resolves the email address of a user.
type RecipientLookup interface {
	Email(ctx context.Context, userID string) (string, error)
}

type ServiceAPI interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]notificationmodel.Notification, error)
}
