package user

import (
	"context"
	stderrors "errors"

	errors "github.com/frahmantamala/rental-management/internal"
)

type Service struct {
	repo Repository
}

// Repository returns errors.ErrUserNotFound when the id is unknown.
type Repository interface {
	GetByID(ctx context.Context, userID string) (*User, error)
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) GetByID(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.NewInternalError("failed to get user by id", err)
	}
	return u, nil
}

// Email returns the address for userID. It satisfies the notification
// package's recipient lookup.
func (s *Service) Email(ctx context.Context, userID string) (string, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}
