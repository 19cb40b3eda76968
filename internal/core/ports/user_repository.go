package ports

import (
	"context"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

// UserRepository defines the interface for credential persistence.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user has the given email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create returns domain.ErrUserExists when the email is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
