package ports

import (
	"context"
	"time"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

// RegisterInput carries the fields submitted on sign-up.
type RegisterInput struct {
	Name     string `validate:"required,max=255"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=6,max=72"`
}

// Session is the result of a successful credential exchange.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Claims is the identity recovered from a verified session token.
type Claims struct {
	UserID    int64
	Name      string
	Email     string
	ExpiresAt time.Time
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
}

// SessionIssuer mints signed, time-boxed tokens for a user.
type SessionIssuer interface {
	Issue(user *domain.User) (token string, expiresAt time.Time, err error)
}

// SessionValidator verifies a presented token. It never touches the store.
type SessionValidator interface {
	Validate(token string) (*Claims, error)
}
