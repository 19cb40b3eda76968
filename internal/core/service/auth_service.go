package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/issuetracker/issues-api/internal/core/domain"
	"github.com/issuetracker/issues-api/internal/core/ports"
	"github.com/issuetracker/issues-api/internal/pkg/validation"
)

// AuthService implements registration and login.
type AuthService struct {
	repo       ports.UserRepository
	issuer     ports.SessionIssuer
	validate   *validation.Validator
	bcryptCost int
	metrics    ports.Metrics
	log        zerolog.Logger
}

// NewAuthService falls back to bcrypt.DefaultCost for an out-of-range cost.
// A nil m records nothing.
func NewAuthService(repo ports.UserRepository, issuer ports.SessionIssuer, bcryptCost int, m ports.Metrics, log zerolog.Logger) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &AuthService{
		repo:       repo,
		issuer:     issuer,
		validate:   validation.New(),
		bcryptCost: bcryptCost,
		metrics:    m,
		log:        log,
	}
}

func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := s.validate.Validate(&input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", created.ID).Msg("user registered")
	return created, nil
}

// Login fails closed: an unknown email, a wrong password and a store failure
// all return domain.ErrInvalidCredentials so callers cannot probe for
// registered addresses.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.LoginAttempt(false)
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Error().Err(err).Msg("credential lookup failed")
		}
		s.metrics.LoginAttempt(false)
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.metrics.LoginAttempt(false)
		return nil, domain.ErrInvalidCredentials
	}

	token, exp, err := s.issuer.Issue(user)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to sign session token")
		s.metrics.LoginAttempt(false)
		return nil, domain.ErrInvalidCredentials
	}

	s.metrics.LoginAttempt(true)
	return &ports.Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
