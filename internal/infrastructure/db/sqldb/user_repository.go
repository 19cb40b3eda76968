package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user. The unique email constraint turns a second
// registration into domain.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	created.CreatedAt = timestamp(user.CreatedAt)
	created.UpdatedAt = timestamp(user.UpdatedAt)

	id, err := r.db.insert(ctx, r.db.conn,
		`INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		created.Name, created.Email, created.PasswordHash, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		if r.db.isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created.ID = id
	return &created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.conn.QueryRowContext(ctx,
		r.db.rebind(`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = ?`),
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
