package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ocean-haven/booking/internal/storage/models"
)

// UserRepository provides data access for accounts.
type UserRepository struct {
	BaseRepository
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new user. An existing email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.CreatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO users (email, password_hash, full_name, is_owner, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.Email, u.PasswordHash, u.FullName, u.IsOwner, u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT email, password_hash, full_name, is_owner, created_at FROM users WHERE email = ?
	`, email).Scan(&u.Email, &u.PasswordHash, &u.FullName, &u.IsOwner, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return u, nil
}
