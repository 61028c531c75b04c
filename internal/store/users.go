package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fanlinkhq/fanlink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, role, created_at, updated_at`

// EmailExists reports whether a user row already claims the email
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	if !s.ready() {
		return false, nil
	}
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// CreateUser inserts the credential row and its profile in one transaction
func (s *Store) CreateUser(ctx context.Context, u *models.User, p *models.Profile) (*models.User, error) {
	if !s.ready() {
		return nil, ErrNotConfigured
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var user models.User
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		u.Email, u.PasswordHash, u.Role,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, email, full_name, role, feed_min_tier, messages_min_tier)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, p.FullName, user.Role, p.FeedMinTier, p.MessagesMinTier,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &user, nil
}

// GetUserByEmail fetches a user row by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if !s.ready() {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUser fetches a user row by id
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if !s.ready() {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
