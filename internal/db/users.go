package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"podhost/internal/models"
)

// CreateUser inserts a user. A duplicate email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, email string, name *string) (*models.User, error) {
	user := &models.User{ID: uuid.NewString(), Email: email, Name: name, CreatedAt: s.now()}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, email, name, created_at)
		VALUES (?, ?, ?, ?)`),
		user.ID, user.Email, user.Name, user.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.GetContext(ctx, user, s.q("SELECT id, email, name, created_at FROM users WHERE email = ?"), email)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// CreateAPIToken stores the hash of a bearer token for userID.
func (s *Store) CreateAPIToken(ctx context.Context, userID, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO api_tokens (token_hash, user_id, created_at)
		VALUES (?, ?, ?)`),
		tokenHash, userID, s.now())
	if err != nil {
		return fmt.Errorf("create api token: %w", err)
	}
	return nil
}

// GetUserByTokenHash resolves a bearer token hash to its user.
func (s *Store) GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	user := &models.User{}
	err := s.db.GetContext(ctx, user, s.q(`
		SELECT u.id, u.email, u.name, u.created_at
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = ?`), tokenHash)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}
