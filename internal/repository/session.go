package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raditya/toko-backend/internal/domain/auth"
)

const findSessionSQL = `SELECT p.id, p.full_name, p.role
	FROM sessions s
	JOIN profiles p ON p.id = s.user_id
	WHERE s.token_hash = $1 AND s.expires_at > now()`

var _ auth.Repository = (*SessionRepository)(nil)

// SessionRepository resolves hashed bearer tokens to profiles.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash returns the user owning a live session with this token
// hash, or auth.ErrSessionNotFound.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.User, error) {
	var u auth.User
	err := r.pool.QueryRow(ctx, findSessionSQL, hash).Scan(&u.ID, &u.FullName, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return &u, nil
}
