package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// Roles assignable to a profile.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrSessionNotFound is returned when no live session matches a token hash.
var ErrSessionNotFound = errors.New("session not found")

// User is the authenticated identity attached to a request.
type User struct {
	ID       string
	FullName string
	Role     string
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Repository resolves bearer tokens to users. Tokens are stored hashed: a
// lookup receives the SHA-256 hex digest of the presented token and must
// only match sessions that have not expired.
type Repository interface {
	FindByTokenHash(ctx context.Context, hash string) (*User, error)
}
