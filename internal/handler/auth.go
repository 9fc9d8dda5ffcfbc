package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/raditya/toko-backend/internal/domain/auth"
)

// userKey is the context key for the authenticated user.
type userKey struct{}

// userFrom extracts the authenticated user placed by requireAuth.
func userFrom(ctx context.Context) (*auth.User, bool) {
	u, ok := ctx.Value(userKey{}).(*auth.User)
	return u, ok
}

// requireAuth authenticates the Bearer token by looking up its SHA-256 hash
// in the session store and attaches the resolved user to the context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		sum := sha256.Sum256([]byte(token))
		u, err := h.sessions.FindByTokenHash(r.Context(), hex.EncodeToString(sum[:]))
		if err != nil {
			if !errors.Is(err, auth.ErrSessionNotFound) {
				zctx.From(r.Context()).Error("session lookup failed", zap.Error(err))
			}
			writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates a route to administrators. Must run after requireAuth.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := userFrom(r.Context())
		if !ok || !u.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
