package middleware

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"podhost/internal/db"
	"podhost/internal/models"
	"podhost/internal/respond"
)

// UserStore resolves API token hashes to users.
type UserStore interface {
	GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
}

// HashToken is the form in which API tokens are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewToken returns a random API token and its hash.
func NewToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

// AuthMiddleware validates the bearer token and stores the user in the
// request context.
func AuthMiddleware(users UserStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respond.Error(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				respond.Error(w, http.StatusUnauthorized, "Authorization header format must be 'Bearer <token>'")
				return
			}

			user, err := users.GetUserByTokenHash(r.Context(), HashToken(token))
			if errors.Is(err, db.ErrNotFound) {
				respond.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if err != nil {
				logger.Error("Failed to look up API token", zap.Error(err))
				respond.Error(w, http.StatusInternalServerError, "Failed to authenticate user")
				return
			}

			ctx := context.WithValue(r.Context(), models.UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by AuthMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(models.UserContextKey).(*models.User)
	return user, ok && user != nil
}
