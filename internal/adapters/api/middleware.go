package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/keyward/keyward/internal/core/domain"
	"github.com/keyward/keyward/internal/core/ports"
)

type contextKey string

const (
	CtxUserID contextKey = "user_id"
	CtxRole   contextKey = "role"
)

// AuthMiddleware resolves the bearer token to a user identity. The token is
// hashed and looked up; missing, inactive or expired tokens terminate the
// request before any ledger access.
func AuthMiddleware(repo ports.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				httpError(w, r, "Unauthorized: missing or invalid authorization header", http.StatusUnauthorized)
				return
			}

			raw := strings.TrimPrefix(authHeader, "Bearer ")
			hash := sha256.Sum256([]byte(raw))
			tokenHash := hex.EncodeToString(hash[:])

			token, err := repo.GetAPITokenByHash(r.Context(), tokenHash)
			if err != nil {
				httpError(w, r, "Internal server error", http.StatusInternalServerError)
				return
			}

			if token == nil || !token.Active {
				httpError(w, r, "Unauthorized: invalid or revoked token", http.StatusUnauthorized)
				return
			}

			if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
				httpError(w, r, "Unauthorized: token expired", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CtxUserID, token.UserID)
			ctx = context.WithValue(ctx, CtxRole, token.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(CtxRole).(domain.Role)
			if !ok {
				httpError(w, r, "Forbidden: role not found in context", http.StatusForbidden)
				return
			}

			allowed := false
			for _, want := range roles {
				if want == role {
					allowed = true
					break
				}
			}

			if !allowed {
				httpError(w, r, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
