package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/muhammadjehanzaib/sultan-store/pkg/logger"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	RoleAdmin = "admin"
)

type contextKeyType string

const (
	userIDKey contextKeyType = "user_id"
	roleKey   contextKeyType = "role"
)

// GatewayIdentity reads the identity the API gateway forwards after it has
// authenticated the caller. The service must only be reachable through the
// gateway; the headers are trusted as-is.
func GatewayIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := strings.TrimSpace(r.Header.Get(HeaderUserID)); id != "" {
			ctx = context.WithValue(ctx, userIDKey, id)
			ctx = logger.WithUserID(ctx, id)
		}
		if role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))); role != "" {
			ctx = context.WithValue(ctx, roleKey, role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose role is not one of roles: 401 when no
// identity was forwarded, 403 otherwise.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
				return
			}
			if _, ok := allowed[role]; !ok {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the caller ID set by GatewayIdentity.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// RoleFromContext returns the caller role set by GatewayIdentity.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}
