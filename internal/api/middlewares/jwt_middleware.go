package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/markdave123-py/AmityBot/internal/models"
	"github.com/markdave123-py/AmityBot/internal/services"
)

// AuthCookie is read when no Authorization header is present.
const AuthCookie = "auth"

type identityKey struct{}

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (*services.Claims, error)
}

// RoleMiddleware attaches the caller's identity to the request context.
// Requests without a valid token continue as the general role.
func RoleMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractToken(r)
			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Parse(tok)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey{}, *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects callers that are not signed in.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RoleFrom(r.Context()) != models.RoleAuthenticated {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom returns the claims RoleMiddleware stored, if any.
func IdentityFrom(ctx context.Context) (services.Claims, bool) {
	c, ok := ctx.Value(identityKey{}).(services.Claims)
	return c, ok
}

func RoleFrom(ctx context.Context) models.Role {
	if c, ok := IdentityFrom(ctx); ok {
		return c.Role
	}
	return models.RoleGeneral
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if ck, err := r.Cookie(AuthCookie); err == nil {
		return ck.Value
	}
	return ""
}
