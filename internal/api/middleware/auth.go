package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ocean-haven/booking/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// WithClaims returns a copy of ctx carrying the caller's claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom returns the authenticated caller, or nil.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// BearerToken extracts the token from the Authorization header, falling back
// to the token query parameter used by browser WebSocket clients.
func BearerToken(r *http.Request) string {
	if hdr := r.Header.Get("Authorization"); strings.HasPrefix(hdr, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(hdr, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Missing bearer token")
				return
			}
			claims, err := issuer.Parse(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches the caller's claims when a valid token is present and
// lets anonymous requests through.
func OptionalAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := BearerToken(r); token != "" {
				if claims, err := issuer.Parse(token); err == nil {
					r = r.WithContext(WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner allows only owner callers. It must run after Authenticate.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims == nil {
			WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Authentication required")
			return
		}
		if !claims.IsOwner {
			WriteError(w, http.StatusForbidden, ErrForbidden, "Owner access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
