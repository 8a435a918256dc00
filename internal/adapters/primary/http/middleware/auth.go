package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/core/services"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserClaimsKey is the key used to store user claims in the request context.
const UserClaimsKey contextKey = "userClaims"

// JWTMiddleware validates the bearer token from the Authorization header.
// Browsers cannot set headers on websocket upgrades, so a "token" query
// parameter is accepted for GET requests.
func JWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, msg := bearerToken(r)
			if tokenString == "" {
				writeUnauthorized(w, msg)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = logging.WithUserID(ctx, claims.UserID.String())
			ctx = logging.WithTenantID(ctx, claims.TenantID.String())
			ctx = services.WithPermissionCache(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if r.Method == http.MethodGet {
			if token := r.URL.Query().Get("token"); token != "" {
				return token, ""
			}
		}
		return "", "Authorization header is required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Authorization header format must be Bearer {token}"
	}
	return parts[1], ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"UNAUTHORIZED"}`))
}

// WithClaims stores validated claims in ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// GetClaims returns the claims stored by JWTMiddleware.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}
