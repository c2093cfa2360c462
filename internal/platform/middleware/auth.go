package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator validates access tokens presented to the API.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims carries the identity the middleware hands to handlers.
type JWTClaims struct {
	UserID      string
	Role        string
	ResponderID string
}

type contextKeyUserID struct{}
type contextKeyRole struct{}
type contextKeyResponderID struct{}

// GetUserID retrieves the authenticated user id from context.
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyUserID{}).(string)
	return v
}

// GetRole retrieves the authenticated role from context.
func GetRole(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyRole{}).(string)
	return v
}

// GetResponderID retrieves the responder id from context; empty for users
// who are not responders.
func GetResponderID(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyResponderID{}).(string)
	return v
}

// RequireAuth validates the bearer token and stores the claims in context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access, missing token",
					slog.String("request_id", GetRequestID(ctx)),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					slog.Any("error", err),
					slog.String("request_id", GetRequestID(ctx)),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, contextKeyUserID{}, claims.UserID)
			ctx = context.WithValue(ctx, contextKeyRole{}, claims.Role)
			ctx = context.WithValue(ctx, contextKeyResponderID{}, claims.ResponderID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","description":"` + description + `"}`))
}
