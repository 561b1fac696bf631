package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/convertia/backend/internal/contextkeys"
	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/handler"
	"github.com/convertia/backend/internal/service"
)

// Auth creates a bearer-token authentication middleware.
func Auth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := bearerClaims(authSvc, r)
			if !ok {
				handler.JSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or invalid bearer token"})
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.AccountID, claims.Sub)
			ctx = context.WithValue(ctx, contextkeys.AccountEmail, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the account identity when a valid bearer token is
// present but lets anonymous requests through. Used on the pay-per-use
// endpoints, which accept both.
func OptionalAuth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := bearerClaims(authSvc, r); ok {
				ctx := context.WithValue(r.Context(), contextkeys.AccountID, claims.Sub)
				ctx = context.WithValue(ctx, contextkeys.AccountEmail, claims.Email)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerClaims(authSvc *service.AuthService, r *http.Request) (*domain.JWTClaims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, false
	}
	claims, err := authSvc.VerifyToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}
