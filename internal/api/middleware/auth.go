package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trellis-commerce/storefront-api/internal/models"
	"github.com/trellis-commerce/storefront-api/internal/token"
	"github.com/trellis-commerce/storefront-api/internal/utils/response"
)

type authContextKey string

// UserContextKey carries the authenticated caller's claims.
const UserContextKey = authContextKey("authUser")

const (
	msgAuthRequired = "Authentication required to access this resource"
	msgForbidden    = "You do not have access to this resource"
)

// AuthMiddleware guards routes with bearer-token checks. Authentication and
// authorization failures resolve here, before any validation runs, so a
// request can never trade a 401/403 for a 400/404.
type AuthMiddleware struct {
	tokens *token.Service
}

func NewAuthMiddleware(tokens *token.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) verify(r *http.Request) (*models.Claims, bool) {

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, false
	}

	claims, err := m.tokens.Verify(tokenParts[1])
	if err != nil {
		return nil, false
	}

	return claims, true
}

// Authenticate requires a verifiable bearer token and attaches the resolved
// caller identity to the request context for downstream ownership checks.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		claims, ok := m.verify(r)
		if !ok {
			logger.Warn("Authentication failed")
			response.Fail(w, http.StatusUnauthorized, map[string]string{"auth": msgAuthRequired})

			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)

		requestLogger := logger.With(slog.Int64("userId", claims.UserID))
		ctx = context.WithValue(ctx, LoggerKey, requestLogger)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireAdmin requires a verifiable bearer token carrying the admin role.
// Verification failures stay a 401; a valid non-admin token is a 403. It
// does not attach caller identity; routes that also need ownership checks
// authenticate first and test the role themselves.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		claims, ok := m.verify(r)
		if !ok {
			logger.Warn("Authentication failed on admin route")
			response.Fail(w, http.StatusUnauthorized, map[string]string{"auth": msgAuthRequired})

			return
		}

		if claims.Role != models.RoleAdmin {
			logger.Warn("Admin access denied", slog.Int64("userId", claims.UserID))
			response.Fail(w, http.StatusForbidden, map[string]string{"auth": msgForbidden})

			return
		}

		next.ServeHTTP(w, r)
	}
}

// ClaimsFromContext returns the caller identity attached by Authenticate.
func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)

	return claims, ok
}

// Forbidden writes the uniform 403 body used by ownership checks.
func Forbidden(w http.ResponseWriter) {
	response.Fail(w, http.StatusForbidden, map[string]string{"auth": msgForbidden})
}
