package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/trellis-commerce/storefront-api/internal/models"
)

// Service issues and verifies signed identity tokens. It is stateless; the
// signing key and expiry policy come from configuration.
type Service struct {
	key    []byte
	expiry time.Duration
}

// New creates a token service. An expiry of 0 issues tokens without an
// expiry claim.
func New(key []byte, expiry time.Duration) *Service {
	return &Service{key: key, expiry: expiry}
}

// Issue signs a token carrying the user's id, email and role.
func (s *Service) Issue(user *models.User) (string, error) {

	claims := &models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	if s.expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(s.expiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a token string, returning its claims. Any
// signature, format or expiry problem is returned as an error.
func (s *Service) Verify(tokenString string) (*models.Claims, error) {

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return s.key, nil
	})

	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
