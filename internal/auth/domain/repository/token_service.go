package repository

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the session credential payload
type Claims struct {
	UserID string `json:"userID"`
	Handle string `json:"handle"`
	jwt.RegisteredClaims
}

// TokenService defines token generation and validation operations
type TokenService interface {
	// GenerateToken issues a signed, time-bounded credential for the user.
	GenerateToken(ctx context.Context, userID, handle string) (string, error)
	// ValidateToken checks signature and expiry and returns the decoded claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// TokenRevoker marks credentials unusable before their natural expiry (logout).
type TokenRevoker interface {
	// Revoke denylists the token id for the remainder of its validity window.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	// IsRevoked reports whether the token id has been denylisted.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
