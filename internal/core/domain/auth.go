package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrWeakSigningKey      = errors.New("signing key must be at least 32 bytes")
)

// AuthenticationResponse is produced on every successful token issuance.
// Only the refresh token pair is ever persisted, and only as a hash.
type AuthenticationResponse struct {
	ID                     uuid.UUID
	Username               string
	Email                  string
	Token                  string
	Expiration             time.Time
	RefreshToken           string
	RefreshTokenExpiration time.Time
}

// Identity is the verified content of an access token.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	Username  string
	Role      Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
