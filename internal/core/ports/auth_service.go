package ports

import (
	"context"
	"time"

	"github.com/staybook/booking-api/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.Register.
type RegisterInput struct {
	Username    string
	Email       string
	PhoneNumber string
	Password    string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.AuthenticationResponse, error)
	Login(ctx context.Context, emailOrUsername, password string) (*domain.AuthenticationResponse, error)
	// Refresh exchanges a possibly expired access token plus its refresh token
	// for a new pair. Refresh tokens are single use.
	Refresh(ctx context.Context, accessToken, refreshToken string) (*domain.AuthenticationResponse, error)
	Logout(ctx context.Context, identity domain.Identity) error
}

// RevocationStore records access tokens that must be rejected before expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
