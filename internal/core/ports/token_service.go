package ports

import "github.com/staybook/booking-api/internal/core/domain"

// TokenService issues and verifies access tokens.
type TokenService interface {
	CreateToken(user *domain.User) (*domain.AuthenticationResponse, error)
	// ValidateToken enforces signature, algorithm, issuer, audience and expiry.
	ValidateToken(token string) (*domain.Identity, error)
	// ValidateExpiredToken enforces everything ValidateToken does except expiry.
	ValidateExpiredToken(token string) (*domain.Identity, error)
}

// TokenValidator is the subset of TokenService the auth middleware needs.
type TokenValidator interface {
	ValidateToken(token string) (*domain.Identity, error)
}
