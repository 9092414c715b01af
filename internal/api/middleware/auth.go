package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

// identityKey is the echo context key holding the verified *domain.Identity.
const identityKey = "identity"

// Auth validates the bearer token and injects the verified identity into the
// context. Revoked tokens are rejected when a RevocationStore is given.
func Auth(tokens ports.TokenValidator, revocations ports.RevocationStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			identity, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token").SetInternal(err)
			}

			if revocations != nil && identity.TokenID != "" {
				revoked, err := revocations.IsRevoked(c.Request().Context(), identity.TokenID)
				if err != nil {
					return fmt.Errorf("auth: revocation check: %w", err)
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked").SetInternal(domain.ErrTokenRevoked)
				}
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Auth, if any.
func IdentityFrom(c echo.Context) (*domain.Identity, bool) {
	identity, ok := c.Get(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// WithIdentity stores identity the way Auth does. Useful for handlers mounted
// behind a different authenticator and for tests.
func WithIdentity(c echo.Context, identity *domain.Identity) {
	c.Set(identityKey, identity)
}
