package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
)

// UserRepository defines persistence operations for accounts.
// Lookups return domain.ErrUserNotFound when nothing matches.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByEmailOrUsername matches login against the username first, then the email.
	FindByEmailOrUsername(ctx context.Context, login string) (*domain.User, error)
	// Create returns domain.ErrUserExists on a username or email collision.
	Create(ctx context.Context, user *domain.User) error
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error
	// SaveRefreshToken replaces the stored refresh token hash. An empty hash clears it.
	SaveRefreshToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
}
