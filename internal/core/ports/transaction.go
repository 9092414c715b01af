package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
)

// TransactionManager runs fn inside a single all-or-nothing unit of work.
// A non-nil error from fn, a panic or a cancelled ctx rolls everything back.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a transaction. Lock* calls
// hold the row until the transaction ends; callers lock the housing before
// the user.
type Tx interface {
	LockHousing(ctx context.Context, id uuid.UUID) (*domain.Housing, error)
	LockUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	LockUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// Link sets housing.user_id and user.housing_id together. It fails with
	// ErrHousingAlreadyBooked or ErrUserAlreadyHasHousing if either side was
	// taken since it was read.
	Link(ctx context.Context, housingID, userID uuid.UUID) error
	// Unlink clears both pointers. It fails with ErrInconsistentState if they
	// no longer point at each other.
	Unlink(ctx context.Context, housingID, userID uuid.UUID) error
	DeleteHousing(ctx context.Context, id uuid.UUID) error

	SaveRefreshToken(ctx context.Context, userID uuid.UUID, hash string, expiresAt time.Time) error
}
