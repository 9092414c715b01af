package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
)

// HousingService is the booking state machine. The userID passed to Book and
// UnBook must come from a verified token subject.
type HousingService interface {
	List(ctx context.Context) ([]*domain.Housing, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Housing, error)
	Create(ctx context.Context, d domain.HousingDetails) (*domain.Housing, error)
	Update(ctx context.Context, id uuid.UUID, d domain.HousingDetails) (*domain.Housing, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Book(ctx context.Context, id, userID uuid.UUID) (*domain.Housing, error)
	UnBook(ctx context.Context, id, userID uuid.UUID) (*domain.Housing, error)
	History(ctx context.Context, id uuid.UUID, limit int) ([]*domain.BookingEvent, error)
}
