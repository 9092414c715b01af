package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
)

// HousingRepository covers reads and the occupancy-free writes. Anything that
// touches the occupant pointers goes through Tx.
type HousingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Housing, error)
	List(ctx context.Context) ([]*domain.Housing, error)
	Create(ctx context.Context, h *domain.Housing) error
	// UpdateDetails overwrites name, description, rooms and address only.
	UpdateDetails(ctx context.Context, id uuid.UUID, d domain.HousingDetails) (*domain.Housing, error)
}
