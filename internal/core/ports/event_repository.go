package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
)

// BookingEventRepository persists the booking audit trail.
type BookingEventRepository interface {
	Insert(ctx context.Context, event *domain.BookingEvent) error
	// ListByHousing returns the newest events first, at most limit of them.
	ListByHousing(ctx context.Context, housingID uuid.UUID, limit int) ([]*domain.BookingEvent, error)
}

// EventPublisher forwards booking events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.BookingEvent) error
}
