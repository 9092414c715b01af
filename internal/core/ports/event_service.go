package ports

import (
	"context"

	"github.com/staybook/booking-api/internal/core/domain"
)

// EventService processes committed booking events.
type EventService interface {
	Process(ctx context.Context, event domain.BookingEvent) error
}

// EventSink accepts events for asynchronous processing. Enqueue must not
// block the caller.
type EventSink interface {
	Enqueue(event domain.BookingEvent) error
}
