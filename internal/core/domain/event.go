package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingAction names a committed state machine mutation.
type BookingAction string

const (
	ActionCreated  BookingAction = "created"
	ActionUpdated  BookingAction = "updated"
	ActionBooked   BookingAction = "booked"
	ActionUnbooked BookingAction = "unbooked"
	ActionDeleted  BookingAction = "deleted"
)

// BookingEvent is the audit record emitted after every committed mutation.
type BookingEvent struct {
	ID         uuid.UUID     `json:"id" bson:"_id"`
	HousingID  uuid.UUID     `json:"housing_id" bson:"housing_id"`
	UserID     *uuid.UUID    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Action     BookingAction `json:"action" bson:"action"`
	OccurredAt time.Time     `json:"occurred_at" bson:"occurred_at"`
}
