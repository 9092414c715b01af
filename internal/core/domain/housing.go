package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHousingNotFound       = errors.New("housing not found")
	ErrHousingAlreadyBooked  = errors.New("housing is already booked")
	ErrHousingNotBooked      = errors.New("housing is not booked")
	ErrUserAlreadyHasHousing = errors.New("user already holds a booking")
	ErrForbidden             = errors.New("access forbidden")
	// ErrInconsistentState is returned when the two sides of an occupancy
	// link disagree, e.g. a booked housing whose owner row is gone.
	ErrInconsistentState = errors.New("inconsistent booking state")
)

// Housing is a listing that can be booked by at most one user.
//
// Invariant: IsBooked == (UserID != nil). Mutate occupancy only through
// AssignTo and Release so both fields move together.
type Housing struct {
	ID          uuid.UUID
	Name        string
	Description string
	Rooms       int
	Address     string
	IsBooked    bool
	UserID      *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookedBy reports whether userID is the current occupant.
func (h *Housing) BookedBy(userID uuid.UUID) bool {
	return h.UserID != nil && *h.UserID == userID
}

// AssignTo moves the housing into the booked state for userID.
func (h *Housing) AssignTo(userID uuid.UUID) error {
	if h.UserID != nil {
		return ErrHousingAlreadyBooked
	}
	id := userID
	h.UserID = &id
	h.IsBooked = true
	return nil
}

// Release moves the housing back to the unbooked state. Only the current
// occupant may release it.
func (h *Housing) Release(userID uuid.UUID) error {
	if h.UserID == nil {
		return ErrHousingNotBooked
	}
	if *h.UserID != userID {
		return ErrForbidden
	}
	h.UserID = nil
	h.IsBooked = false
	return nil
}

// HousingDetails holds the fields an administrator may overwrite. Occupancy
// is never part of it.
type HousingDetails struct {
	Name        string
	Description string
	Rooms       int
	Address     string
}

// Apply copies details onto the housing without touching occupancy.
func (h *Housing) Apply(d HousingDetails) {
	h.Name = d.Name
	h.Description = d.Description
	h.Rooms = d.Rooms
	h.Address = d.Address
}
