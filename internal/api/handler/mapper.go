package handler

import (
	"github.com/staybook/booking-api/internal/core/domain"
)

func toAuthenticationResponse(r *domain.AuthenticationResponse) authenticationResponse {
	return authenticationResponse{
		ID:                     r.ID,
		Username:               r.Username,
		Email:                  r.Email,
		Token:                  r.Token,
		Expiration:             r.Expiration,
		RefreshToken:           r.RefreshToken,
		RefreshTokenExpiration: r.RefreshTokenExpiration,
	}
}

func (r housingRequest) toDetails() domain.HousingDetails {
	return domain.HousingDetails{
		Name:        r.Name,
		Description: r.Description,
		Rooms:       r.Rooms,
		Address:     r.Address,
	}
}

func toHousingResponse(h *domain.Housing) housingResponse {
	return housingResponse{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		Rooms:       h.Rooms,
		Address:     h.Address,
		IsBooked:    h.IsBooked,
		UserID:      h.UserID,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}

func toHousingResponses(items []*domain.Housing) []housingResponse {
	out := make([]housingResponse, len(items))
	for i, h := range items {
		out[i] = toHousingResponse(h)
	}
	return out
}

func toBookingEventResponses(events []*domain.BookingEvent) []bookingEventResponse {
	out := make([]bookingEventResponse, len(events))
	for i, e := range events {
		out[i] = bookingEventResponse{
			ID:         e.ID,
			HousingID:  e.HousingID,
			UserID:     e.UserID,
			Action:     string(e.Action),
			OccurredAt: e.OccurredAt,
		}
	}
	return out
}
