package handler

import (
	"time"

	"github.com/google/uuid"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Account ---

type registerRequest struct {
	Username       string `json:"username"       validate:"required,min=3,max=50,alphanum"`
	Email          string `json:"email"          validate:"required,email"`
	PhoneNumber    string `json:"phoneNumber"    validate:"required,e164"`
	Password       string `json:"password"       validate:"required,min=8"`
	RepeatPassword string `json:"repeatPassword" validate:"required,eqfield=Password"`
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" validate:"required"`
	Password        string `json:"password"        validate:"required"`
}

type refreshRequest struct {
	Token        string `json:"token"        validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type authenticationResponse struct {
	ID                     uuid.UUID `json:"id"`
	Username               string    `json:"username"`
	Email                  string    `json:"email"`
	Token                  string    `json:"token"`
	Expiration             time.Time `json:"expiration"`
	RefreshToken           string    `json:"refreshToken"`
	RefreshTokenExpiration time.Time `json:"refreshTokenExpiration"`
}

// --- Housing ---

type housingRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=250"`
	Rooms       int    `json:"rooms"       validate:"required,min=1,max=100"`
	Address     string `json:"address"     validate:"required,max=200"`
}

type housingResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Rooms       int        `json:"rooms"`
	Address     string     `json:"address"`
	IsBooked    bool       `json:"isBooked"`
	UserID      *uuid.UUID `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type bookingEventResponse struct {
	ID         uuid.UUID  `json:"id"`
	HousingID  uuid.UUID  `json:"housingId"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	Action     string     `json:"action"`
	OccurredAt time.Time  `json:"occurredAt"`
}
