package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level carried in access tokens.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 8 characters and contain a lowercase letter and a digit")
)

// User models an account that may hold at most one housing.
type User struct {
	ID                    uuid.UUID
	Username              string
	Email                 string
	PhoneNumber           string
	PasswordHash          string
	Role                  Role
	RefreshTokenHash      string
	RefreshTokenExpiresAt time.Time
	HousingID             *uuid.UUID
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsAdmin reports whether the user holds the Admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HoldsHousing reports whether the user currently owns a booking.
func (u *User) HoldsHousing() bool {
	return u.HousingID != nil
}

// ValidPassword applies the registration password policy: minimum length 8,
// at least one lowercase letter and at least one digit.
func ValidPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var lower, digit bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && digit
}
