package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/staybook/booking-api/internal/core/domain"
)

type userModel struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Username              string     `gorm:"size:50;not null;uniqueIndex:users_username_key"`
	Email                 string     `gorm:"size:255;not null;uniqueIndex:users_email_key"`
	PhoneNumber           string     `gorm:"size:32;not null"`
	PasswordHash          string     `gorm:"not null"`
	Role                  string     `gorm:"size:16;not null"`
	RefreshTokenHash      string     `gorm:"size:64;not null"`
	RefreshTokenExpiresAt *time.Time
	HousingID             *uuid.UUID `gorm:"type:uuid"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (userModel) TableName() string { return "users" }

type housingModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"size:100;not null"`
	Description string     `gorm:"size:250;not null"`
	Rooms       int        `gorm:"not null"`
	Address     string     `gorm:"size:200;not null"`
	IsBooked    bool       `gorm:"not null"`
	UserID      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (housingModel) TableName() string { return "housings" }

func toUserModel(u *domain.User) *userModel {
	m := &userModel{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		PhoneNumber:      u.PhoneNumber,
		PasswordHash:     u.PasswordHash,
		Role:             string(u.Role),
		RefreshTokenHash: u.RefreshTokenHash,
		HousingID:        u.HousingID,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if !u.RefreshTokenExpiresAt.IsZero() {
		t := u.RefreshTokenExpiresAt
		m.RefreshTokenExpiresAt = &t
	}
	if m.Role == "" {
		m.Role = string(domain.RoleUser)
	}
	return m
}

func (m *userModel) toDomain() *domain.User {
	u := &domain.User{
		ID:               m.ID,
		Username:         m.Username,
		Email:            m.Email,
		PhoneNumber:      m.PhoneNumber,
		PasswordHash:     m.PasswordHash,
		Role:             domain.Role(m.Role),
		RefreshTokenHash: m.RefreshTokenHash,
		HousingID:        m.HousingID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.RefreshTokenExpiresAt != nil {
		u.RefreshTokenExpiresAt = *m.RefreshTokenExpiresAt
	}
	return u
}

func toHousingModel(h *domain.Housing) *housingModel {
	return &housingModel{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		Rooms:       h.Rooms,
		Address:     h.Address,
		IsBooked:    h.UserID != nil,
		UserID:      h.UserID,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}

func (m *housingModel) toDomain() *domain.Housing {
	return &domain.Housing{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Rooms:       m.Rooms,
		Address:     m.Address,
		IsBooked:    m.IsBooked,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
