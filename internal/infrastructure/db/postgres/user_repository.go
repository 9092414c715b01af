package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

var _ ports.UserRepository = (*UserRepository)(nil)

// UserRepository implements ports.UserRepository on top of gorm.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return findUser(r.db.WithContext(ctx), "id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return findUser(r.db.WithContext(ctx), "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, login string) (*domain.User, error) {
	u, err := findUser(r.db.WithContext(ctx), "username = ?", login)
	if errors.Is(err, domain.ErrUserNotFound) {
		return r.FindByEmail(ctx, login)
	}
	return u, err
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(toUserModel(user)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrUserExists
	}
	return errors.Wrap(err, "create user")
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	res := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": string(role), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update user role")
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SaveRefreshToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	return saveRefreshToken(r.db.WithContext(ctx), id, hash, expiresAt)
}

func findUser(db *gorm.DB, query string, args ...any) (*domain.User, error) {
	var m userModel
	if err := db.Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	return m.toDomain(), nil
}

func lockUser(db *gorm.DB, query string, args ...any) (*domain.User, error) {
	return findUser(db.Clauses(clause.Locking{Strength: "UPDATE"}), query, args...)
}

func saveRefreshToken(db *gorm.DB, id uuid.UUID, hash string, expiresAt time.Time) error {
	var exp any
	if !expiresAt.IsZero() {
		exp = expiresAt.UTC()
	}
	res := db.Model(&userModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"refresh_token_hash":       hash,
			"refresh_token_expires_at": exp,
			"updated_at":               time.Now().UTC(),
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "save refresh token")
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
