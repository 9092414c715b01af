package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
)

var _ ports.TransactionManager = (*TransactionManager)(nil)

// TransactionManager implements ports.TransactionManager using gorm transactions.
type TransactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// Execute runs fn within a single database transaction. fn's error is
// returned unchanged so callers can match domain errors.
func (tm *TransactionManager) Execute(ctx context.Context, fn func(tx ports.Tx) error) error {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&gormTx{db: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, gorm.ErrInvalidTransaction) {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// gormTx binds the Tx operations to one open transaction.
type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LockHousing(_ context.Context, id uuid.UUID) (*domain.Housing, error) {
	return findHousing(t.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (t *gormTx) LockUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return lockUser(t.db, "id = ?", id)
}

func (t *gormTx) LockUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return lockUser(t.db, "email = ?", email)
}

// Link writes both pointers with conditional updates so a concurrent writer
// that slipped past the locks still cannot double-book.
func (t *gormTx) Link(_ context.Context, housingID, userID uuid.UUID) error {
	now := time.Now().UTC()

	res := t.db.Model(&housingModel{}).
		Where("id = ? AND user_id IS NULL", housingID).
		Updates(map[string]any{"user_id": userID, "is_booked": true, "updated_at": now})
	if err := linkError(res.Error, domain.ErrUserAlreadyHasHousing); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return domain.ErrHousingAlreadyBooked
	}

	res = t.db.Model(&userModel{}).
		Where("id = ? AND housing_id IS NULL", userID).
		Updates(map[string]any{"housing_id": housingID, "updated_at": now})
	if err := linkError(res.Error, domain.ErrHousingAlreadyBooked); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserAlreadyHasHousing
	}
	return nil
}

func (t *gormTx) Unlink(_ context.Context, housingID, userID uuid.UUID) error {
	now := time.Now().UTC()

	res := t.db.Model(&housingModel{}).
		Where("id = ? AND user_id = ?", housingID, userID).
		Updates(map[string]any{"user_id": nil, "is_booked": false, "updated_at": now})
	if res.Error != nil {
		return errors.Wrap(res.Error, "unlink housing")
	}
	if res.RowsAffected == 0 {
		return domain.ErrInconsistentState
	}

	res = t.db.Model(&userModel{}).
		Where("id = ? AND housing_id = ?", userID, housingID).
		Updates(map[string]any{"housing_id": nil, "updated_at": now})
	if res.Error != nil {
		return errors.Wrap(res.Error, "unlink user")
	}
	if res.RowsAffected == 0 {
		return domain.ErrInconsistentState
	}
	return nil
}

func (t *gormTx) DeleteHousing(_ context.Context, id uuid.UUID) error {
	res := t.db.Where("id = ?", id).Delete(&housingModel{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete housing")
	}
	if res.RowsAffected == 0 {
		return domain.ErrHousingNotFound
	}
	return nil
}

func (t *gormTx) SaveRefreshToken(_ context.Context, userID uuid.UUID, hash string, expiresAt time.Time) error {
	return saveRefreshToken(t.db, userID, hash, expiresAt)
}

// linkError maps a unique-index violation on the occupancy columns to the
// matching conflict.
func linkError(err, onDuplicate error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return onDuplicate
	}
	return errors.Wrap(err, "link occupancy")
}
