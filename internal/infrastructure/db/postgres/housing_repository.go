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

var _ ports.HousingRepository = (*HousingRepository)(nil)

// HousingRepository implements ports.HousingRepository on top of gorm.
type HousingRepository struct {
	db *gorm.DB
}

func NewHousingRepository(db *gorm.DB) *HousingRepository {
	return &HousingRepository{db: db}
}

func (r *HousingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Housing, error) {
	return findHousing(r.db.WithContext(ctx), id)
}

func (r *HousingRepository) List(ctx context.Context) ([]*domain.Housing, error) {
	var rows []housingModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list housings")
	}
	out := make([]*domain.Housing, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *HousingRepository) Create(ctx context.Context, h *domain.Housing) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(toHousingModel(h)).Error, "create housing")
}

// UpdateDetails never writes user_id or is_booked.
func (r *HousingRepository) UpdateDetails(ctx context.Context, id uuid.UUID, d domain.HousingDetails) (*domain.Housing, error) {
	var m housingModel
	res := r.db.WithContext(ctx).Model(&m).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"rooms":       d.Rooms,
			"address":     d.Address,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update housing")
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrHousingNotFound
	}
	return m.toDomain(), nil
}

func findHousing(db *gorm.DB, id uuid.UUID) (*domain.Housing, error) {
	var m housingModel
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrHousingNotFound
		}
		return nil, errors.Wrap(err, "find housing")
	}
	return m.toDomain(), nil
}
