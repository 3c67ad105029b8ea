package tax

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/pkg/db/models"
)

// ErrNotConfigured is returned when a restaurant has no tax settings row.
var ErrNotConfigured = errors.New("tax rate not configured")

// Source loads the configured rate for a restaurant.
type Source interface {
	LoadRate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, error)
}

// SettingsRepository reads tax rates from restaurant_settings.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) LoadRate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, error) {
	var settings models.RestaurantSettings
	err := r.db.WithContext(ctx).
		Select("restaurant_id", "tax_rate").
		Where("restaurant_id = ?", restaurantID).
		Take(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrNotConfigured
		}
		return decimal.Zero, err
	}
	return settings.TaxRate, nil
}
