// Package menu is the read-only catalog view the order core prices items from.
package menu

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/pkg/db/models"
)

// Catalog returns menu items of one restaurant keyed by id. Items belonging to
// another restaurant are never returned.
type Catalog interface {
	Lookup(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Lookup(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error) {
	out := make(map[uuid.UUID]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.MenuItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
