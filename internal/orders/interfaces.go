package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/internal/realtime"
	"github.com/angelmondragon/floorops-backend/internal/tax"
	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/outbox"
	"github.com/angelmondragon/floorops-backend/pkg/pagination"
)

// Repository is the order store. Every read and write is scoped to a
// restaurant; callers never see rows of another tenant.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order, initial *models.OrderStatusHistory) error
	FindByIDForTenant(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, change StatusChange) (*models.Order, error)
	ListHistory(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	ListActive(ctx context.Context, tenantID uuid.UUID, filter ActiveOrderFilter) ([]models.Order, error)
	ListOrders(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filter OrderListFilter) (*OrderList, error)
	FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
}

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OutboxEmitter records integration events inside the caller's transaction.
type OutboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

// TaxRateResolver is the only source of tax rates for order totals.
type TaxRateResolver interface {
	RateFor(ctx context.Context, restaurantID uuid.UUID) (tax.Rate, error)
}

// MenuCatalog prices order lines from the restaurant's own menu.
type MenuCatalog interface {
	Lookup(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error)
}

// Broadcaster fans committed changes out to live views. Publish never blocks
// the caller and never fails the write that triggered it.
type Broadcaster interface {
	Publish(event realtime.Event) bool
}
