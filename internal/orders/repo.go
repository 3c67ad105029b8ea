package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/pagination"
)

var (
	// ErrOrderNotFound covers both missing orders and orders of another tenant.
	ErrOrderNotFound = errors.New("order not found")
	// ErrVersionConflict means the guarded update matched no row.
	ErrVersionConflict = errors.New("order version conflict")
)

const nextOrderNumberSQL = `INSERT INTO order_number_sequences (restaurant_id, last_number) VALUES (?, 1)
ON CONFLICT (restaurant_id) DO UPDATE SET last_number = order_number_sequences.last_number + 1
RETURNING last_number`

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder allocates the next per-restaurant order number and inserts the
// order with its initial history row. Call it on a transaction-bound repository.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order, initial *models.OrderStatusHistory) error {
	if order == nil || initial == nil {
		return errors.New("order and initial history required")
	}
	db := r.db.WithContext(ctx)

	var number int64
	if err := db.Raw(nextOrderNumberSQL, order.RestaurantID).Row().Scan(&number); err != nil {
		return fmt.Errorf("allocate order number: %w", err)
	}
	order.OrderNumber = number

	if err := db.Create(order).Error; err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	initial.OrderID = order.ID
	initial.RestaurantID = order.RestaurantID
	if err := db.Create(initial).Error; err != nil {
		return fmt.Errorf("insert order history: %w", err)
	}
	return nil
}

func (r *repository) FindByIDForTenant(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", orderID, tenantID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus applies change only if the row still carries the expected
// version, bumps the version by exactly one and appends the history row.
func (r *repository) UpdateStatus(ctx context.Context, change StatusChange) (*models.Order, error) {
	db := r.db.WithContext(ctx)
	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	updates := map[string]any{
		"status":     change.To,
		"version":    gorm.Expr("version + 1"),
		"updated_at": at,
	}
	if change.TimestampColumn != "" {
		updates[change.TimestampColumn] = at
	}
	if change.ManualFire {
		updates["manually_fired"] = true
	}

	res := db.Model(&models.Order{}).
		Where("id = ? AND restaurant_id = ? AND version = ?", change.OrderID, change.TenantID, change.ExpectedVersion).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrVersionConflict
	}

	from := change.From
	history := models.OrderStatusHistory{
		ID:           uuid.New(),
		OrderID:      change.OrderID,
		RestaurantID: change.TenantID,
		FromStatus:   &from,
		ToStatus:     change.To,
		Actor:        change.Actor,
		ActorRole:    change.ActorRole,
		Version:      change.ExpectedVersion + 1,
		Reason:       change.Reason,
		OccurredAt:   at,
	}
	if err := db.Create(&history).Error; err != nil {
		return nil, fmt.Errorf("insert order history: %w", err)
	}
	return r.FindByIDForTenant(ctx, change.TenantID, change.OrderID)
}

func (r *repository) ListHistory(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND restaurant_id = ?", orderID, tenantID).
		Order("version ASC").
		Find(&rows).Error
	return rows, err
}

// ListActive returns the live board: non-terminal orders, oldest first,
// excluding scheduled orders that have not fired yet.
func (r *repository) ListActive(ctx context.Context, tenantID uuid.UUID, filter ActiveOrderFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("restaurant_id = ?", tenantID).
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCancelled}).
		Where("NOT (status = ? AND is_scheduled = ? AND manually_fired = ?)", enums.OrderStatusNew, true, false)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []models.Order
	err := query.Order("created_at ASC").Order("order_number ASC").Find(&rows).Error
	return rows, err
}

// ListOrders pages through the order log newest first, keyed by order number.
func (r *repository) ListOrders(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filter OrderListFilter) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Where("restaurant_id = ?", tenantID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", filter.DateTo.UTC())
	}
	if cursor != nil {
		query = query.Where("order_number < ?", cursor.Before)
	}

	var rows []models.Order
	if err := query.
		Order("order_number DESC").
		Limit(limit + 1).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	page, more := pagination.Trim(rows, limit)
	list := &OrderList{Orders: page}
	if more {
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{Before: page[len(page)-1].OrderNumber})
	}
	return list, nil
}

// FindDueScheduled scans every tenant for dormant scheduled orders whose fire
// time has passed. Only the scheduler calls it.
func (r *repository) FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND is_scheduled = ? AND manually_fired = ?", enums.OrderStatusNew, true, false).
		Where("auto_fire_time IS NOT NULL AND auto_fire_time <= ?", now.UTC()).
		Order("auto_fire_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Order
	err := query.Find(&rows).Error
	return rows, err
}
