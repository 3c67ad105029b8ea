package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/pagination"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

func seedOrder(t *testing.T, db *gorm.DB, restaurantID uuid.UUID, created time.Time, mutate func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		RestaurantID:  restaurantID,
		Type:          enums.OrderTypeDineIn,
		Status:        enums.OrderStatusNew,
		Items:         []types.OrderItem{{MenuItemID: uuid.New(), Name: "Burger", Quantity: 1, UnitPriceCents: 1000}},
		SubtotalCents: 1000,
		TaxCents:      83,
		TotalCents:    1083,
		TaxRate:       decimal.RequireFromString("0.0825"),
		Version:       1,
		CreatedBy:     "user-1",
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	if mutate != nil {
		mutate(order)
	}
	initial := &models.OrderStatusHistory{
		ID:         uuid.New(),
		ToStatus:   order.Status,
		Actor:      order.CreatedBy,
		ActorRole:  enums.ActorRoleServer,
		Version:    order.Version,
		OccurredAt: created,
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return NewRepository(db).WithTx(tx).CreateOrder(context.Background(), order, initial)
	}))
	return order
}

func TestCreateOrderAllocatesPerRestaurantNumbers(t *testing.T) {
	db := dbtest.Open(t)
	tenantA, tenantB := uuid.New(), uuid.New()
	now := time.Now().UTC()

	a1 := seedOrder(t, db, tenantA, now, nil)
	a2 := seedOrder(t, db, tenantA, now, nil)
	b1 := seedOrder(t, db, tenantB, now, nil)

	assert.Equal(t, int64(1), a1.OrderNumber)
	assert.Equal(t, int64(2), a2.OrderNumber)
	assert.Equal(t, int64(1), b1.OrderNumber)

	repo := NewRepository(db)
	history, err := repo.ListHistory(context.Background(), tenantA, a1.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, enums.OrderStatusNew, history[0].ToStatus)
	assert.Equal(t, tenantA, history[0].RestaurantID)
}

func TestFindByIDForTenantHidesOtherTenants(t *testing.T) {
	db := dbtest.Open(t)
	tenantA, tenantB := uuid.New(), uuid.New()
	order := seedOrder(t, db, tenantA, time.Now().UTC(), nil)
	repo := NewRepository(db)

	found, err := repo.FindByIDForTenant(context.Background(), tenantA, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, order.Items, found.Items)
	assert.True(t, order.TaxRate.Equal(found.TaxRate))

	_, err = repo.FindByIDForTenant(context.Background(), tenantB, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = repo.FindByIDForTenant(context.Background(), tenantA, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusGuardsVersion(t *testing.T) {
	db := dbtest.Open(t)
	tenantID := uuid.New()
	order := seedOrder(t, db, tenantID, time.Now().UTC(), func(o *models.Order) {
		o.Status = enums.OrderStatusConfirmed
	})
	repo := NewRepository(db)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

	change := StatusChange{
		TenantID:        tenantID,
		OrderID:         order.ID,
		ExpectedVersion: 1,
		From:            enums.OrderStatusConfirmed,
		To:              enums.OrderStatusPreparing,
		TimestampColumn: "preparing_at",
		Actor:           "kitchen-1",
		ActorRole:       enums.ActorRoleKitchen,
		At:              at,
	}
	updated, err := repo.UpdateStatus(ctx, change)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, enums.OrderStatusPreparing, updated.Status)
	require.NotNil(t, updated.PreparingAt)
	assert.True(t, updated.PreparingAt.Equal(at))

	_, err = repo.UpdateStatus(ctx, change)
	assert.ErrorIs(t, err, ErrVersionConflict)

	wrongTenant := change
	wrongTenant.TenantID = uuid.New()
	wrongTenant.ExpectedVersion = 2
	_, err = repo.UpdateStatus(ctx, wrongTenant)
	assert.ErrorIs(t, err, ErrVersionConflict)

	reloaded, err := repo.FindByIDForTenant(ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reloaded.Version)

	history, err := repo.ListHistory(ctx, tenantID, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].FromStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, *history[1].FromStatus)
	assert.Equal(t, int64(2), history[1].Version)
	assert.Equal(t, "kitchen-1", history[1].Actor)
}

func TestListActiveExcludesTerminalAndDormant(t *testing.T) {
	db := dbtest.Open(t)
	tenantID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	pending := seedOrder(t, db, tenantID, base, func(o *models.Order) { o.Status = enums.OrderStatusPending })
	preparing := seedOrder(t, db, tenantID, base.Add(time.Minute), func(o *models.Order) {
		o.Status = enums.OrderStatusPreparing
		o.Type = enums.OrderTypePickup
	})
	seedOrder(t, db, tenantID, base.Add(2*time.Minute), func(o *models.Order) { o.Status = enums.OrderStatusCompleted })
	seedOrder(t, db, tenantID, base.Add(3*time.Minute), func(o *models.Order) { o.Status = enums.OrderStatusCancelled })
	seedOrder(t, db, tenantID, base.Add(4*time.Minute), func(o *models.Order) {
		o.IsScheduled = true
		o.ScheduledPickupTime = &future
		o.AutoFireTime = &future
	})
	fired := seedOrder(t, db, tenantID, base.Add(5*time.Minute), func(o *models.Order) {
		o.IsScheduled = true
		o.ManuallyFired = true
		o.ScheduledPickupTime = &future
		o.AutoFireTime = &future
	})
	seedOrder(t, db, uuid.New(), base, func(o *models.Order) { o.Status = enums.OrderStatusPending })

	repo := NewRepository(db)
	rows, err := repo.ListActive(context.Background(), tenantID, ActiveOrderFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []uuid.UUID{pending.ID, preparing.ID, fired.ID}, []uuid.UUID{rows[0].ID, rows[1].ID, rows[2].ID})

	rows, err = repo.ListActive(context.Background(), tenantID, ActiveOrderFilter{Types: []enums.OrderType{enums.OrderTypePickup}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, preparing.ID, rows[0].ID)

	rows, err = repo.ListActive(context.Background(), tenantID, ActiveOrderFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFindDueScheduled(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Now().UTC()
	past := now.Add(-10 * time.Minute)
	later := now.Add(30 * time.Minute)
	pickup := now.Add(time.Hour)

	due := seedOrder(t, db, uuid.New(), now, func(o *models.Order) {
		o.IsScheduled = true
		o.ScheduledPickupTime = &pickup
		o.AutoFireTime = &past
	})
	seedOrder(t, db, uuid.New(), now, func(o *models.Order) {
		o.IsScheduled = true
		o.ScheduledPickupTime = &pickup
		o.AutoFireTime = &later
	})
	seedOrder(t, db, uuid.New(), now, func(o *models.Order) {
		o.IsScheduled = true
		o.ManuallyFired = true
		o.ScheduledPickupTime = &pickup
		o.AutoFireTime = &past
	})
	seedOrder(t, db, uuid.New(), now, nil)

	rows, err := NewRepository(db).FindDueScheduled(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, due.ID, rows[0].ID)
}

func TestListOrdersPaginatesNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	tenantID := uuid.New()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		order := seedOrder(t, db, tenantID, base.Add(time.Duration(i)*time.Minute), nil)
		ids = append(ids, order.ID)
	}
	seedOrder(t, db, uuid.New(), base, nil)
	repo := NewRepository(db)

	page, err := repo.ListOrders(context.Background(), tenantID, pagination.Params{Limit: 2}, OrderListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, ids[4], page.Orders[0].ID)
	assert.Equal(t, ids[3], page.Orders[1].ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = repo.ListOrders(context.Background(), tenantID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, OrderListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, ids[2], page.Orders[0].ID)

	page, err = repo.ListOrders(context.Background(), tenantID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, OrderListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Empty(t, page.NextCursor)

	status := enums.OrderStatusCompleted
	page, err = repo.ListOrders(context.Background(), tenantID, pagination.Params{}, OrderListFilter{Status: &status})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
}
