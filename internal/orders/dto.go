package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

// CreateItemInput is one requested line. Name and price come from the menu.
type CreateItemInput struct {
	MenuItemID uuid.UUID
	Quantity   int
	Modifiers  []types.Modifier
}

// CreateOrderInput carries everything a client may choose about a new order.
// Tenant and actor come from the request context, never from here.
type CreateOrderInput struct {
	Type                enums.OrderType
	Items               []CreateItemInput
	TipCents            int64
	SuppliedTotalCents  *int64
	Notes               *string
	CustomerName        *string
	TableNumber         *string
	Metadata            types.JSONMap
	IsScheduled         bool
	ScheduledPickupTime *time.Time
	AutoFireTime        *time.Time
}

// CreateOrderResult is the persisted order plus any reconciliation warning.
type CreateOrderResult struct {
	Order    *models.Order
	Mismatch *TotalsMismatch
}

// TransitionInput requests a status change guarded by the version the caller read.
type TransitionInput struct {
	OrderID         uuid.UUID
	ExpectedVersion int64
	Target          enums.OrderStatus
	Reason          *string
}

// StatusChange is the store-level description of an accepted transition.
type StatusChange struct {
	TenantID        uuid.UUID
	OrderID         uuid.UUID
	ExpectedVersion int64
	From            enums.OrderStatus
	To              enums.OrderStatus
	TimestampColumn string
	Actor           string
	ActorRole       enums.ActorRole
	Reason          *string
	ManualFire      bool
	At              time.Time
}

// ActiveOrderFilter narrows the live board. Dormant scheduled orders are never included.
type ActiveOrderFilter struct {
	Statuses []enums.OrderStatus
	Types    []enums.OrderType
	Limit    int
}

// OrderListFilter narrows the order log.
type OrderListFilter struct {
	Status   *enums.OrderStatus
	Type     *enums.OrderType
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderList is one page of the order log.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// DueOrder identifies a dormant scheduled order whose fire time has passed.
type DueOrder struct {
	OrderID      uuid.UUID
	RestaurantID uuid.UUID
	Version      int64
	AutoFireTime time.Time
}
