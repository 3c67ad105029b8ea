package orders

import (
	"time"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/floorops-backend/internal/orders"
	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

const (
	maxNotesLength        = 500
	maxCustomerNameLength = 120
	maxTableNumberLength  = 16
	maxReasonLength       = 280
)

type createItemRequest struct {
	MenuItemID uuid.UUID         `json:"menu_item_id" validate:"required"`
	Quantity   int               `json:"quantity" validate:"gt=0,max=999"`
	Modifiers  []modifierRequest `json:"modifiers" validate:"omitempty,max=20,dive"`
}

type modifierRequest struct {
	Name string `json:"name" validate:"required,max=80"`
	Note string `json:"note" validate:"max=200"`
}

// createOrderRequest deliberately has no restaurant field; the tenant comes from the token.
type createOrderRequest struct {
	Type                string              `json:"type" validate:"required,order_type"`
	Items               []createItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
	TipCents            int64               `json:"tip_cents" validate:"gte=0"`
	TotalCents          *int64              `json:"total_cents" validate:"omitempty,gte=0"`
	Notes               *string             `json:"notes"`
	CustomerName        *string             `json:"customer_name"`
	TableNumber         *string             `json:"table_number"`
	Metadata            types.JSONMap       `json:"metadata"`
	IsScheduled         bool                `json:"is_scheduled"`
	ScheduledPickupTime *time.Time          `json:"scheduled_pickup_time"`
	AutoFireTime        *time.Time          `json:"auto_fire_time"`
}

func (r createOrderRequest) toInput(orderType enums.OrderType) internalorders.CreateOrderInput {
	items := make([]internalorders.CreateItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		var mods []types.Modifier
		for _, m := range item.Modifiers {
			mods = append(mods, types.Modifier{Name: m.Name, Note: m.Note})
		}
		items = append(items, internalorders.CreateItemInput{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Modifiers:  mods,
		})
	}
	return internalorders.CreateOrderInput{
		Type:                orderType,
		Items:               items,
		TipCents:            r.TipCents,
		SuppliedTotalCents:  r.TotalCents,
		Notes:               r.Notes,
		CustomerName:        r.CustomerName,
		TableNumber:         r.TableNumber,
		Metadata:            r.Metadata,
		IsScheduled:         r.IsScheduled,
		ScheduledPickupTime: r.ScheduledPickupTime,
		AutoFireTime:        r.AutoFireTime,
	}
}

type updateStatusRequest struct {
	Status          string  `json:"status" validate:"required,order_status"`
	ExpectedVersion int64   `json:"expected_version" validate:"required,gte=1"`
	Reason          *string `json:"reason"`
}

type fireRequest struct {
	ExpectedVersion int64 `json:"expected_version" validate:"required,gte=1"`
}

type orderView struct {
	ID                  uuid.UUID           `json:"id"`
	RestaurantID        uuid.UUID           `json:"restaurant_id"`
	OrderNumber         int64               `json:"order_number"`
	Type                enums.OrderType     `json:"type"`
	Status              enums.OrderStatus   `json:"status"`
	NextStatuses        []enums.OrderStatus `json:"next_statuses"`
	Items               []types.OrderItem   `json:"items"`
	SubtotalCents       int64               `json:"subtotal_cents"`
	TaxCents            int64               `json:"tax_cents"`
	TipCents            int64               `json:"tip_cents"`
	TotalCents          int64               `json:"total_cents"`
	TaxRate             string              `json:"tax_rate"`
	Version             int64               `json:"version"`
	IsScheduled         bool                `json:"is_scheduled"`
	ScheduledPickupTime *time.Time          `json:"scheduled_pickup_time,omitempty"`
	AutoFireTime        *time.Time          `json:"auto_fire_time,omitempty"`
	ManuallyFired       bool                `json:"manually_fired"`
	Notes               *string             `json:"notes,omitempty"`
	CustomerName        *string             `json:"customer_name,omitempty"`
	TableNumber         *string             `json:"table_number,omitempty"`
	Metadata            types.JSONMap       `json:"metadata,omitempty"`
	CreatedBy           string              `json:"created_by"`
	ConfirmedAt         *time.Time          `json:"confirmed_at,omitempty"`
	PreparingAt         *time.Time          `json:"preparing_at,omitempty"`
	ReadyAt             *time.Time          `json:"ready_at,omitempty"`
	PickedUpAt          *time.Time          `json:"picked_up_at,omitempty"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
	CancelledAt         *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func newOrderView(o *models.Order) orderView {
	next := internalorders.AllowedTransitions(o.Status)
	if next == nil {
		next = []enums.OrderStatus{}
	}
	return orderView{
		ID:                  o.ID,
		RestaurantID:        o.RestaurantID,
		OrderNumber:         o.OrderNumber,
		Type:                o.Type,
		Status:              o.Status,
		NextStatuses:        next,
		Items:               o.Items,
		SubtotalCents:       o.SubtotalCents,
		TaxCents:            o.TaxCents,
		TipCents:            o.TipCents,
		TotalCents:          o.TotalCents,
		TaxRate:             o.TaxRate.String(),
		Version:             o.Version,
		IsScheduled:         o.IsScheduled,
		ScheduledPickupTime: o.ScheduledPickupTime,
		AutoFireTime:        o.AutoFireTime,
		ManuallyFired:       o.ManuallyFired,
		Notes:               o.Notes,
		CustomerName:        o.CustomerName,
		TableNumber:         o.TableNumber,
		Metadata:            o.Metadata,
		CreatedBy:           o.CreatedBy,
		ConfirmedAt:         o.ConfirmedAt,
		PreparingAt:         o.PreparingAt,
		ReadyAt:             o.ReadyAt,
		PickedUpAt:          o.PickedUpAt,
		CompletedAt:         o.CompletedAt,
		CancelledAt:         o.CancelledAt,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func newOrderViews(rows []models.Order) []orderView {
	out := make([]orderView, 0, len(rows))
	for i := range rows {
		out = append(out, newOrderView(&rows[i]))
	}
	return out
}

type historyView struct {
	ID         uuid.UUID          `json:"id"`
	FromStatus *enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus   enums.OrderStatus  `json:"to_status"`
	Actor      string             `json:"actor"`
	ActorRole  enums.ActorRole    `json:"actor_role"`
	Version    int64              `json:"version"`
	Reason     *string            `json:"reason,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func newHistoryViews(rows []models.OrderStatusHistory) []historyView {
	out := make([]historyView, 0, len(rows))
	for _, row := range rows {
		out = append(out, historyView{
			ID:         row.ID,
			FromStatus: row.FromStatus,
			ToStatus:   row.ToStatus,
			Actor:      row.Actor,
			ActorRole:  row.ActorRole,
			Version:    row.Version,
			Reason:     row.Reason,
			OccurredAt: row.OccurredAt,
		})
	}
	return out
}

type orderListView struct {
	Orders     []orderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
