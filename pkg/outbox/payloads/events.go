// Package payloads holds the versioned data section of every outbox event.
// Consumers outside this repo decode these shapes, so fields are only ever added.
package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/floorops-backend/pkg/enums"
)

// TotalsMismatch is attached when a caller's total disagreed with the computed one.
type TotalsMismatch struct {
	SuppliedCents   int64 `json:"supplied_total_cents"`
	ComputedCents   int64 `json:"computed_total_cents"`
	DifferenceCents int64 `json:"difference_cents"`
}

// OrderCreatedEvent is emitted once per order, in the creating transaction.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	RestaurantID   uuid.UUID         `json:"restaurant_id"`
	OrderNumber    int64             `json:"order_number"`
	Type           enums.OrderType   `json:"type"`
	Status         enums.OrderStatus `json:"status"`
	SubtotalCents  int64             `json:"subtotal_cents"`
	TaxCents       int64             `json:"tax_cents"`
	TipCents       int64             `json:"tip_cents"`
	TotalCents     int64             `json:"total_cents"`
	TaxRate        string            `json:"tax_rate"`
	IsScheduled    bool              `json:"is_scheduled"`
	AutoFireTime   *time.Time        `json:"auto_fire_time,omitempty"`
	TotalsMismatch *TotalsMismatch   `json:"totals_mismatch,omitempty"`
}

// OrderStatusChangedEvent mirrors the history row written for the change.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	RestaurantID uuid.UUID         `json:"restaurant_id"`
	FromStatus   enums.OrderStatus `json:"from_status"`
	ToStatus     enums.OrderStatus `json:"to_status"`
	Version      int64             `json:"version"`
	Actor        string            `json:"actor"`
	ActorRole    enums.ActorRole   `json:"actor_role"`
	Reason       *string           `json:"reason,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// OrderPaymentDueEvent hands the finalized total to the payment collaborator.
type OrderPaymentDueEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	OrderNumber  int64     `json:"order_number"`
	TotalCents   int64     `json:"total_cents"`
	TipCents     int64     `json:"tip_cents"`
	Version      int64     `json:"version"`
}

// OrderRefundRequestedEvent asks the payment collaborator to reverse any capture.
type OrderRefundRequestedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	RestaurantID uuid.UUID         `json:"restaurant_id"`
	OrderNumber  int64             `json:"order_number"`
	FromStatus   enums.OrderStatus `json:"from_status"`
	TotalCents   int64             `json:"total_cents"`
	Reason       *string           `json:"reason,omitempty"`
	Version      int64             `json:"version"`
}
