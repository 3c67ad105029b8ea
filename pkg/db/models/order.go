package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

// Order is a single restaurant order. Money is stored in integer cents.
type Order struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID        uuid.UUID         `gorm:"column:restaurant_id;type:uuid;not null"`
	OrderNumber         int64             `gorm:"column:order_number;not null"`
	Type                enums.OrderType   `gorm:"column:type;type:order_type;not null"`
	Status              enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Items               []types.OrderItem `gorm:"column:items;type:jsonb;serializer:json;not null"`
	SubtotalCents       int64             `gorm:"column:subtotal_cents;not null"`
	TaxCents            int64             `gorm:"column:tax_cents;not null"`
	TipCents            int64             `gorm:"column:tip_cents;not null"`
	TotalCents          int64             `gorm:"column:total_cents;not null"`
	TaxRate             decimal.Decimal   `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	Version             int64             `gorm:"column:version;not null"`
	IsScheduled         bool              `gorm:"column:is_scheduled;not null"`
	ScheduledPickupTime *time.Time        `gorm:"column:scheduled_pickup_time"`
	AutoFireTime        *time.Time        `gorm:"column:auto_fire_time"`
	ManuallyFired       bool              `gorm:"column:manually_fired;not null"`
	Notes               *string           `gorm:"column:notes"`
	CustomerName        *string           `gorm:"column:customer_name"`
	TableNumber         *string           `gorm:"column:table_number"`
	Metadata            types.JSONMap     `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedBy           string            `gorm:"column:created_by;not null"`
	ConfirmedAt         *time.Time        `gorm:"column:confirmed_at"`
	PreparingAt         *time.Time        `gorm:"column:preparing_at"`
	ReadyAt             *time.Time        `gorm:"column:ready_at"`
	PickedUpAt          *time.Time        `gorm:"column:picked_up_at"`
	CompletedAt         *time.Time        `gorm:"column:completed_at"`
	CancelledAt         *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
