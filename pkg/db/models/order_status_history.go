package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/floorops-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit row written with every status change.
type OrderStatusHistory struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	RestaurantID uuid.UUID          `gorm:"column:restaurant_id;type:uuid;not null"`
	FromStatus   *enums.OrderStatus `gorm:"column:from_status;type:order_status"`
	ToStatus     enums.OrderStatus  `gorm:"column:to_status;type:order_status;not null"`
	Actor        string             `gorm:"column:actor;not null"`
	ActorRole    enums.ActorRole    `gorm:"column:actor_role;type:text;not null"`
	Version      int64              `gorm:"column:version;not null"`
	Reason       *string            `gorm:"column:reason"`
	OccurredAt   time.Time          `gorm:"column:occurred_at;not null"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
