package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RestaurantSettings carries tenant configuration read by the order core.
type RestaurantSettings struct {
	RestaurantID uuid.UUID       `gorm:"column:restaurant_id;type:uuid;primaryKey"`
	TaxRate      decimal.Decimal `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	Timezone     string          `gorm:"column:timezone;not null;default:'UTC'"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (RestaurantSettings) TableName() string { return "restaurant_settings" }

// OrderNumberSequence holds the last order number handed out per restaurant.
type OrderNumberSequence struct {
	RestaurantID uuid.UUID `gorm:"column:restaurant_id;type:uuid;primaryKey"`
	LastNumber   int64     `gorm:"column:last_number;not null"`
}

func (OrderNumberSequence) TableName() string { return "order_number_sequences" }

// MenuItem is the read-only catalog view used to price orders.
type MenuItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID `gorm:"column:restaurant_id;type:uuid;not null"`
	Name         string    `gorm:"column:name;not null"`
	PriceCents   int64     `gorm:"column:price_cents;not null"`
	Available    bool      `gorm:"column:available;not null;default:true"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (MenuItem) TableName() string { return "menu_items" }
