package types

import "github.com/google/uuid"

// OrderItem is a line captured into an order at creation. Name and price are
// copied from the catalog so later menu edits never alter placed orders.
type OrderItem struct {
	MenuItemID     uuid.UUID  `json:"menu_item_id"`
	Name           string     `json:"name"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Modifiers      []Modifier `json:"modifiers,omitempty"`
}

// LineTotalCents is quantity times unit price.
func (i OrderItem) LineTotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// Modifier is a free-form kitchen instruction attached to an item, e.g. "no onions".
type Modifier struct {
	Name string `json:"name"`
	Note string `json:"note,omitempty"`
}

// JSONMap stores an opaque tenant-defined key/value bag.
type JSONMap map[string]any
