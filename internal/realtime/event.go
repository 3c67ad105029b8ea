// Package realtime fans committed order changes out to live station views.
//
// Delivery is best effort and unordered across orders. Subscribers compare the
// version field to discard stale updates instead of trusting arrival order.
package realtime

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/floorops-backend/pkg/enums"
)

type EventType string

const (
	EventOrderCreated EventType = "order.created"
	EventOrderUpdated EventType = "order.updated"
)

// Event is the wire shape pushed to subscribers.
type Event struct {
	Type       EventType         `json:"type"`
	TenantID   uuid.UUID         `json:"tenant_id"`
	OrderID    uuid.UUID         `json:"order_id"`
	Status     enums.OrderStatus `json:"status"`
	Version    int64             `json:"version"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Validate rejects events that could not be routed to exactly one tenant.
func (e Event) Validate() error {
	if e.Type != EventOrderCreated && e.Type != EventOrderUpdated {
		return fmt.Errorf("unknown realtime event type %q", e.Type)
	}
	if e.TenantID == uuid.Nil {
		return fmt.Errorf("realtime event missing tenant")
	}
	if e.OrderID == uuid.Nil {
		return fmt.Errorf("realtime event missing order")
	}
	if e.Version < 1 {
		return fmt.Errorf("realtime event version must be positive")
	}
	return nil
}
