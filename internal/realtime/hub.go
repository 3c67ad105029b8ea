package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/floorops-backend/pkg/metrics"
)

const DefaultSubscriberBuffer = 64

// Transport delivers one event toward subscribers.
type Transport interface {
	Deliver(ctx context.Context, event Event) error
}

// Hub is the in-process registry of live views, keyed by tenant. An event is
// only ever handed to subscribers of its own tenant.
type Hub struct {
	mu               sync.RWMutex
	tenants          map[uuid.UUID]*tenantStream
	subscriberBuffer int
	metrics          *metrics.RealtimeMetrics
}

type tenantStream struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64
}

// Subscription is one live view's feed. Close it when the view goes away.
type Subscription struct {
	hub      *Hub
	tenantID uuid.UUID
	id       uint64
	ch       chan Event
	once     sync.Once
}

func NewHub(subscriberBuffer int, m *metrics.RealtimeMetrics) *Hub {
	if subscriberBuffer <= 0 {
		subscriberBuffer = DefaultSubscriberBuffer
	}
	return &Hub{
		tenants:          make(map[uuid.UUID]*tenantStream),
		subscriberBuffer: subscriberBuffer,
		metrics:          m,
	}
}

// Deliver fans event out to the tenant's subscribers without blocking. A
// subscriber whose buffer is full misses the event and is expected to re-read.
func (h *Hub) Deliver(_ context.Context, event Event) error {
	if h == nil {
		return errors.New("hub unavailable")
	}
	if err := event.Validate(); err != nil {
		return err
	}
	h.mu.RLock()
	stream := h.tenants[event.TenantID]
	h.mu.RUnlock()
	if stream == nil {
		return nil
	}

	stream.mu.Lock()
	subs := make([]chan Event, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			h.metrics.IncDropped("slow_subscriber")
		}
	}
	return nil
}

// Subscribe registers a live view for tenantID.
func (h *Hub) Subscribe(tenantID uuid.UUID) (*Subscription, error) {
	if h == nil {
		return nil, errors.New("hub unavailable")
	}
	if tenantID == uuid.Nil {
		return nil, errors.New("tenant required")
	}

	// The stream lookup and the insert share h.mu so a concurrent last Close
	// cannot retire the stream in between.
	h.mu.Lock()
	stream := h.tenants[tenantID]
	if stream == nil {
		stream = &tenantStream{subs: make(map[uint64]chan Event)}
		h.tenants[tenantID] = stream
	}
	stream.mu.Lock()
	id := stream.nextID
	stream.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	stream.subs[id] = ch
	stream.mu.Unlock()
	h.mu.Unlock()

	h.metrics.AddSubscribers(1)
	return &Subscription{hub: h, tenantID: tenantID, id: id, ch: ch}, nil
}

// Subscribers returns how many live views tenantID currently has.
func (h *Hub) Subscribers(tenantID uuid.UUID) int {
	h.mu.RLock()
	stream := h.tenants[tenantID]
	h.mu.RUnlock()
	if stream == nil {
		return 0
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return len(stream.subs)
}

func (h *Hub) unsubscribe(tenantID uuid.UUID, id uint64) {
	h.mu.RLock()
	stream := h.tenants[tenantID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	h.metrics.AddSubscribers(-1)
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tenants[tenantID] != stream {
		return
	}
	stream.mu.Lock()
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.tenants, tenantID)
	}
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

// Close detaches the subscription. The events channel is left open and simply
// stops receiving.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.tenantID, s.id)
	})
}
