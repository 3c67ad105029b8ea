package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/floorops-backend/pkg/config"
	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/outbox"
	"github.com/angelmondragon/floorops-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type to a topic.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row that passed validation. Payload is a
// pointer to the payloads type registered for the event.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

func orderEvent[T any](eventType enums.OutboxEventType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// NewEventRegistry sends lifecycle events to the orders topic and payment
// intents to the payments topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var err error
	if cfg.OrdersTopic == "" {
		err = multierr.Append(err, errors.New("orders topic is required"))
	}
	if cfg.PaymentsTopic == "" {
		err = multierr.Append(err, errors.New("payments topic is required"))
	}
	if err != nil {
		return nil, err
	}

	descriptors := []EventDescriptor{
		orderEvent[payloads.OrderCreatedEvent](enums.EventOrderCreated, cfg.OrdersTopic),
		orderEvent[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, cfg.OrdersTopic),
		orderEvent[payloads.OrderPaymentDueEvent](enums.EventOrderPaymentDue, cfg.PaymentsTopic),
		orderEvent[payloads.OrderRefundRequestedEvent](enums.EventOrderRefundRequested, cfg.PaymentsTopic),
	}
	reg := &EventRegistry{byType: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		reg.byType[desc.EventType] = desc
	}
	return reg, nil
}

// Topics is sorted and free of duplicates.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{})
	for _, desc := range r.byType {
		set[desc.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve checks the row's routing columns and decodes its payload. Every
// error it returns is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	resolved, err := r.resolve(event)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("outbox %s: %w", event.EventType, err))
	}
	return resolved, nil
}

func (r *EventRegistry) resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.byType[event.EventType]
	switch {
	case !ok:
		return nil, errors.New("unsupported event type")
	case desc.AggregateType != event.AggregateType:
		return nil, fmt.Errorf("aggregate %q does not carry this event", event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, errors.New("missing aggregate_id")
	case event.TenantID == uuid.Nil:
		return nil, errors.New("missing tenant_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, err
	}
	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
