package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
)

// DomainEvent is what domain services hand to Emit. TenantID is required;
// every row is scoped to one restaurant.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	TenantID      uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit writes events through tx so they commit or roll back with the change
// they describe. Rows get increasing created_at values in argument order, which
// is the order the publisher drains them in.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, events ...DomainEvent) error {
	if tx == nil {
		return errors.New("outbox emit requires a transaction")
	}
	if len(events) == 0 {
		return nil
	}

	rows := make([]models.OutboxEvent, 0, len(events))
	for i, event := range events {
		row, err := toRow(event)
		if err != nil {
			return fmt.Errorf("outbox event %d (%s): %w", i, event.EventType, err)
		}
		// Same-instant events keep their relative order.
		row.CreatedAt = row.CreatedAt.Add(time.Duration(i) * time.Microsecond)
		rows = append(rows, row)
	}
	if err := s.repo.InsertBatch(tx.WithContext(ctx), rows); err != nil {
		return err
	}

	if s.logg != nil {
		for _, row := range rows {
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
				"outbox_id":  row.ID.String(),
				"event_type": row.EventType,
				"order_id":   row.AggregateID.String(),
				"tenant_id":  row.TenantID.String(),
			}), "outbox.event.queued")
		}
	}
	return nil
}

// toRow validates event and wraps its data in a PayloadEnvelope. The row id
// doubles as the envelope's event id.
func toRow(event DomainEvent) (models.OutboxEvent, error) {
	if !event.EventType.IsValid() {
		return models.OutboxEvent{}, errors.New("unknown event type")
	}
	if event.TenantID == uuid.Nil {
		return models.OutboxEvent{}, errors.New("tenant id is required")
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode data: %w", err)
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	version := event.Version
	if version == 0 {
		version = EnvelopeVersion
	}
	id := uuid.New()
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: occurred,
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("encode envelope: %w", err)
	}

	return models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		TenantID:      event.TenantID,
		Payload:       payload,
		CreatedAt:     occurred,
	}, nil
}
