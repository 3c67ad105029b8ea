package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/pkg/config"
	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
	"github.com/angelmondragon/floorops-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 10
	publishTimeout      = 15 * time.Second
	maxBackoff          = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service drains outbox_events to Pub/Sub. Each batch is claimed in one
// transaction, published concurrently, then settled row by row.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	pubsub      pubSubClient
	repo        outboxRepository
	registry    registryResolver
	dlq         dlqRepository
	metrics     *metrics.OutboxMetrics
	publishers  publisherFactory
	batchSize   int
	maxAttempts int
	interval    time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	var err error
	if p.Config == nil {
		err = multierr.Append(err, errors.New("config is required"))
	}
	if p.Logger == nil {
		err = multierr.Append(err, errors.New("logger is required"))
	}
	if p.DB == nil {
		err = multierr.Append(err, errors.New("database client is required"))
	}
	if p.PubSub == nil {
		err = multierr.Append(err, errors.New("pubsub client is required"))
	}
	if p.Repository == nil {
		err = multierr.Append(err, errors.New("outbox repository is required"))
	}
	if p.Registry == nil {
		err = multierr.Append(err, errors.New("event registry is required"))
	}
	if p.DLQRepository == nil {
		err = multierr.Append(err, errors.New("dlq repository is required"))
	}
	if err != nil {
		return nil, err
	}

	factory := p.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(p.PubSub.Publisher(topic))
		}
	}

	cfg := p.Config.Outbox
	s := &Service{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		repo:        p.Repository,
		registry:    p.Registry,
		dlq:         p.DLQRepository,
		metrics:     p.Metrics,
		publishers:  factory,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		interval:    time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.interval <= 0 {
		s.interval = defaultPollInterval
	}
	return s, nil
}

func (s *Service) checkDependencies(ctx context.Context) error {
	var err error
	if pingErr := s.db.Ping(ctx); pingErr != nil {
		err = multierr.Append(err, fmt.Errorf("database ping: %w", pingErr))
	}
	if pingErr := s.pubsub.Ping(ctx); pingErr != nil {
		err = multierr.Append(err, fmt.Errorf("pubsub ping: %w", pingErr))
	}
	return err
}

// Run polls until ctx ends. An empty batch waits one interval; a failed batch
// backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.checkDependencies(ctx); err != nil {
		return err
	}

	delay := s.interval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox.publisher.stopped")
			return err
		}

		claimed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch.failed", err)
			delay = nextBackoff(delay, s.interval, maxBackoff)
		case claimed:
			delay = s.interval
			continue
		default:
			delay = s.interval
		}

		if err := sleep(ctx, delay+jitter()); err != nil {
			return err
		}
	}
}

// inflight is one row whose publish has been issued but not settled.
type inflight struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	pub      publisher
	result   publishResult
}

// processBatch reports whether any rows were claimed. A single row failing to
// publish never fails the batch; only bookkeeping errors do.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		if len(events) == 0 {
			return nil
		}
		claimed = true

		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		pending := make([]inflight, 0, len(events))
		for _, event := range events {
			item, err := s.issue(publishCtx, event)
			if err != nil {
				if deadErr := s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err); deadErr != nil {
					return deadErr
				}
				continue
			}
			pending = append(pending, item)
		}

		for _, item := range pending {
			_, pubErr := item.result.Get(publishCtx)
			if err := s.settle(ctx, tx, item, pubErr); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// issue resolves the row and starts its publish without waiting on the ack.
func (s *Service) issue(ctx context.Context, event models.OutboxEvent) (inflight, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return inflight{}, err
	}
	topic := resolved.Descriptor.Topic
	pub := s.publishers(topic)
	if pub == nil {
		return inflight{}, registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}
	result := pub.Publish(ctx, buildMessage(event, resolved))
	if result == nil {
		return inflight{}, registry.NewNonRetryableError(fmt.Errorf("publisher for %q returned no result", topic))
	}
	return inflight{event: event, resolved: resolved, pub: pub, result: result}, nil
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, item inflight, pubErr error) error {
	event := item.event
	topic := item.resolved.Descriptor.Topic
	logCtx := s.logg.WithFields(ctx, eventFields(event, topic))

	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		s.metrics.IncPublished(topic)
		s.logg.Debug(logCtx, "outbox.event.published")
		return nil
	}

	// Pub/Sub pauses the ordering key after a failure; the row is retried on a
	// later batch so the key has to be reopened.
	item.pub.ResumePublish(event.AggregateID.String())

	var nonRetryable registry.NonRetryableError
	if errors.As(pubErr, &nonRetryable) {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr)
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, pubErr))
	}

	s.metrics.IncFailed(topic)
	s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox.event.retry")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark %s failed: %w", event.ID, err)
	}
	return nil
}

// deadLetter copies the row into the DLQ and retires it in the same transaction.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("dead-letter %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause); err != nil {
		return fmt.Errorf("retire %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered(string(reason))

	logCtx := s.logg.WithFields(ctx, eventFields(event, ""))
	logCtx = s.logg.WithFields(logCtx, map[string]any{"dlq_reason": reason, "error": msg})
	s.logg.Warn(logCtx, "outbox.event.dead_lettered")
	return nil
}

func eventFields(event models.OutboxEvent, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"order_id":      event.AggregateID.String(),
		"tenant_id":     event.TenantID.String(),
		"attempt_count": event.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current < base {
		current = base
	}
	return min(current*2, limit)
}

func jitter() time.Duration {
	return rand.N(jitterWindow)
}
