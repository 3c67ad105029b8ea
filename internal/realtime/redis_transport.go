package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
)

type channelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
	RealtimeChannel(tenantID string) string
}

type patternSubscriber interface {
	SubscribePattern(ctx context.Context, pattern string) (<-chan *redis.Message, io.Closer, error)
	RealtimePattern() string
	RealtimeChannel(tenantID string) string
}

// RedisTransport publishes events on the tenant's redis channel so every API
// instance can relay them to its own subscribers.
type RedisTransport struct {
	client channelPublisher
}

func NewRedisTransport(client channelPublisher) (*RedisTransport, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisTransport{client: client}, nil
}

func (t *RedisTransport) Deliver(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	channel := t.client.RealtimeChannel(event.TenantID.String())
	if _, err := t.client.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Relay feeds events received from redis into the local hub.
type Relay struct {
	source  patternSubscriber
	sink    Transport
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics
}

func NewRelay(source patternSubscriber, sink Transport, logg *logger.Logger, m *metrics.RealtimeMetrics) (*Relay, error) {
	if source == nil {
		return nil, errors.New("redis subscriber required")
	}
	if sink == nil {
		return nil, errors.New("relay sink required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Relay{source: source, sink: sink, logg: logg, metrics: m}, nil
}

// Run relays until ctx is canceled. It returns an error if the subscription
// ends on its own.
func (r *Relay) Run(ctx context.Context) error {
	pattern := r.source.RealtimePattern()
	messages, closer, err := r.source.SubscribePattern(ctx, pattern)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx = r.logg.WithField(ctx, "pattern", pattern)
	r.logg.Info(ctx, "realtime relay subscribed")
	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "realtime relay stopping")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("realtime subscription closed")
			}
			r.handle(ctx, msg)
		}
	}
}

func (r *Relay) handle(ctx context.Context, msg *redis.Message) {
	if msg == nil {
		return
	}
	var event Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		r.metrics.IncDropped("decode")
		r.logg.Warn(r.logg.WithField(ctx, "channel", msg.Channel), "realtime relay dropped undecodable message")
		return
	}
	if err := event.Validate(); err != nil {
		r.metrics.IncDropped("invalid")
		return
	}
	// The channel name is the routing key; a payload claiming another tenant is never delivered.
	if msg.Channel != r.source.RealtimeChannel(event.TenantID.String()) {
		r.metrics.IncDropped("tenant_mismatch")
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"channel":   msg.Channel,
			"tenant_id": event.TenantID.String(),
		}), "realtime relay dropped cross-tenant message")
		return
	}
	if err := r.sink.Deliver(ctx, event); err != nil {
		r.metrics.IncFailed()
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "realtime relay delivery failed")
	}
}
