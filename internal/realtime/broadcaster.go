package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
)

const (
	defaultQueueSize       = 1024
	defaultWorkers         = 4
	defaultDeliveryTimeout = 2 * time.Second
)

// BroadcasterParams configure the broadcast pipeline.
type BroadcasterParams struct {
	Transport       Transport
	Logger          *logger.Logger
	Metrics         *metrics.RealtimeMetrics
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
}

// Broadcaster decouples request handling from delivery: Publish only enqueues,
// workers started by Start hand events to the transport.
type Broadcaster struct {
	transport Transport
	logg      *logger.Logger
	metrics   *metrics.RealtimeMetrics
	timeout   time.Duration
	workers   int

	queue     chan Event
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewBroadcaster(p BroadcasterParams) (*Broadcaster, error) {
	if p.Transport == nil {
		return nil, errors.New("realtime transport required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	size := p.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	workers := p.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := p.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &Broadcaster{
		transport: p.Transport,
		logg:      logg,
		metrics:   p.Metrics,
		timeout:   timeout,
		workers:   workers,
		queue:     make(chan Event, size),
	}, nil
}

// Publish enqueues event and returns immediately. It reports false when the
// event was dropped: invalid, queue full or broadcaster closed.
func (b *Broadcaster) Publish(event Event) bool {
	if err := event.Validate(); err != nil {
		b.metrics.IncDropped("invalid")
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.metrics.IncDropped("closed")
		return false
	}
	select {
	case b.queue <- event:
		return true
	default:
		b.metrics.IncDropped("queue_full")
		return false
	}
}

// Start launches the delivery workers. Deliveries derive from ctx; later calls
// are no-ops.
func (b *Broadcaster) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		for i := 0; i < b.workers; i++ {
			b.wg.Add(1)
			go b.run(ctx)
		}
	})
}

// Close stops accepting events, drains what is queued and waits for workers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Broadcaster) run(ctx context.Context) {
	defer b.wg.Done()
	for event := range b.queue {
		b.deliver(ctx, event)
	}
}

func (b *Broadcaster) deliver(ctx context.Context, event Event) {
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()
	if err := b.transport.Deliver(deliverCtx, event); err != nil {
		b.metrics.IncFailed()
		logCtx := b.logg.WithFields(ctx, map[string]any{
			"tenant_id": event.TenantID.String(),
			"order_id":  event.OrderID.String(),
			"version":   event.Version,
			"error":     err.Error(),
		})
		b.logg.Warn(logCtx, "realtime delivery failed")
		return
	}
	b.metrics.IncDelivered()
}
