package tax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
)

const (
	defaultTTL           = 30 * time.Second
	defaultCacheSize     = 1024
	defaultLookupTimeout = 5 * time.Second
)

// Options tunes the resolver cache.
type Options struct {
	TTL           time.Duration
	CacheSize     int
	// LookupTimeout bounds a shared source lookup, which outlives any single
	// caller's context.
	LookupTimeout time.Duration
	Logger        *logger.Logger
	Metrics       *metrics.OrderMetrics
}

// Resolver serves tenant tax rates from a short-lived per-process cache.
// Concurrent misses for the same restaurant share one source lookup. Staleness
// is bounded by the TTL; nodes are not kept consistent with each other.
type Resolver struct {
	source  Source
	cache   *expirable.LRU[uuid.UUID, Rate]
	group   singleflight.Group
	timeout time.Duration
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

func NewResolver(source Source, opts Options) (*Resolver, error) {
	if source == nil {
		return nil, errors.New("tax rate source required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &Resolver{
		source:  source,
		cache:   expirable.NewLRU[uuid.UUID, Rate](size, nil, ttl),
		timeout: timeout,
		logg:    opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// RateFor returns the tax rate for restaurantID. A caller whose context ends
// gives up waiting; the shared lookup keeps running for everyone else.
func (r *Resolver) RateFor(ctx context.Context, restaurantID uuid.UUID) (Rate, error) {
	if restaurantID == uuid.Nil {
		return Rate{}, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required for tax lookup")
	}
	if rate, ok := r.cache.Get(restaurantID); ok {
		r.metrics.IncTaxLookup("hit")
		return rate, nil
	}

	lookupCtx := context.WithoutCancel(ctx)
	results := r.group.DoChan(restaurantID.String(), func() (any, error) {
		return r.load(lookupCtx, restaurantID)
	})

	select {
	case res := <-results:
		if res.Err != nil {
			r.metrics.IncTaxLookup("error")
			return Rate{}, r.mapError(ctx, restaurantID, res.Err)
		}
		r.metrics.IncTaxLookup("miss")
		return res.Val.(Rate), nil
	case <-ctx.Done():
		r.metrics.IncTaxLookup("error")
		return Rate{}, r.mapError(ctx, restaurantID, ctx.Err())
	}
}

func (r *Resolver) load(ctx context.Context, restaurantID uuid.UUID) (Rate, error) {
	if rate, ok := r.cache.Get(restaurantID); ok {
		return rate, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.source.LoadRate(ctx, restaurantID)
	if err != nil {
		return Rate{}, err
	}
	rate, err := newRate(raw)
	if err != nil {
		return Rate{}, err
	}
	r.cache.Add(restaurantID, rate)
	return rate, nil
}

// Invalidate drops a cached rate, e.g. after the tenant edits its settings.
func (r *Resolver) Invalidate(restaurantID uuid.UUID) {
	r.cache.Remove(restaurantID)
}

func (r *Resolver) mapError(ctx context.Context, restaurantID uuid.UUID, err error) error {
	if errors.Is(err, ErrNotConfigured) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "tax configuration missing for restaurant").
			WithDetails(map[string]any{"restaurant_id": restaurantID.String()})
	}
	if r.logg != nil {
		logCtx := r.logg.WithTenantID(ctx, restaurantID.String())
		r.logg.Error(logCtx, "tax rate lookup failed", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "tax rate lookup timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("resolve tax rate: %w", err), "tax rate unavailable")
}
